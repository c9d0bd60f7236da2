package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/arasli/duet-chat/internal/config"
	"github.com/arasli/duet-chat/internal/database"
	"github.com/arasli/duet-chat/internal/handler"
	"github.com/arasli/duet-chat/internal/queue"
	"github.com/arasli/duet-chat/internal/repository"
	"github.com/arasli/duet-chat/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("database: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	profiles := repository.NewProfileRepo(db)
	conversations := repository.NewConversationRepo(db)
	messages := repository.NewMessageRepo(db)
	quota := repository.NewQuotaRepo(db)
	publisher := queue.NewPublisher(queue.BrokerURL())

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, profiles),
		Profiles:      handler.NewProfileHandler(profiles),
		Conversations: handler.NewConversationHandler(conversations),
		Messages:      handler.NewMessageHandler(messages, conversations, publisher),
		Quota:         handler.NewQuotaHandler(quota),
	}, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
