package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/arasli/duet-chat/internal/config"
	"github.com/arasli/duet-chat/internal/handler"
	"github.com/arasli/duet-chat/internal/middleware"
)

// Handlers groups every handler the router wires up.
type Handlers struct {
	Auth          *handler.AuthHandler
	Profiles      *handler.ProfileHandler
	Conversations *handler.ConversationHandler
	Messages      *handler.MessageHandler
	Quota         *handler.QuotaHandler
}

// Register mounts all routes. Unauthenticated operations live under
// /v1/auth behind the rate limiter; everything else requires a valid
// bearer session token.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// sign-up and login are the only routes reachable without a token and
	// therefore the only brute-forceable surface; throttle them.
	g := e.Group("/v1/auth", middleware.NewTokenBucket(rl, rdb))
	g.POST("/signup", h.Auth.SignUp)
	g.POST("/login", h.Auth.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/profiles", h.Profiles.List)
	auth.GET("/profiles/:id", h.Profiles.Get)
	auth.POST("/presence/heartbeat", h.Profiles.Heartbeat)

	auth.POST("/conversations/with/:userID", h.Conversations.With)
	auth.GET("/conversations/:id/members", h.Conversations.Members)
	auth.GET("/conversations/:id/messages", h.Messages.List)
	auth.POST("/conversations/:id/messages", h.Messages.Send)

	auth.GET("/quota", h.Quota.Get)
}
