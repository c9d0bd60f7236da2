package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// migrations are idempotent; Migrate runs at every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id CHAR(36) NOT NULL,
		username VARCHAR(32) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		display_name VARCHAR(64) NULL,
		avatar_url VARCHAR(255) NULL,
		daily_message_limit INT NOT NULL DEFAULT 100,
		last_seen_at DATETIME(3) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_profiles_username (username)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// pair_key is "<lowerID>:<higherID>"; the unique key enforces at most one
	// conversation per unordered user pair.
	`CREATE TABLE IF NOT EXISTS conversations (
		id CHAR(36) NOT NULL,
		pair_key CHAR(73) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_conversations_pair (pair_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS conversation_members (
		conversation_id CHAR(36) NOT NULL,
		user_id CHAR(36) NOT NULL,
		joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (conversation_id, user_id),
		KEY idx_members_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS messages (
		id CHAR(36) NOT NULL,
		conversation_id CHAR(36) NOT NULL,
		sender_id CHAR(36) NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME(3) NOT NULL,
		PRIMARY KEY (id),
		KEY idx_messages_conversation (conversation_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS daily_message_counts (
		user_id CHAR(36) NOT NULL,
		date DATE NOT NULL,
		count INT NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
