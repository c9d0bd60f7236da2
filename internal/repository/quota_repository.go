package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type QuotaRepo struct{ DB *sql.DB }

func NewQuotaRepo(db *sql.DB) *QuotaRepo { return &QuotaRepo{DB: db} }

// Usage reads a user's sent-message count for the current UTC day together
// with their configured limit. A missing count row means zero used; the
// counter itself is only ever written by MessageRepo.Insert.
func (r *QuotaRepo) Usage(ctx context.Context, userID string) (used, limit int, err error) {
	if err = r.DB.QueryRowContext(ctx,
		"SELECT daily_message_limit FROM profiles WHERE id=? LIMIT 1",
		userID).Scan(&limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	err = r.DB.QueryRowContext(ctx,
		"SELECT count FROM daily_message_counts WHERE user_id=? AND date=? LIMIT 1",
		userID, today).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, limit, nil
	}
	return used, limit, err
}
