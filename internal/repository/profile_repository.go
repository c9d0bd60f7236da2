package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/arasli/duet-chat/internal/model"
	"github.com/arasli/duet-chat/internal/utils"
)

type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// Create inserts a profile and returns its id. The username is stored
// trimmed; uniqueness violations map to ErrUsernameExists.
func (r *ProfileRepo) Create(ctx context.Context, username, password string, cost int) (string, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO profiles (id, username, password_hash) VALUES (?,?,?)",
		id, username, hash)
	if err != nil {
		// MySQL 1062 = duplicate entry on the unique username key
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return "", ErrUsernameExists
		}
		return "", err
	}
	return id, nil
}

// VerifyLogin checks username/password and returns the profile id on a
// match. ok is false for both unknown usernames and wrong passwords so
// callers cannot distinguish the two.
func (r *ProfileRepo) VerifyLogin(ctx context.Context, username, password string) (id string, ok bool, err error) {
	username = strings.TrimSpace(username)
	var hash string
	err = r.DB.QueryRowContext(ctx,
		"SELECT id, password_hash FROM profiles WHERE username=? LIMIT 1",
		username).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !utils.VerifyPassword(hash, password) {
		return "", false, nil
	}
	return id, true, nil
}

// GetByID fetches a single profile.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, password_hash, display_name, avatar_url,
		        daily_message_limit, last_seen_at, created_at, updated_at
		   FROM profiles WHERE id=? LIMIT 1`, id).
		Scan(&p.ID, &p.Username, &p.PasswordHash, &p.DisplayName, &p.AvatarURL,
			&p.DailyMessageLimit, &p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	return p, err
}

// List returns all profiles ordered by username.
func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, username, password_hash, display_name, avatar_url,
		        daily_message_limit, last_seen_at, created_at, updated_at
		   FROM profiles ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.PasswordHash, &p.DisplayName, &p.AvatarURL,
			&p.DailyMessageLimit, &p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TouchLastSeen records a liveness announcement for the user.
func (r *ProfileRepo) TouchLastSeen(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET last_seen_at=UTC_TIMESTAMP(3) WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// 0 rows also happens when last_seen_at lands on the same
		// millisecond, so re-check existence before reporting not found.
		var one int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM profiles WHERE id=? LIMIT 1", id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	return nil
}
