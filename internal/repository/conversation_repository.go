package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arasli/duet-chat/internal/model"
)

type ConversationRepo struct{ DB *sql.DB }

func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{DB: db} }

// PairKey returns the canonical key for an unordered user pair: the two ids
// sorted lexicographically, joined with ':'.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// GetOrCreate resolves the unique conversation between two distinct users,
// creating it (with both member rows) when absent. Two concurrent calls for
// the same pair converge on one row: the INSERT IGNORE races on the unique
// pair_key index and the loser reads the winner's id.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, selfID, otherID string) (string, error) {
	if selfID == otherID {
		return "", fmt.Errorf("cannot open a conversation with yourself")
	}
	pair := PairKey(selfID, otherID)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	res, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO conversations (id, pair_key, created_at, updated_at) VALUES (?,?,UTC_TIMESTAMP(),UTC_TIMESTAMP())",
		id, pair)
	if err != nil {
		return "", err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if inserted == 1 {
		for _, uid := range []string{selfID, otherID} {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO conversation_members (conversation_id, user_id) VALUES (?,?)",
				id, uid); err != nil {
				return "", err
			}
		}
	} else {
		// lost the race or the pair already existed; read the canonical id
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM conversations WHERE pair_key=? LIMIT 1", pair).Scan(&id); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Members lists the member rows of a conversation, optionally excluding one
// user id (the caller, when it only wants the peer).
func (r *ConversationRepo) Members(ctx context.Context, conversationID, excludeUserID string) ([]model.ConversationMember, error) {
	q := "SELECT conversation_id, user_id, joined_at FROM conversation_members WHERE conversation_id=?"
	args := []any{conversationID}
	if excludeUserID != "" {
		q += " AND user_id<>?"
		args = append(args, excludeUserID)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ConversationMember
	for rows.Next() {
		var m model.ConversationMember
		if err := rows.Scan(&m.ConversationID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// IsMember reports whether the user belongs to the conversation.
func (r *ConversationRepo) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM conversation_members WHERE conversation_id=? AND user_id=? LIMIT 1",
		conversationID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
