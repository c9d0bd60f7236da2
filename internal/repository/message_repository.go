package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/arasli/duet-chat/internal/model"
)

type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

// ListByConversation returns all messages of a conversation ordered by
// (created_at, id) ascending.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, content, created_at
		   FROM messages WHERE conversation_id=?
		  ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Insert stores a message and increments the sender's daily count in one
// transaction. The count row is locked first so concurrent sends cannot
// slip past the limit; when the sender is already at their
// daily_message_limit the transaction aborts with ErrDailyLimitReached and
// nothing is written.
func (r *MessageRepo) Insert(ctx context.Context, conversationID, senderID, content string) (model.Message, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var limit int
	if err := tx.QueryRowContext(ctx,
		"SELECT daily_message_limit FROM profiles WHERE id=? LIMIT 1",
		senderID).Scan(&limit); err != nil {
		return model.Message{}, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	// ensure the row exists, then lock it for the limit check
	if _, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO daily_message_counts (user_id, date, count) VALUES (?,?,0)",
		senderID, today); err != nil {
		return model.Message{}, err
	}
	var used int
	if err := tx.QueryRowContext(ctx,
		"SELECT count FROM daily_message_counts WHERE user_id=? AND date=? FOR UPDATE",
		senderID, today).Scan(&used); err != nil {
		return model.Message{}, err
	}
	if used >= limit {
		return model.Message{}, ErrDailyLimitReached
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE daily_message_counts SET count=count+1 WHERE user_id=? AND date=?",
		senderID, today); err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, sender_id, content, created_at) VALUES (?,?,?,?,?)",
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt); err != nil {
		return model.Message{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE conversations SET updated_at=UTC_TIMESTAMP() WHERE id=?",
		conversationID); err != nil {
		return model.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}
