// Package queue carries message-insert events between the server and
// subscribed clients over RabbitMQ. Events are published to a topic
// exchange with the conversation id as routing key, so a client binding a
// queue to one conversation only sees that conversation's inserts.
package queue

// ExchangeName is the topic exchange all message-insert events flow through.
const ExchangeName = "chat.messages"

// MessageInsertedEvent is published after a message row is stored. It
// mirrors the row so subscribers can render it without a follow-up query.
type MessageInsertedEvent struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"` // RFC 3339 with millisecond precision
}
