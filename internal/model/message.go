package model

import "time"

// Message is one chat message, immutable once stored. Messages are ordered
// by (created_at, id) ascending; the id breaks ties between messages stored
// in the same millisecond.
type Message struct {
	ID             string    // messages.id
	ConversationID string    // messages.conversation_id
	SenderID       string    // messages.sender_id
	Content        string    // messages.content
	CreatedAt      time.Time // messages.created_at
}

// DailyMessageCount tracks how many messages a user sent on one UTC day.
// Rows are created and incremented inside the message-insert transaction;
// the client only ever reads them.
type DailyMessageCount struct {
	UserID string    // daily_message_counts.user_id
	Date   time.Time // daily_message_counts.date (UTC calendar day)
	Count  int       // daily_message_counts.count
}
