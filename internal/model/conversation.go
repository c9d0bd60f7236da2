package model

import "time"

// Conversation is the unique 1:1 channel between two users. The pair key is
// the two member ids sorted lexicographically and joined with ':'; its
// unique index is what makes get-or-create atomic when both users resolve
// the pair at the same time.
type Conversation struct {
	ID        string    // conversations.id
	PairKey   string    // conversations.pair_key
	CreatedAt time.Time // conversations.created_at
	UpdatedAt time.Time // conversations.updated_at
}

// ConversationMember links a user to a conversation. Every conversation has
// exactly two member rows, written once when the conversation is created.
type ConversationMember struct {
	ConversationID string    // conversation_members.conversation_id
	UserID         string    // conversation_members.user_id
	JoinedAt       time.Time // conversation_members.joined_at
}
