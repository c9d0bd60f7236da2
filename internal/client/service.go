// Package client implements the chat client engine: session management,
// conversation resolution, dual-path message synchronization, quota
// tracking and the presence heartbeat. All remote access goes through the
// Service interface so tests can substitute fakes; the production
// implementation is HTTPService.
package client

import (
	"context"
	"time"
)

// Identity is the authenticated user, derived solely from a valid session
// token's subject claim. No other identity fields are trusted client-side.
type Identity struct {
	ID string
}

// Profile is another user's public profile as served by the backend.
type Profile struct {
	ID                string
	Username          string
	DisplayName       *string
	AvatarURL         *string
	DailyMessageLimit int
	LastSeenAt        *time.Time
}

// Member is one membership row of a conversation.
type Member struct {
	UserID   string
	JoinedAt time.Time
}

// Quota is the caller's daily usage snapshot.
type Quota struct {
	Used  int
	Limit int
}

// TokenPair is the login response. Both fields carry the same token; the
// backend has no refresh mechanism.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// MessageSubscription is a live feed of committed messages inserted into
// one conversation. Cancel is synchronous and idempotent; Events is closed
// after cancellation.
type MessageSubscription interface {
	Events() <-chan Message
	Cancel()
}

// Service is the remote data service plus the token issuance endpoint.
// Implementations map transport failures onto apperr codes:
// UNAUTHENTICATED for 401-class rejections, ALREADY_EXISTS for the
// username conflict, QUOTA_EXCEEDED for the daily limit, UNAVAILABLE for
// anything transient or malformed.
type Service interface {
	SignUp(ctx context.Context, username, password string) (profileID string, err error)
	Login(ctx context.Context, username, password string) (TokenPair, error)

	ListProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	Heartbeat(ctx context.Context) error

	GetOrCreateConversation(ctx context.Context, otherUserID string) (conversationID string, err error)
	Members(ctx context.Context, conversationID string, excludeSelf bool) ([]Member, error)

	Messages(ctx context.Context, conversationID string) ([]Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (Message, error)
	SubscribeMessages(conversationID string) (MessageSubscription, error)

	Quota(ctx context.Context) (Quota, error)
}
