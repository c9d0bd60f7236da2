package model

import "time"

// Profile represents a row in the `profiles` table. One profile exists per
// registered user; it is created during sign-up and never deleted. The
// username is unique and immutable after creation.
//
// Fields:
//  ID                – primary key, UUID string.
//  Username          – unique login name.
//  PasswordHash      – bcrypt hashed password.
//  DisplayName       – optional display name shown instead of the username.
//  AvatarURL         – optional avatar image URL.
//  DailyMessageLimit – maximum messages this user may send per UTC day.
//  LastSeenAt        – last liveness announcement; nil until the first
//                      heartbeat. Mutated only by the presence endpoint.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Profile struct {
	ID                string     // profiles.id
	Username          string     // profiles.username
	PasswordHash      string     // profiles.password_hash
	DisplayName       *string    // profiles.display_name (nullable)
	AvatarURL         *string    // profiles.avatar_url (nullable)
	DailyMessageLimit int        // profiles.daily_message_limit
	LastSeenAt        *time.Time // profiles.last_seen_at (nullable)
	CreatedAt         time.Time  // profiles.created_at
	UpdatedAt         time.Time  // profiles.updated_at
}
