package client

import (
	"time"

	"github.com/google/uuid"
)

// MessageID identifies a message in the local list. Server-assigned ids
// are committed; optimistic entries carry a locally generated pending id
// until the send round trip resolves. The two kinds never collide: pending
// ids exist only inside one client session and are replaced or removed
// before the entry is ever treated as authoritative.
type MessageID struct {
	value   string
	pending bool
}

// NewPendingID mints a placeholder id for an optimistic entry, unique
// within the session.
func NewPendingID() MessageID {
	return MessageID{value: uuid.NewString(), pending: true}
}

// CommittedID wraps a server-assigned message id.
func CommittedID(v string) MessageID {
	return MessageID{value: v}
}

// Pending reports whether the id is a local placeholder.
func (id MessageID) Pending() bool { return id.pending }

// Value returns the raw id string.
func (id MessageID) Value() string { return id.value }

// Equal compares both the raw value and the pending tag, so a committed id
// never matches a pending one that happens to share the string.
func (id MessageID) Equal(o MessageID) bool {
	return id.value == o.value && id.pending == o.pending
}

// Less orders ids for use as the sort tiebreaker. Committed ids sort before
// pending ones so an optimistic entry written in the same instant as a
// stored message renders after it.
func (id MessageID) Less(o MessageID) bool {
	if id.pending != o.pending {
		return !id.pending
	}
	return id.value < o.value
}

// Message is one entry of the local conversation list. Optimistic entries
// carry a pending id and the local send time; committed entries mirror the
// stored row.
type Message struct {
	ID             MessageID
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}

// less is the list ordering: (created_at, id) ascending.
func less(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.Less(b.ID)
}
