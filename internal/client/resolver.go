package client

import (
	"context"

	"github.com/arasli/duet-chat/pkg/apperr"
)

// ConversationView is the result of resolving a target user: the canonical
// conversation id and, when the lookups cooperate, the peer's profile. A
// zero view means no target is selected.
type ConversationView struct {
	ConversationID string
	Peer           *Profile
}

// Resolver maps a (self, target) pair onto its unique conversation.
type Resolver struct {
	svc Service
}

func NewResolver(svc Service) *Resolver { return &Resolver{svc: svc} }

// Resolve returns the conversation with the target user, creating it when
// absent. An empty target is the idle state and resolves immediately
// without network access. Peer lookup failures degrade to a nil Peer
// rather than blocking message access; only the get-or-create call itself
// can fail the resolution.
//
// Callers cancel ctx when the target changes; a cancelled resolution
// returns ctx.Err() and its result must be discarded, never applied to the
// new target's state.
func (r *Resolver) Resolve(ctx context.Context, self Identity, otherUserID string) (ConversationView, error) {
	if otherUserID == "" {
		return ConversationView{}, nil
	}

	convID, err := r.svc.GetOrCreateConversation(ctx, otherUserID)
	if err != nil {
		if ctx.Err() != nil {
			return ConversationView{}, ctx.Err()
		}
		return ConversationView{}, apperr.Wrap(apperr.CodeUnavailable, "resolve conversation", err)
	}
	if convID == "" {
		// backend answered without an id; treat as no conversation
		return ConversationView{}, nil
	}

	view := ConversationView{ConversationID: convID}

	members, err := r.svc.Members(ctx, convID, true)
	if err != nil || len(members) == 0 {
		if ctx.Err() != nil {
			return ConversationView{}, ctx.Err()
		}
		return view, nil
	}
	peer, err := r.svc.GetProfile(ctx, members[0].UserID)
	if err != nil {
		if ctx.Err() != nil {
			return ConversationView{}, ctx.Err()
		}
		return view, nil
	}
	if ctx.Err() != nil {
		return ConversationView{}, ctx.Err()
	}
	view.Peer = &peer
	return view, nil
}
