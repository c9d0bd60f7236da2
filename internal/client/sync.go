package client

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultPollInterval is how often the poll path re-fetches the bound
// conversation's messages.
const DefaultPollInterval = 2500 * time.Millisecond

// Synchronizer keeps the local message list of one conversation consistent
// with the remote store. Two ingestion paths run while bound: the push
// subscription appends inserts as they happen, and a fallback poll
// re-fetches the full list and merges it by id. There is no ordering
// guarantee between the two paths; correctness relies on idempotent
// merge-by-id plus the final (created_at, id) sort. Sends are optimistic:
// the message appears locally before the round trip completes and is
// rolled back if the insert fails.
//
// Only one conversation may be bound at a time; Bind replaces the previous
// binding and Unbind tears all background work down deterministically.
type Synchronizer struct {
	svc      Service
	interval time.Duration

	mu     sync.Mutex
	convID string
	self   Identity
	msgs   []Message

	cancel context.CancelFunc
	sub    MessageSubscription
	wg     sync.WaitGroup
}

// NewSynchronizer builds a synchronizer polling at the given interval;
// pass 0 for DefaultPollInterval.
func NewSynchronizer(svc Service, pollInterval time.Duration) *Synchronizer {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Synchronizer{svc: svc, interval: pollInterval}
}

// Bind attaches the synchronizer to a conversation: it replaces the local
// list with a full fetch (empty on failure, logged), subscribes to insert
// events and starts the poll ticker. Any previous binding is unbound
// first.
func (s *Synchronizer) Bind(conversationID string, self Identity) {
	s.Unbind()

	ctx, cancel := context.WithCancel(context.Background())

	fetchCtx, fetchCancel := context.WithTimeout(ctx, 10*time.Second)
	initial, err := s.svc.Messages(fetchCtx, conversationID)
	fetchCancel()
	if err != nil {
		log.Printf("sync: initial fetch failed: %v", err)
		initial = nil
	}
	sortMessages(initial)

	s.mu.Lock()
	s.convID = conversationID
	s.self = self
	s.msgs = initial
	s.cancel = cancel
	s.mu.Unlock()

	sub, err := s.svc.SubscribeMessages(conversationID)
	if err != nil {
		// poll still reconciles everything, just with more latency
		log.Printf("sync: subscribe failed, falling back to poll only: %v", err)
	} else {
		s.mu.Lock()
		s.sub = sub
		s.mu.Unlock()
		s.wg.Add(1)
		go s.pushLoop(sub)
	}

	s.wg.Add(1)
	go s.pollLoop(ctx, conversationID)
}

// Unbind cancels the poll ticker and the push subscription and discards
// the binding. No background work continues past Unbind.
func (s *Synchronizer) Unbind() {
	s.mu.Lock()
	cancel := s.cancel
	sub := s.sub
	s.cancel = nil
	s.sub = nil
	s.convID = ""
	s.self = Identity{}
	s.msgs = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Messages returns a snapshot of the current list, sorted by
// (created_at, id) ascending with exactly one entry per message id.
func (s *Synchronizer) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Send stores a message in the bound conversation. Empty-after-trim
// content, or sending while unbound, is a silent no-op. The optimistic
// entry is appended before the network round trip; on failure it is
// removed and the error is returned unmodified so callers can branch on
// the quota code. On success the entry is replaced in place by the
// authoritative message, collapsing with any copy the push or poll path
// ingested first.
func (s *Synchronizer) Send(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	s.mu.Lock()
	if s.convID == "" || s.self.ID == "" {
		s.mu.Unlock()
		return nil
	}
	convID := s.convID
	pendingID := NewPendingID()
	s.msgs = append(s.msgs, Message{
		ID:             pendingID,
		ConversationID: convID,
		SenderID:       s.self.ID,
		Content:        trimmed,
		CreatedAt:      time.Now().UTC(),
	})
	sortMessages(s.msgs)
	s.mu.Unlock()

	stored, err := s.svc.SendMessage(ctx, convID, trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.removeLocked(pendingID)
		return err
	}
	if s.convID != convID {
		// binding changed mid-flight; the old list is gone already
		return nil
	}
	if s.containsLocked(stored.ID) {
		// a push or poll event beat the send response; drop the
		// optimistic entry and keep the ingested copy
		s.removeLocked(pendingID)
		return nil
	}
	for i := range s.msgs {
		if s.msgs[i].ID.Equal(pendingID) {
			s.msgs[i] = stored
			break
		}
	}
	sortMessages(s.msgs)
	return nil
}

func (s *Synchronizer) pushLoop(sub MessageSubscription) {
	defer s.wg.Done()
	for m := range sub.Events() {
		s.ingest(m)
	}
}

func (s *Synchronizer) pollLoop(ctx context.Context, conversationID string) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		fetchCtx, cancel := context.WithTimeout(ctx, s.interval)
		fresh, err := s.svc.Messages(fetchCtx, conversationID)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// self-healing: the next tick retries
			log.Printf("sync: poll failed: %v", err)
			continue
		}
		if ctx.Err() != nil {
			return // stale result after cancellation, discard
		}
		s.merge(conversationID, fresh)
	}
}

// ingest applies one push event: append unless an entry with the same id
// already exists. Duplicate application is a no-op.
func (s *Synchronizer) ingest(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.convID != m.ConversationID {
		return
	}
	if s.containsLocked(m.ID) {
		return
	}
	s.msgs = append(s.msgs, m)
	sortMessages(s.msgs)
}

// merge reconciles a full poll result: every fetched message overwrites or
// inserts by id, optimistic entries survive, nothing is removed (messages
// are never deleted remotely).
func (s *Synchronizer) merge(conversationID string, fresh []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.convID != conversationID {
		return
	}
	byID := make(map[MessageID]int, len(s.msgs))
	for i, m := range s.msgs {
		byID[m.ID] = i
	}
	for _, m := range fresh {
		if i, ok := byID[m.ID]; ok {
			s.msgs[i] = m
			continue
		}
		byID[m.ID] = len(s.msgs)
		s.msgs = append(s.msgs, m)
	}
	sortMessages(s.msgs)
}

func (s *Synchronizer) containsLocked(id MessageID) bool {
	for _, m := range s.msgs {
		if m.ID.Equal(id) {
			return true
		}
	}
	return false
}

func (s *Synchronizer) removeLocked(id MessageID) {
	for i, m := range s.msgs {
		if m.ID.Equal(id) {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			return
		}
	}
}

func sortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return less(msgs[i], msgs[j]) })
}
