package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arasli/duet-chat/pkg/apperr"
)

func committed(id, sender, content string, at time.Time) Message {
	return Message{
		ID:             CommittedID(id),
		ConversationID: "conv-1",
		SenderID:       sender,
		Content:        content,
		CreatedAt:      at,
	}
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func assertUniqueSorted(t *testing.T, msgs []Message) {
	t.Helper()
	seen := map[MessageID]bool{}
	for i, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate id %q at index %d", m.ID.Value(), i)
		}
		seen[m.ID] = true
		if i > 0 && less(m, msgs[i-1]) {
			t.Fatalf("list not sorted at index %d", i)
		}
	}
}

func TestIngestionIsIdempotentAcrossPaths(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m1 := committed("id-1", "alice", "one", base)
	m2 := committed("id-2", "bob", "two", base.Add(time.Second))
	m3 := committed("id-3", "alice", "three", base.Add(2*time.Second))

	svc := &fakeService{messagesFn: func(context.Context, string) ([]Message, error) {
		return []Message{m1}, nil
	}}
	s := NewSynchronizer(svc, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	// push delivers m2 twice, then a poll merge overlaps everything
	s.ingest(m2)
	s.ingest(m2)
	s.merge("conv-1", []Message{m1, m2, m3})
	s.merge("conv-1", []Message{m3, m2})
	s.ingest(m3)

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	assertUniqueSorted(t, msgs)
}

func TestPushEventsArriveThroughSubscription(t *testing.T) {
	sub := newFakeSubscription()
	svc := &fakeService{
		subscribeFn: func(string) (MessageSubscription, error) { return sub, nil },
	}
	s := NewSynchronizer(svc, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	m := committed("id-9", "bob", "hello", time.Now().UTC())
	sub.ch <- m

	waitFor(t, func() bool { return len(s.Messages()) == 1 })
	if got := s.Messages()[0]; !got.ID.Equal(m.ID) || got.Content != "hello" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestMergePreservesOptimisticEntries(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewSynchronizer(&fakeService{}, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	pending := Message{
		ID:             NewPendingID(),
		ConversationID: "conv-1",
		SenderID:       "alice",
		Content:        "in flight",
		CreatedAt:      base.Add(time.Minute),
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, pending)
	s.mu.Unlock()

	s.merge("conv-1", []Message{committed("id-1", "bob", "done", base)})

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !msgs[1].ID.Equal(pending.ID) {
		t.Fatalf("optimistic entry lost in merge")
	}
}

func TestSendReplacesOptimisticEntryInPlace(t *testing.T) {
	stored := committed("srv-1", "alice", "hi", time.Now().UTC())
	sendCalls := 0
	svc := &fakeService{sendFn: func(_ context.Context, convID, content string) (Message, error) {
		sendCalls++
		if convID != "conv-1" || content != "hi" {
			t.Errorf("unexpected send args %q %q", convID, content)
		}
		return stored, nil
	}}
	s := NewSynchronizer(svc, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	if err := s.Send(context.Background(), "  hi  "); err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].ID.Pending() || msgs[0].ID.Value() != "srv-1" {
		t.Fatalf("optimistic entry not replaced: %+v", msgs[0].ID)
	}
	if sendCalls != 1 {
		t.Fatalf("expected 1 send call, got %d", sendCalls)
	}
}

func TestSendShowsOptimisticEntryBeforeRoundTripCompletes(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	stored := committed("srv-1", "alice", "hi", time.Now().UTC())
	svc := &fakeService{sendFn: func(context.Context, string, string) (Message, error) {
		close(started)
		<-proceed
		return stored, nil
	}}
	s := NewSynchronizer(svc, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	errc := make(chan error, 1)
	go func() { errc <- s.Send(context.Background(), "hi") }()
	<-started

	msgs := s.Messages()
	if len(msgs) != 1 || !msgs[0].ID.Pending() {
		t.Fatalf("expected one pending entry mid-flight, got %+v", msgs)
	}

	close(proceed)
	if err := <-errc; err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs = s.Messages()
	if len(msgs) != 1 || msgs[0].ID.Pending() {
		t.Fatalf("expected one committed entry, got %+v", msgs)
	}
}

func TestOptimisticConvergenceWhenPushBeatsSendResponse(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	stored := committed("srv-1", "alice", "hi", time.Now().UTC())
	svc := &fakeService{sendFn: func(context.Context, string, string) (Message, error) {
		close(started)
		<-proceed
		return stored, nil
	}}
	s := NewSynchronizer(svc, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	errc := make(chan error, 1)
	go func() { errc <- s.Send(context.Background(), "hi") }()
	<-started

	// the insert event for the server id arrives before the send resolves
	s.ingest(stored)

	close(proceed)
	if err := <-errc; err != nil {
		t.Fatalf("send: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one final entry, got %d", len(msgs))
	}
	if !msgs[0].ID.Equal(stored.ID) {
		t.Fatalf("expected committed entry, got %+v", msgs[0].ID)
	}
}

func TestSendRollbackOnFailureKeepsListUnchanged(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	existing := committed("id-1", "bob", "hello", base)
	svc := &fakeService{
		messagesFn: func(context.Context, string) ([]Message, error) {
			return []Message{existing}, nil
		},
		sendFn: func(context.Context, string, string) (Message, error) {
			return Message{}, apperr.QuotaExceeded("daily message limit reached")
		},
	}
	s := NewSynchronizer(svc, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	err := s.Send(context.Background(), "one too many")
	if err == nil {
		t.Fatalf("expected error")
	}
	// the typed reason survives unmodified
	if !apperr.Is(err, apperr.CodeQuotaExceeded) {
		t.Fatalf("expected quota code, got %v (%v)", apperr.CodeOf(err), err)
	}

	msgs := s.Messages()
	if len(msgs) != 1 || !msgs[0].ID.Equal(existing.ID) {
		t.Fatalf("expected rollback to leave the list unchanged, got %+v", msgs)
	}
}

func TestSendIsNoOpOnEmptyContentAndWhenUnbound(t *testing.T) {
	svc := &fakeService{sendFn: func(context.Context, string, string) (Message, error) {
		t.Fatal("send must not reach the service")
		return Message{}, nil
	}}
	s := NewSynchronizer(svc, time.Hour)
	s.Bind("conv-1", Identity{ID: "alice"})

	if err := s.Send(context.Background(), "   \n\t "); err != nil {
		t.Fatalf("empty send: %v", err)
	}
	s.Unbind()
	if err := s.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("unbound send: %v", err)
	}
}

func TestUnbindStopsPollAndCancelsSubscription(t *testing.T) {
	calls := make(chan struct{}, 100)
	sub := newFakeSubscription()
	svc := &fakeService{
		messagesFn: func(context.Context, string) ([]Message, error) {
			select {
			case calls <- struct{}{}:
			default:
			}
			return nil, nil
		},
		subscribeFn: func(string) (MessageSubscription, error) { return sub, nil },
	}
	s := NewSynchronizer(svc, 10*time.Millisecond)
	s.Bind("conv-1", Identity{ID: "alice"})

	waitFor(t, func() bool { return len(calls) > 1 }) // poll is running
	s.Unbind()

	if !sub.isCancelled() {
		t.Fatalf("subscription not cancelled on unbind")
	}
	for len(calls) > 0 {
		<-calls
	}
	time.Sleep(50 * time.Millisecond)
	if len(calls) != 0 {
		t.Fatalf("poll kept running after unbind")
	}
}

func TestPollFailureIsRetriedNextTick(t *testing.T) {
	m := committed("id-1", "bob", "late", time.Now().UTC())
	tick := 0
	svc := &fakeService{messagesFn: func(context.Context, string) ([]Message, error) {
		tick++
		if tick <= 2 {
			return nil, errors.New("transient outage")
		}
		return []Message{m}, nil
	}}
	s := NewSynchronizer(svc, 10*time.Millisecond)
	s.Bind("conv-1", Identity{ID: "alice"})
	defer s.Unbind()

	waitFor(t, func() bool { return len(s.Messages()) == 1 })
}
