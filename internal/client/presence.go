package client

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// HeartbeatInterval is how often liveness is announced while a heartbeat
// runs.
const HeartbeatInterval = 15 * time.Second

// OnlineThreshold is the maximum age of a last-seen timestamp for a user
// to be rendered as online.
const OnlineThreshold = 2 * time.Minute

// Heartbeat periodically announces the current user's liveness. A failed
// announcement is logged and the interval keeps running; a single missed
// beat is not fatal.
type Heartbeat struct {
	svc      Service
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHeartbeat builds a heartbeat announcing every interval; pass 0 for
// HeartbeatInterval.
func NewHeartbeat(svc Service, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = HeartbeatInterval
	}
	return &Heartbeat{svc: svc, interval: interval}
}

// Start announces immediately and then on every tick until Stop. The
// optional afterUpdate hook runs after each successful announcement so
// dependents (the profile list) can refresh derived online state. Calling
// Start while running restarts the loop.
func (h *Heartbeat) Start(afterUpdate func()) {
	h.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	h.mu.Lock()
	h.cancel = cancel
	h.done = done
	h.mu.Unlock()

	go func() {
		defer close(done)
		h.tick(ctx, afterUpdate)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.tick(ctx, afterUpdate)
			}
		}
	}()
}

// Stop cancels the announcement loop and waits for it to exit. Safe to
// call when not running.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	done := h.done
	h.cancel = nil
	h.done = nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (h *Heartbeat) tick(ctx context.Context, afterUpdate func()) {
	tickCtx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()
	if err := h.svc.Heartbeat(tickCtx); err != nil {
		if ctx.Err() == nil {
			log.Printf("presence: update failed: %v", err)
		}
		return
	}
	if afterUpdate != nil {
		afterUpdate()
	}
}

// Online reports whether a user with the given last-seen timestamp counts
// as online at now.
func Online(lastSeen *time.Time, now time.Time) bool {
	return lastSeen != nil && now.Sub(*lastSeen) < OnlineThreshold
}

// LastSeenLabel renders a human-readable last-seen age: "just now",
// "5m ago", "3h ago", "2d ago", or "Never" when the user was never seen.
func LastSeenLabel(lastSeen *time.Time, now time.Time) string {
	if lastSeen == nil {
		return "Never"
	}
	d := now.Sub(*lastSeen)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
