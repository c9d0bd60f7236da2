package client

import (
	"context"
	"sync"
)

// DefaultDailyLimit is assumed until the first successful refetch reports
// the user's configured limit.
const DefaultDailyLimit = 100

// QuotaTracker mirrors the caller's daily send quota. It is read-only: the
// remote side increments the counter as part of message insertion, and a
// send past the limit fails remotely with a quota-coded error rather than
// being blocked here. Callers refetch after every successful send since
// quota state is not pushed.
type QuotaTracker struct {
	svc Service

	mu    sync.Mutex
	used  int
	limit int
}

func NewQuotaTracker(svc Service) *QuotaTracker {
	return &QuotaTracker{svc: svc, limit: DefaultDailyLimit}
}

// Refetch reads today's usage and the configured limit. On failure the
// previous snapshot is kept.
func (t *QuotaTracker) Refetch(ctx context.Context) error {
	q, err := t.svc.Quota(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.used = q.Used
	t.limit = q.Limit
	if t.limit <= 0 {
		t.limit = DefaultDailyLimit
	}
	t.mu.Unlock()
	return nil
}

func (t *QuotaTracker) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

func (t *QuotaTracker) Limit() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit
}

// IsAtLimit reports whether the user has exhausted today's quota.
func (t *QuotaTracker) IsAtLimit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used >= t.limit
}
