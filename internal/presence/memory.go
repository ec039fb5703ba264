package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryTracker is a process-local tracker for tests and single-node runs.
// Entries hold an expiry deadline and are treated as absent once it passes;
// each heartbeat keeps the furthest deadline, so concurrent renewals never
// shorten the window.
type MemoryTracker struct {
	mu        sync.Mutex
	deadlines map[int]time.Time
	timeout   time.Duration
	now       func() time.Time
}

func NewMemoryTracker(timeout time.Duration) *MemoryTracker {
	return &MemoryTracker{
		deadlines: make(map[int]time.Time),
		timeout:   timeout,
		now:       time.Now,
	}
}

func (t *MemoryTracker) Heartbeat(_ context.Context, userID int) error {
	deadline := t.now().Add(t.timeout)

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.deadlines[userID]; !ok || deadline.After(existing) {
		t.deadlines[userID] = deadline
	}
	return nil
}

func (t *MemoryTracker) SetOffline(_ context.Context, userID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.deadlines, userID)
	return nil
}

func (t *MemoryTracker) IsOnline(_ context.Context, userID int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline, ok := t.deadlines[userID]
	if !ok {
		return false, nil
	}
	if !t.now().Before(deadline) {
		delete(t.deadlines, userID)
		return false, nil
	}
	return true, nil
}

func (t *MemoryTracker) ListOnline(_ context.Context) ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var ids []int
	for userID, deadline := range t.deadlines {
		if now.Before(deadline) {
			ids = append(ids, userID)
		} else {
			delete(t.deadlines, userID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
