package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestTracker(timeout time.Duration) (*MemoryTracker, *time.Time) {
	tracker := NewMemoryTracker(timeout)
	current := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }
	return tracker, &current
}

func TestHeartbeatMarksOnline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker, _ := newTestTracker(5 * time.Minute)

	online, err := tracker.IsOnline(ctx, 1)
	req.NoError(err)
	req.False(online)

	req.NoError(tracker.Heartbeat(ctx, 1))

	online, err = tracker.IsOnline(ctx, 1)
	req.NoError(err)
	req.True(online)
}

func TestEntryExpiresSilently(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker, now := newTestTracker(5 * time.Minute)

	req.NoError(tracker.Heartbeat(ctx, 1))

	*now = now.Add(4 * time.Minute)
	online, err := tracker.IsOnline(ctx, 1)
	req.NoError(err)
	req.True(online)

	// Past the timeout the user is offline with no explicit call.
	*now = now.Add(2 * time.Minute)
	online, err = tracker.IsOnline(ctx, 1)
	req.NoError(err)
	req.False(online)
}

func TestHeartbeatRenewsDeadline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker, now := newTestTracker(5 * time.Minute)

	req.NoError(tracker.Heartbeat(ctx, 1))
	*now = now.Add(4 * time.Minute)
	req.NoError(tracker.Heartbeat(ctx, 1))

	// Without the renewal this would have expired.
	*now = now.Add(4 * time.Minute)
	online, err := tracker.IsOnline(ctx, 1)
	req.NoError(err)
	req.True(online)
}

func TestLateHeartbeatNeverShortensWindow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker, now := newTestTracker(5 * time.Minute)

	base := *now

	*now = base.Add(time.Minute)
	req.NoError(tracker.Heartbeat(ctx, 1))

	// A delayed heartbeat carrying an older timestamp must not pull the
	// deadline back.
	*now = base
	req.NoError(tracker.Heartbeat(ctx, 1))

	*now = base.Add(5*time.Minute + 30*time.Second)
	online, err := tracker.IsOnline(ctx, 1)
	req.NoError(err)
	req.True(online)
}

func TestSetOffline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker, _ := newTestTracker(5 * time.Minute)

	req.NoError(tracker.Heartbeat(ctx, 1))
	req.NoError(tracker.SetOffline(ctx, 1))

	online, err := tracker.IsOnline(ctx, 1)
	req.NoError(err)
	req.False(online)

	// Offline for an unknown user is a no-op, not an error.
	req.NoError(tracker.SetOffline(ctx, 99))
}

func TestListOnline(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	tracker, now := newTestTracker(5 * time.Minute)

	req.NoError(tracker.Heartbeat(ctx, 3))
	req.NoError(tracker.Heartbeat(ctx, 1))

	*now = now.Add(3 * time.Minute)
	req.NoError(tracker.Heartbeat(ctx, 2))

	ids, err := tracker.ListOnline(ctx)
	req.NoError(err)
	req.Equal([]int{1, 2, 3}, ids)

	// Users 1 and 3 expire; user 2 was renewed later.
	*now = now.Add(3 * time.Minute)
	ids, err = tracker.ListOnline(ctx)
	req.NoError(err)
	req.Equal([]int{2}, ids)
}
