// Package presence maintains the live, expiring view of which users are
// online. The store owns expiry: a heartbeat grants a TTL and the absence of
// further heartbeats is itself the offline signal.
package presence

import "context"

type Tracker interface {
	// Heartbeat marks the user online and renews the expiry window,
	// creating the entry if absent.
	Heartbeat(ctx context.Context, userID int) error
	// SetOffline removes the entry immediately.
	SetOffline(ctx context.Context, userID int) error
	IsOnline(ctx context.Context, userID int) (bool, error)
	ListOnline(ctx context.Context) ([]int, error)
}
