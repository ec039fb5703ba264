// Package bus carries envelopes between service instances. Every instance
// publishes to a per-room topic and subscribes to all of them; delivery is
// best-effort to the instances connected at publish time.
package bus

import (
	"errors"

	"chat-core/internal/models"
)

// ErrBusUnavailable reports that the bus connection is down. The caller's
// message may already be durable; delivery is degraded, not the write.
var ErrBusUnavailable = errors.New("distribution bus unavailable")

// Handler receives one decoded envelope per delivery, on the bus's own
// dispatch goroutine.
type Handler func(env models.Envelope)

type Bus interface {
	// Publish sends the envelope to every instance subscribed to the
	// room's topic. Per room and per publisher, subscribers observe
	// publishes in order.
	Publish(roomID int, env models.Envelope) error
	// Subscribe registers the handler for all room topics.
	Subscribe(h Handler) error
	Close()
}
