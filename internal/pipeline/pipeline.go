// Package pipeline turns inbound chat envelopes into persisted, distributed
// messages: validate, persist, enrich from the stored row, hand to the bus.
// Ephemeral signals (typing, join, leave) skip persistence entirely.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"chat-core/internal/bus"
	"chat-core/internal/database"
	"chat-core/internal/models"
)

var (
	// ErrInvalidMessage rejects bad input before persistence. Reported to
	// the sender only; nothing is stored or distributed.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrPersistence means the durable write failed. Reported to the
	// sender; nothing is distributed.
	ErrPersistence = errors.New("message persistence failed")
)

type Pipeline struct {
	db      database.MessageRepository
	bus     bus.Bus
	maxBody int
}

func New(db database.MessageRepository, b bus.Bus, maxBody int) *Pipeline {
	return &Pipeline{db: db, bus: b, maxBody: maxBody}
}

// HandleIncoming processes one chat message from a connection. On success
// the returned envelope carries the persisted identity, timestamp and
// status. If the bus is down the envelope is still returned together with
// bus.ErrBusUnavailable: the message is durable but real-time delivery is
// degraded and the sender must be told.
//
// The local instance receives the message through its own bus subscription
// like everyone else; there is no separate local broadcast to double up on.
func (p *Pipeline) HandleIncoming(ctx context.Context, roomID, senderID int, senderName, body string) (models.ChatEnvelope, error) {
	if roomID <= 0 {
		return models.ChatEnvelope{}, fmt.Errorf("%w: missing room", ErrInvalidMessage)
	}
	if senderID <= 0 {
		return models.ChatEnvelope{}, fmt.Errorf("%w: missing sender", ErrInvalidMessage)
	}
	if body == "" {
		return models.ChatEnvelope{}, fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	if length := utf8.RuneCountInString(body); length > p.maxBody {
		return models.ChatEnvelope{}, fmt.Errorf("%w: body is %d characters, limit is %d", ErrInvalidMessage, length, p.maxBody)
	}

	msg, err := p.db.SaveMessage(ctx, senderID, roomID, body)
	if err != nil {
		return models.ChatEnvelope{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	env := models.ChatEnvelope{
		MessageID:  msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: senderName,
		Body:       msg.Body,
		Timestamp:  msg.CreatedAt.UTC().Format(time.RFC3339Nano),
		Status:     msg.Status,
	}

	if err := p.bus.Publish(roomID, env); err != nil {
		return env, err
	}
	return env, nil
}

// HandleEphemeral distributes a typing or membership envelope without
// persisting anything. Chat envelopes must go through HandleIncoming.
func (p *Pipeline) HandleEphemeral(env models.Envelope) error {
	switch env.(type) {
	case models.TypingEnvelope, models.MembershipEnvelope:
	default:
		return fmt.Errorf("%w: %s envelope is not ephemeral", ErrInvalidMessage, env.Kind())
	}
	if env.Room() <= 0 {
		return fmt.Errorf("%w: missing room", ErrInvalidMessage)
	}
	return p.bus.Publish(env.Room(), env)
}
