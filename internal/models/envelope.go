package models

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventChat   EventType = "CHAT"
	EventJoin   EventType = "JOIN"
	EventLeave  EventType = "LEAVE"
	EventTyping EventType = "TYPING"
)

// Envelope is one real-time event on the wire. Each event kind is its own
// concrete type; the JSON codec tags every payload with a "type" field so
// browser clients and remote instances can dispatch on it.
type Envelope interface {
	Kind() EventType
	Room() int
}

// ChatEnvelope carries a persisted chat message. It is only built from a
// stored row, so identity, timestamp and status are always set.
type ChatEnvelope struct {
	MessageID  int64  `json:"message_id"`
	RoomID     int    `json:"room_id"`
	SenderID   int    `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Body       string `json:"body"`
	Timestamp  string `json:"timestamp"`
	Status     string `json:"status"`
}

func (e ChatEnvelope) Kind() EventType { return EventChat }
func (e ChatEnvelope) Room() int       { return e.RoomID }

// TypingEnvelope is an ephemeral typing indicator. Never persisted.
type TypingEnvelope struct {
	RoomID     int    `json:"room_id"`
	SenderID   int    `json:"sender_id"`
	SenderName string `json:"sender_name"`
}

func (e TypingEnvelope) Kind() EventType { return EventTyping }
func (e TypingEnvelope) Room() int       { return e.RoomID }

// MembershipEnvelope announces a user joining or leaving a room. The event
// field must be EventJoin or EventLeave. Never persisted.
type MembershipEnvelope struct {
	Event     EventType `json:"-"`
	RoomID    int       `json:"room_id"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp string    `json:"timestamp"`
}

func (e MembershipEnvelope) Kind() EventType { return e.Event }
func (e MembershipEnvelope) Room() int       { return e.RoomID }

type envelopeHeader struct {
	Type EventType `json:"type"`
}

// EncodeEnvelope serializes an envelope with its type tag.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	switch e := env.(type) {
	case ChatEnvelope:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			ChatEnvelope
		}{EventChat, e})
	case TypingEnvelope:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			TypingEnvelope
		}{EventTyping, e})
	case MembershipEnvelope:
		if e.Event != EventJoin && e.Event != EventLeave {
			return nil, fmt.Errorf("membership envelope with event %q", e.Event)
		}
		return json.Marshal(struct {
			Type EventType `json:"type"`
			MembershipEnvelope
		}{e.Event, e})
	default:
		return nil, fmt.Errorf("unknown envelope type %T", env)
	}
}

// DecodeEnvelope parses a tagged payload into its concrete envelope type.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var header envelopeHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	switch header.Type {
	case EventChat:
		var e ChatEnvelope
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTyping:
		var e TypingEnvelope
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventJoin, EventLeave:
		var e MembershipEnvelope
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.Event = header.Type
		return e, nil
	default:
		return nil, fmt.Errorf("unknown envelope type %q", header.Type)
	}
}
