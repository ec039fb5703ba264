package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatEnvelopeRoundTrip(t *testing.T) {
	req := require.New(t)

	original := ChatEnvelope{
		MessageID:  42,
		RoomID:     7,
		SenderID:   3,
		SenderName: "alice",
		Body:       "hello there",
		Timestamp:  "2026-09-01T10:00:00Z",
		Status:     StatusSent,
	}

	data, err := EncodeEnvelope(original)
	req.NoError(err)
	req.Contains(string(data), `"type":"CHAT"`)

	decoded, err := DecodeEnvelope(data)
	req.NoError(err)
	req.Equal(EventChat, decoded.Kind())
	req.Equal(7, decoded.Room())
	req.Equal(original, decoded)
}

func TestTypingEnvelopeRoundTrip(t *testing.T) {
	req := require.New(t)

	original := TypingEnvelope{RoomID: 5, SenderID: 2, SenderName: "bob"}

	data, err := EncodeEnvelope(original)
	req.NoError(err)

	decoded, err := DecodeEnvelope(data)
	req.NoError(err)
	req.Equal(EventTyping, decoded.Kind())
	req.Equal(original, decoded)
}

func TestMembershipEnvelopeRoundTrip(t *testing.T) {
	for _, event := range []EventType{EventJoin, EventLeave} {
		t.Run(string(event), func(t *testing.T) {
			req := require.New(t)

			original := MembershipEnvelope{
				Event:     event,
				RoomID:    9,
				UserID:    4,
				Username:  "carol",
				Timestamp: "2026-09-01T10:00:00Z",
			}

			data, err := EncodeEnvelope(original)
			req.NoError(err)

			decoded, err := DecodeEnvelope(data)
			req.NoError(err)
			req.Equal(event, decoded.Kind())
			req.Equal(original, decoded)
		})
	}
}

func TestEncodeMembershipRejectsBadEvent(t *testing.T) {
	req := require.New(t)

	_, err := EncodeEnvelope(MembershipEnvelope{Event: EventTyping, RoomID: 1, UserID: 1})
	req.Error(err)
}

func TestDecodeUnknownType(t *testing.T) {
	req := require.New(t)

	_, err := DecodeEnvelope([]byte(`{"type":"NOPE","room_id":1}`))
	req.Error(err)

	_, err = DecodeEnvelope([]byte(`not json`))
	req.Error(err)
}

func TestValidStatusTransition(t *testing.T) {
	req := require.New(t)

	req.True(ValidStatusTransition(StatusSent, StatusDelivered))
	req.True(ValidStatusTransition(StatusSent, StatusRead))
	req.True(ValidStatusTransition(StatusDelivered, StatusRead))

	// Status never regresses or stays put.
	req.False(ValidStatusTransition(StatusDelivered, StatusSent))
	req.False(ValidStatusTransition(StatusRead, StatusDelivered))
	req.False(ValidStatusTransition(StatusSent, StatusSent))

	req.False(ValidStatusTransition("bogus", StatusRead))
	req.False(ValidStatusTransition(StatusSent, "bogus"))
}

func TestStatusesBelow(t *testing.T) {
	req := require.New(t)

	// The sets feed conditional status updates: a write guarded by them can
	// never regress a status, no matter how updates interleave.
	req.ElementsMatch([]string{StatusSent, StatusDelivered}, StatusesBelow(StatusRead))
	req.ElementsMatch([]string{StatusSent}, StatusesBelow(StatusDelivered))
	req.Empty(StatusesBelow(StatusSent))
	req.Empty(StatusesBelow("bogus"))
}
