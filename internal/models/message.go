package models

import "time"

const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message is a persisted chat message. Rows are immutable once written
// except for the status column.
type Message struct {
	ID        int64     `json:"id"`
	RoomID    int       `json:"room_id"`
	SenderID  int       `json:"sender_id"`
	Body      string    `json:"body"`
	Username  string    `json:"username,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

var statusRank = map[string]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// ValidStatusTransition reports whether a message may move from one status
// to another. Status only advances, never regresses.
func ValidStatusTransition(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// StatusesBelow returns every status a message may hold before advancing to
// the given one, so stores can guard the transition in a single conditional
// write. Unknown statuses get an empty set.
func StatusesBelow(to string) []string {
	toRank, ok := statusRank[to]
	if !ok {
		return nil
	}
	var below []string
	for status, rank := range statusRank {
		if rank < toRank {
			below = append(below, status)
		}
	}
	return below
}
