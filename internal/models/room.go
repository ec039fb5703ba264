package models

import "time"

const (
	RoomKindPrivate = "private"
	RoomKindGroup   = "group"
)

type Room struct {
	ID        int       `json:"id"`
	Name      string    `json:"name,omitempty"`
	Kind      string    `json:"kind"`
	CreatorID int       `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRoomRequest struct {
	Name string `json:"name" validate:"max=100"`
	Kind string `json:"kind" validate:"required,oneof=private group"`
	// ParticipantIDs lists the other members. A private room takes exactly
	// one; the creator is always added.
	ParticipantIDs []int `json:"participant_ids" validate:"required,min=1,dive,gt=0"`
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type Member struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
