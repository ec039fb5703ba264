package database

import (
	"context"

	"chat-core/internal/models"
)

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, req *models.CreateRoomRequest, creatorID int) (*models.Room, error)
	GetRoomByID(ctx context.Context, id int) (*models.Room, error)
	ListUserRooms(ctx context.Context, userID int) ([]*models.Room, error)
	DeleteRoom(ctx context.Context, roomID, creatorID int) error
}

type MessageRepository interface {
	// SaveMessage writes the message and returns the stored row with its
	// assigned identity, server timestamp and initial status.
	SaveMessage(ctx context.Context, senderID, roomID int, body string) (*models.Message, error)
	LoadRecentMessages(ctx context.Context, roomID, limit int) ([]*models.Message, error)
	UpdateMessageStatus(ctx context.Context, messageID int64, status string) error
}

type MembershipRepository interface {
	AddMembership(ctx context.Context, userID, roomID int) error
	RemoveMembership(ctx context.Context, userID, roomID int) error
	IsMember(ctx context.Context, userID, roomID int) (bool, error)
	GetRoomMembers(ctx context.Context, roomID int) ([]*models.Member, error)
}

type Database interface {
	UserRepository
	RoomRepository
	MessageRepository
	MembershipRepository
	Close() error
}
