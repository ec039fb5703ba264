package services

import (
	"context"
	"fmt"

	"chat-core/internal/database"
	"chat-core/internal/models"

	"github.com/go-playground/validator/v10"
)

// RoomService owns room and participant bookkeeping. The real-time core
// consults it only at subscribe time; it has no concurrency of its own.
type RoomService struct {
	db       database.Database
	validate *validator.Validate
}

func NewRoomService(db database.Database) *RoomService {
	return &RoomService{db: db, validate: validator.New()}
}

func (s *RoomService) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, creatorID int) (*models.Room, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid room request: %w", err)
	}
	if req.Kind == models.RoomKindGroup && req.Name == "" {
		return nil, fmt.Errorf("group room requires a name")
	}

	return s.db.CreateRoom(ctx, req, creatorID)
}

func (s *RoomService) ListUserRooms(ctx context.Context, userID int) ([]*models.Room, error) {
	return s.db.ListUserRooms(ctx, userID)
}

func (s *RoomService) GetRoom(ctx context.Context, roomID int) (*models.Room, error) {
	return s.db.GetRoomByID(ctx, roomID)
}

func (s *RoomService) DeleteRoom(ctx context.Context, roomID, creatorID int) error {
	return s.db.DeleteRoom(ctx, roomID, creatorID)
}

func (s *RoomService) InviteUser(ctx context.Context, roomID, inviterID int, email string) error {
	room, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("room not found")
	}
	if room.Kind == models.RoomKindPrivate {
		return fmt.Errorf("cannot invite into a private room")
	}

	isMember, err := s.db.IsMember(ctx, inviterID, roomID)
	if err != nil || !isMember {
		return fmt.Errorf("forbidden - not authorized to invite to this room")
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found")
	}

	return s.db.AddMembership(ctx, user.ID, roomID)
}

func (s *RoomService) LeaveRoom(ctx context.Context, userID, roomID int) error {
	isMember, err := s.db.IsMember(ctx, userID, roomID)
	if err != nil {
		return fmt.Errorf("database error")
	}
	if !isMember {
		return fmt.Errorf("not a member of this room")
	}

	return s.db.RemoveMembership(ctx, userID, roomID)
}

func (s *RoomService) GetRoomMembers(ctx context.Context, roomID, userID int) ([]*models.Member, error) {
	isMember, err := s.db.IsMember(ctx, userID, roomID)
	if err != nil || !isMember {
		return nil, fmt.Errorf("forbidden")
	}

	return s.db.GetRoomMembers(ctx, roomID)
}

// IsParticipant answers the subscribe-time authorization check.
func (s *RoomService) IsParticipant(ctx context.Context, userID, roomID int) (bool, error) {
	return s.db.IsMember(ctx, userID, roomID)
}

// RoomMessages serves history re-fetch: after a reconnect clients recover
// anything that was published while they were away.
func (s *RoomService) RoomMessages(ctx context.Context, roomID, userID, limit int) ([]*models.Message, error) {
	isMember, err := s.db.IsMember(ctx, userID, roomID)
	if err != nil || !isMember {
		return nil, fmt.Errorf("forbidden")
	}

	return s.db.LoadRecentMessages(ctx, roomID, limit)
}

func (s *RoomService) UpdateMessageStatus(ctx context.Context, messageID int64, status string) error {
	if status != models.StatusDelivered && status != models.StatusRead {
		return fmt.Errorf("unknown status %q", status)
	}
	return s.db.UpdateMessageStatus(ctx, messageID, status)
}
