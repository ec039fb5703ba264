package database

import (
	"context"
	"errors"
	"fmt"

	"chat-core/internal/models"
	"chat-core/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation
func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, username, email, created_at`

	user := &models.User{PasswordHash: string(hash)}
	err = db.pool.QueryRow(ctx, query, req.Username, req.Email, string(hash)).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, email, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Room Repository Implementation
//
// A private room is unique per unordered pair of participants. The pair_key
// column holds the normalized "min:max" user id pair and carries a unique
// constraint, so two racing creation requests resolve to one row: the loser
// of the race gets the existing room back instead of an error.
func (db *PostgresDB) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, creatorID int) (*models.Room, error) {
	var pairKey *string
	if req.Kind == models.RoomKindPrivate {
		if len(req.ParticipantIDs) != 1 {
			return nil, fmt.Errorf("private room requires exactly one other participant")
		}
		key := privatePairKey(creatorID, req.ParticipantIDs[0])
		pairKey = &key
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	room := &models.Room{}
	insert := `
		INSERT INTO rooms (name, kind, creator_id, pair_key, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id, name, kind, creator_id, created_at`

	err = tx.QueryRow(ctx, insert, req.Name, req.Kind, creatorID, pairKey).Scan(
		&room.ID, &room.Name, &room.Kind, &room.CreatorID, &room.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict on the pair key: the private room already exists.
		existing := `SELECT id, name, kind, creator_id, created_at FROM rooms WHERE pair_key = $1`
		if err := tx.QueryRow(ctx, existing, *pairKey).Scan(
			&room.ID, &room.Name, &room.Kind, &room.CreatorID, &room.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to load existing private room: %w", err)
		}
		return room, tx.Commit(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	members := append([]int{creatorID}, req.ParticipantIDs...)
	for _, userID := range members {
		if _, err := tx.Exec(ctx,
			`INSERT INTO memberships (user_id, room_id) VALUES ($1, $2) ON CONFLICT (user_id, room_id) DO NOTHING`,
			userID, room.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to add participant %d: %w", userID, err)
		}
	}

	return room, tx.Commit(ctx)
}

func privatePairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (db *PostgresDB) GetRoomByID(ctx context.Context, id int) (*models.Room, error) {
	query := `SELECT id, name, kind, creator_id, created_at FROM rooms WHERE id = $1`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.Kind, &room.CreatorID, &room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) ListUserRooms(ctx context.Context, userID int) ([]*models.Room, error) {
	query := `
		SELECT r.id, r.name, r.kind, r.creator_id, r.created_at
		FROM rooms r
		JOIN memberships m ON r.id = m.room_id
		WHERE m.user_id = $1
		ORDER BY r.name`

	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room := &models.Room{}
		if err := rows.Scan(&room.ID, &room.Name, &room.Kind, &room.CreatorID, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

func (db *PostgresDB) DeleteRoom(ctx context.Context, roomID, creatorID int) error {
	// Check ownership first
	var currentCreatorID int
	err := db.pool.QueryRow(ctx, "SELECT creator_id FROM rooms WHERE id = $1", roomID).Scan(&currentCreatorID)
	if err != nil {
		return fmt.Errorf("room not found: %w", err)
	}

	if currentCreatorID != creatorID {
		return fmt.Errorf("forbidden - not the room creator")
	}

	// Delete in transaction
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM memberships WHERE room_id = $1", roomID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM messages WHERE room_id = $1", roomID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM rooms WHERE id = $1", roomID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Message Repository Implementation
func (db *PostgresDB) SaveMessage(ctx context.Context, senderID, roomID int, body string) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, room_id, body, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`

	msg := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Body:     body,
		Status:   models.StatusSent,
	}
	err := db.pool.QueryRow(ctx, query, senderID, roomID, body, models.StatusSent).Scan(
		&msg.ID, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

func (db *PostgresDB) LoadRecentMessages(ctx context.Context, roomID, limit int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.room_id, m.body, m.status, u.username, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.id DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RoomID, &msg.Body, &msg.Status, &msg.Username, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// UpdateMessageStatus advances the status in one conditional write: the row
// only changes while it still holds a lower-ranked status, so two concurrent
// updates cannot interleave into a regression.
func (db *PostgresDB) UpdateMessageStatus(ctx context.Context, messageID int64, status string) error {
	tag, err := db.pool.Exec(ctx,
		"UPDATE messages SET status = $2 WHERE id = $1 AND status = ANY($3)",
		messageID, status, models.StatusesBelow(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := db.pool.QueryRow(ctx, "SELECT status FROM messages WHERE id = $1", messageID).Scan(&current); err != nil {
		return fmt.Errorf("message not found: %w", err)
	}
	return fmt.Errorf("invalid status transition %s -> %s", current, status)
}

// Membership Repository Implementation
func (db *PostgresDB) AddMembership(ctx context.Context, userID, roomID int) error {
	query := `
		INSERT INTO memberships (user_id, room_id) VALUES ($1, $2)
		ON CONFLICT (user_id, room_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, userID, roomID)
	return err
}

func (db *PostgresDB) RemoveMembership(ctx context.Context, userID, roomID int) error {
	query := `DELETE FROM memberships WHERE user_id = $1 AND room_id = $2`
	_, err := db.pool.Exec(ctx, query, userID, roomID)
	return err
}

func (db *PostgresDB) IsMember(ctx context.Context, userID, roomID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM memberships WHERE user_id = $1 AND room_id = $2)`

	var exists bool
	err := db.pool.QueryRow(ctx, query, userID, roomID).Scan(&exists)
	return exists, err
}

func (db *PostgresDB) GetRoomMembers(ctx context.Context, roomID int) ([]*models.Member, error) {
	query := `
		SELECT u.id, u.username, u.email
		FROM memberships m
		JOIN users u ON m.user_id = u.id
		WHERE m.room_id = $1
		ORDER BY u.username`

	rows, err := db.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := rows.Scan(&member.ID, &member.Username, &member.Email); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, nil
}
