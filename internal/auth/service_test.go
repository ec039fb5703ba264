package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chat-core/internal/config"
	"chat-core/internal/database"
	"chat-core/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeUserDB implements only the user methods; everything else panics via the
// embedded nil interface, which no auth path should ever reach.
type fakeUserDB struct {
	database.Database
	users  map[string]*models.User
	nextID int
}

func newFakeUserDB() *fakeUserDB {
	return &fakeUserDB{users: make(map[string]*models.User)}
}

func (f *fakeUserDB) CreateUser(_ context.Context, req *models.RegisterRequest) (*models.User, error) {
	if _, exists := f.users[req.Email]; exists {
		return nil, fmt.Errorf("email already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	f.nextID++
	user := &models.User{
		ID:           f.nextID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	f.users[req.Email] = user
	return user, nil
}

func (f *fakeUserDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserDB) GetUserByID(_ context.Context, id int) (*models.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:    []byte("test-secret"),
			ExpiresIn: time.Hour,
		},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := NewService(newFakeUserDB(), testConfig())

	registered, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	req.NoError(err)
	req.NotEmpty(registered.Token)
	req.Equal("alice", registered.User.Username)

	loggedIn, err := svc.Login(ctx, &models.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	req.NoError(err)
	req.NotEmpty(loggedIn.Token)
	req.Empty(loggedIn.User.PasswordHash)

	_, err = svc.Login(ctx, &models.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	req.Error(err)
}

func TestRegisterValidatesInput(t *testing.T) {
	req := require.New(t)
	svc := NewService(newFakeUserDB(), testConfig())

	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "al", // too short
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	req.Error(err)

	_, err = svc.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "not-an-email",
		Password: "correct-horse",
	})
	req.Error(err)

	_, err = svc.Register(context.Background(), &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	req.Error(err)
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := NewService(newFakeUserDB(), testConfig())

	registered, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	req.NoError(err)

	user, err := svc.GetUserFromToken(ctx, registered.Token)
	req.NoError(err)
	req.Equal(registered.User.ID, user.ID)
	req.Equal("alice", user.Username)

	_, err = svc.GetUserFromToken(ctx, "garbage.token.here")
	req.Error(err)
}

func TestTokenRejectedAcrossSecrets(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newFakeUserDB()
	svc := NewService(db, testConfig())

	registered, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	req.NoError(err)

	other := NewService(db, &config.Config{
		JWT: config.JWTConfig{Secret: []byte("different-secret"), ExpiresIn: time.Hour},
	})
	_, err = other.GetUserFromToken(ctx, registered.Token)
	req.Error(err)
}

func TestIsPublicPath(t *testing.T) {
	req := require.New(t)

	req.True(IsPublicPath("/login"))
	req.True(IsPublicPath("/register"))
	req.True(IsPublicPath("/ws"))
	req.False(IsPublicPath("/rooms"))
	req.False(IsPublicPath("/presence"))
}
