package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loomchat/api/internal/config"
	"loomchat/api/internal/models"
	"loomchat/api/internal/repository"
	"loomchat/api/internal/security"
)

// mockUserStore implements UserStore with overridable functions.
type mockUserStore struct {
	createFn         func(ctx context.Context, user models.User) error
	findByEmailFn    func(ctx context.Context, email string) (models.User, error)
	getByIDFn        func(ctx context.Context, id string) (models.User, error)
	updatePasswordFn func(ctx context.Context, id string, hash []byte) error
}

func (m *mockUserStore) Create(ctx context.Context, user models.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:  "test-secret",
			SessionTTL: 720 * time.Hour,
			BcryptCost: 4, // fast for tests
		},
	}
}

func activeUser(t *testing.T, email, password string) models.User {
	t.Helper()
	hash, err := security.HashPasswordWithCost(password, 4)
	require.NoError(t, err)
	return models.User{
		ID:           "user-1",
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test User",
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}
}

func TestLogin_Success(t *testing.T) {
	user := activeUser(t, "u@test.com", "right-password")
	store := &mockUserStore{
		findByEmailFn: func(ctx context.Context, email string) (models.User, error) {
			assert.Equal(t, "u@test.com", email)
			return user, nil
		},
	}

	svc := NewAuthService(store, testConfig(), zerolog.Nop())
	result, err := svc.Login(context.Background(), LoginInput{Email: "U@Test.Com", Password: "right-password"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)

	// The minted token decodes back to the same subject.
	identity, err := security.ParseSessionToken(result.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
}

func TestLogin_WrongPassword(t *testing.T) {
	user := activeUser(t, "u@test.com", "right-password")
	store := &mockUserStore{
		findByEmailFn: func(ctx context.Context, email string) (models.User, error) {
			return user, nil
		},
	}

	svc := NewAuthService(store, testConfig(), zerolog.Nop())
	_, err := svc.Login(context.Background(), LoginInput{Email: "u@test.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := NewAuthService(&mockUserStore{}, testConfig(), zerolog.Nop())
	_, err := svc.Login(context.Background(), LoginInput{Email: "nobody@test.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DisabledUser(t *testing.T) {
	user := activeUser(t, "u@test.com", "right-password")
	user.Status = models.UserStatusDisabled
	store := &mockUserStore{
		findByEmailFn: func(ctx context.Context, email string) (models.User, error) {
			return user, nil
		},
	}

	svc := NewAuthService(store, testConfig(), zerolog.Nop())
	_, err := svc.Login(context.Background(), LoginInput{Email: "u@test.com", Password: "right-password"})
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestLogin_DisabledUserWrongPasswordStillInvalidCredentials(t *testing.T) {
	// Password is checked before status so a wrong password never reveals
	// that the account is disabled.
	user := activeUser(t, "u@test.com", "right-password")
	user.Status = models.UserStatusDisabled
	store := &mockUserStore{
		findByEmailFn: func(ctx context.Context, email string) (models.User, error) {
			return user, nil
		},
	}

	svc := NewAuthService(store, testConfig(), zerolog.Nop())
	_, err := svc.Login(context.Background(), LoginInput{Email: "u@test.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_NormalizesEmailAndDefaults(t *testing.T) {
	var created models.User
	store := &mockUserStore{
		createFn: func(ctx context.Context, user models.User) error {
			created = user
			return nil
		},
	}

	svc := NewAuthService(store, testConfig(), zerolog.Nop())
	result, err := svc.Register(context.Background(), RegisterInput{
		Email:       "  New@User.COM ",
		Password:    "long-enough-pw",
		DisplayName: "New User",
	})
	require.NoError(t, err)

	assert.Equal(t, "new@user.com", created.Email)
	assert.Equal(t, models.UserRoleUser, created.Role)
	assert.Equal(t, models.UserStatusActive, created.Status)
	assert.NotEmpty(t, created.ID)
	assert.True(t, security.VerifyPassword("long-enough-pw", created.PasswordHash))
	assert.NotEmpty(t, result.Token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := &mockUserStore{
		findByEmailFn: func(ctx context.Context, email string) (models.User, error) {
			return models.User{ID: "existing"}, nil
		},
	}

	svc := NewAuthService(store, testConfig(), zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:       "taken@test.com",
		Password:    "long-enough-pw",
		DisplayName: "Dup",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSessionUser_MissingOrInactiveReadsLoggedOut(t *testing.T) {
	svc := NewAuthService(&mockUserStore{}, testConfig(), zerolog.Nop())

	_, active, err := svc.SessionUser(context.Background(), models.Identity{UserID: "ghost"})
	require.NoError(t, err)
	assert.False(t, active)

	disabled := activeUser(t, "u@test.com", "pw-password")
	disabled.Status = models.UserStatusDisabled
	svc = NewAuthService(&mockUserStore{
		getByIDFn: func(ctx context.Context, id string) (models.User, error) {
			return disabled, nil
		},
	}, testConfig(), zerolog.Nop())

	_, active, err = svc.SessionUser(context.Background(), models.Identity{UserID: "user-1"})
	require.NoError(t, err)
	assert.False(t, active)
}

func TestChangePassword(t *testing.T) {
	user := activeUser(t, "u@test.com", "old-password")
	var updatedHash []byte
	store := &mockUserStore{
		getByIDFn: func(ctx context.Context, id string) (models.User, error) {
			return user, nil
		},
		updatePasswordFn: func(ctx context.Context, id string, hash []byte) error {
			updatedHash = hash
			return nil
		},
	}

	svc := NewAuthService(store, testConfig(), zerolog.Nop())

	err := svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:          "user-1",
		CurrentPassword: "wrong",
		NewPassword:     "new-password-1",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), ChangePasswordInput{
		UserID:          "user-1",
		CurrentPassword: "old-password",
		NewPassword:     "new-password-1",
	})
	require.NoError(t, err)
	assert.True(t, security.VerifyPassword("new-password-1", updatedHash))
}
