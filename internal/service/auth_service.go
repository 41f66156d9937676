package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"loomchat/api/internal/config"
	"loomchat/api/internal/ids"
	"loomchat/api/internal/models"
	"loomchat/api/internal/repository"
	"loomchat/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrEmailTaken         = errors.New("email already registered")
)

// UserStore is the credential-store contract the auth service needs. The
// pgx-backed repository satisfies it; tests use function-field mocks.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
}

type AuthService struct {
	users UserStore
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewAuthService(users UserStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users: users,
		cfg:   cfg,
		log:   log,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// LoginResult carries the authenticated user and a freshly minted session
// token; the handler turns the token into a cookie.
type LoginResult struct {
	User  models.User
	Token string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (LoginResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, fmt.Errorf("email and password required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return LoginResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return LoginResult{}, err
	}

	passwordHash, err := security.HashPasswordWithCost(input.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		return LoginResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  input.DisplayName,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return LoginResult{}, err
	}

	token, err := security.IssueSessionToken(s.cfg.Security.JWTSecret, user.ID, user.Role, s.cfg.Security.SessionTTL)
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return LoginResult{User: user, Token: token}, nil
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	email := normalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a comparison so unknown emails cost the same as wrong
			// passwords.
			security.BurnVerification(input.Password)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return LoginResult{}, ErrUserDisabled
	}

	token, err := security.IssueSessionToken(s.cfg.Security.JWTSecret, user.ID, user.Role, s.cfg.Security.SessionTTL)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: user, Token: token}, nil
}

// SessionUser resolves the profile behind a validated identity for the
// session-status endpoint. A missing or non-active user reads as logged out.
func (s *AuthService) SessionUser(ctx context.Context, identity models.Identity) (models.User, bool, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	if user.Status != models.UserStatusActive {
		return models.User{}, false, nil
	}
	return user, true, nil
}

type ChangePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
}

func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}

	if !security.VerifyPassword(input.CurrentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	passwordHash, err := security.HashPasswordWithCost(input.NewPassword, s.cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

// Emails are stored and looked up lowercase; comparisons are effectively
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
