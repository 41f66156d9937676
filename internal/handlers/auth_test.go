package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loomchat/api/internal/config"
	"loomchat/api/internal/models"
	"loomchat/api/internal/repository"
	"loomchat/api/internal/security"
	"loomchat/api/internal/service"
)

type stubUserStore struct {
	users map[string]models.User // keyed by email
}

func (s *stubUserStore) Create(ctx context.Context, user models.User) error {
	s.users[user.Email] = user
	return nil
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *stubUserStore) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	return nil
}

func handlerTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:  "test-secret",
			SessionTTL: 720 * time.Hour,
			BcryptCost: 4,
			CookieName: "loomchat_session",
			SignInPath: "/sign-in",
		},
	}
}

func authHandlerRouter(t *testing.T) (*gin.Engine, *stubUserStore, *config.AppConfig) {
	t.Helper()

	cfg := handlerTestConfig()
	hash, err := security.HashPasswordWithCost("right-password", 4)
	require.NoError(t, err)

	store := &stubUserStore{users: map[string]models.User{
		"u@test.com": {
			ID:           "1",
			Email:        "u@test.com",
			PasswordHash: hash,
			DisplayName:  "Test User",
			Role:         models.UserRoleUser,
			Status:       models.UserStatusActive,
		},
	}}

	h := HandlerSet{
		log:         zerolog.Nop(),
		cfg:         cfg,
		authService: service.NewAuthService(store, cfg, zerolog.Nop()),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	router.GET("/session", h.SessionStatus)
	return router, store, cfg
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	resp := w.Result()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLogin_SuccessSetsSessionCookie(t *testing.T) {
	router, _, cfg := authHandlerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"u@test.com","password":"right-password"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"id":"1"`)
	assert.NotContains(t, w.Body.String(), "PasswordHash")
	assert.NotContains(t, w.Body.String(), "passwordHash")

	cookie := sessionCookie(t, w, cfg.Security.CookieName)
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure, "secure flag is off outside production")

	// The cookie decodes back to the user's id.
	identity, err := security.ParseSessionToken(cookie.Value, cfg.Security.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "1", identity.UserID)
}

func TestLogin_WrongPassword401(t *testing.T) {
	router, _, cfg := authHandlerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"u@test.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, w.Body.String())
	assert.Nil(t, sessionCookie(t, w, cfg.Security.CookieName))
}

func TestLogin_InvalidPayloadReturnsFieldErrors(t *testing.T) {
	router, _, _ := authHandlerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"not-an-email","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid request"`)
	assert.Contains(t, w.Body.String(), `"email":"must be a valid email address"`)
	assert.Contains(t, w.Body.String(), `"password":"is required"`)

	// Validator internals never reach the client.
	assert.NotContains(t, w.Body.String(), "Key:")
	assert.NotContains(t, w.Body.String(), "loginRequest")
	assert.NotContains(t, w.Body.String(), "tag")
}

func TestLogin_MalformedJSONBody(t *testing.T) {
	router, _, _ := authHandlerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request body"}`, w.Body.String())
}

func TestLogin_UnknownEmailSameResponse(t *testing.T) {
	router, _, _ := authHandlerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"nobody@test.com","password":"whatever"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// Indistinguishable from a wrong password.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, w.Body.String())
}

func TestLogout_ClearsCookie(t *testing.T) {
	router, _, cfg := authHandlerRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	cookie := sessionCookie(t, w, cfg.Security.CookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0, "logout must expire the cookie")
}

func TestSessionStatus(t *testing.T) {
	router, _, cfg := authHandlerRouter(t)

	// Without a cookie: logged out, still 200.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	// With a valid cookie: authenticated with the user payload.
	token, err := security.IssueSessionToken(cfg.Security.JWTSecret, "1", models.UserRoleUser, time.Hour)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Security.CookieName, Value: token})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), `"id":"1"`)
	assert.Contains(t, w.Body.String(), `"expiresAt"`)

	// With an expired cookie: logged out, not an error.
	expired, err := security.IssueSessionToken(cfg.Security.JWTSecret, "1", models.UserRoleUser, -time.Minute)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/session", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Security.CookieName, Value: expired})
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}
