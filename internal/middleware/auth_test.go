package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loomchat/api/internal/config"
	"loomchat/api/internal/models"
	"loomchat/api/internal/security"
)

func authTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:  "test-secret",
			SessionTTL: time.Hour,
			CookieName: "loomchat_session",
			SignInPath: "/sign-in",
		},
	}
}

func authTestRouter(cfg *config.AppConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	protected := router.Group("/protected")
	protected.Use(Auth(cfg, zerolog.Nop()))
	protected.GET("/resource", func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"userId": identity.UserID})
	})
	protected.GET("/admin", RequireRoles(models.UserRoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestAuth_MissingToken(t *testing.T) {
	router := authTestRouter(authTestConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/resource", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
}

func TestAuth_ValidCookie(t *testing.T) {
	cfg := authTestConfig()
	token, err := security.IssueSessionToken(cfg.Security.JWTSecret, "user-1", models.UserRoleUser, time.Hour)
	require.NoError(t, err)

	router := authTestRouter(cfg)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/resource", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Security.CookieName, Value: token})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestAuth_ValidBearer(t *testing.T) {
	cfg := authTestConfig()
	token, err := security.IssueSessionToken(cfg.Security.JWTSecret, "user-2", models.UserRoleUser, time.Hour)
	require.NoError(t, err)

	router := authTestRouter(cfg)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-2")
}

func TestAuth_ExpiredToken(t *testing.T) {
	cfg := authTestConfig()
	token, err := security.IssueSessionToken(cfg.Security.JWTSecret, "user-1", models.UserRoleUser, -time.Minute)
	require.NoError(t, err)

	router := authTestRouter(cfg)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/resource", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Security.CookieName, Value: token})
	router.ServeHTTP(w, req)

	// Expired reads exactly like missing: no hint which check failed.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
}

func TestAuth_ForgedToken(t *testing.T) {
	forged, err := security.IssueSessionToken("attacker-secret", "user-1", models.UserRoleAdmin, time.Hour)
	require.NoError(t, err)

	router := authTestRouter(authTestConfig())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/resource", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_BrowserNavigationRedirectsWithCallback(t *testing.T) {
	router := authTestRouter(authTestConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/resource?tab=settings", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	require.NotEmpty(t, location)

	parsed, err := url.Parse(location)
	require.NoError(t, err)
	assert.Equal(t, "/sign-in", parsed.Path)
	assert.Equal(t, "/protected/resource?tab=settings", parsed.Query().Get("callbackUrl"))
}

func TestRequireRoles(t *testing.T) {
	cfg := authTestConfig()
	router := authTestRouter(cfg)

	userToken, err := security.IssueSessionToken(cfg.Security.JWTSecret, "user-1", models.UserRoleUser, time.Hour)
	require.NoError(t, err)
	adminToken, err := security.IssueSessionToken(cfg.Security.JWTSecret, "admin-1", models.UserRoleAdmin, time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
