package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"loomchat/api/internal/config"
	"loomchat/api/internal/models"
	"loomchat/api/internal/security"
)

// IdentityKey is where the validated identity lives in the gin context.
const IdentityKey = "identity"

// Auth validates the session token carried in the Authorization header or
// the session cookie. Validation is stateless: signature and expiry only, no
// store round-trip, so a role change takes effect when the token rolls over.
//
// Every failure looks identical to the client. The specific cause is logged
// server-side; API callers get a bare 401 and browser navigations get a
// redirect to sign-in with the original destination preserved.
func Auth(cfg *config.AppConfig, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c, cfg.Security.CookieName)
		if tokenStr == "" {
			reject(c, cfg, log, "missing token")
			return
		}

		identity, err := security.ParseSessionToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			reject(c, cfg, log, err.Error())
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

func reject(c *gin.Context, cfg *config.AppConfig, log zerolog.Logger, cause string) {
	log.Debug().
		Str("path", c.Request.URL.Path).
		Str("cause", cause).
		Msg("session rejected")

	if isBrowserNavigation(c) {
		callback := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			callback += "?" + c.Request.URL.RawQuery
		}
		target := cfg.Security.SignInPath + "?callbackUrl=" + url.QueryEscape(callback)
		c.Abort()
		c.Redirect(http.StatusFound, target)
		return
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
}

func isBrowserNavigation(c *gin.Context) bool {
	return c.Request.Method == http.MethodGet &&
		strings.Contains(c.GetHeader("Accept"), "text/html")
}

// CurrentIdentity retrieves the identity attached by Auth.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	val, exists := c.Get(IdentityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := val.(models.Identity)
	return identity, ok
}
