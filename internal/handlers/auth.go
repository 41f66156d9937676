package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loomchat/api/internal/middleware"
	"loomchat/api/internal/models"
	"loomchat/api/internal/security"
	"loomchat/api/internal/service"
)

func (h HandlerSet) parseIdentity(tokenStr string) (models.Identity, error) {
	return security.ParseSessionToken(tokenStr, h.cfg.Security.JWTSecret)
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.DisplayName,
		Role:  string(user.Role),
	}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    toUserResponse(result.User),
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    toUserResponse(result.User),
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SessionStatus reports the current session without requiring one: a missing
// or invalid token reads as logged out with a 200, never an error. The
// client-side synchronizer polls this endpoint.
func (h HandlerSet) SessionStatus(c *gin.Context) {
	loggedOut := gin.H{"authenticated": false, "user": nil}

	tokenStr, err := c.Cookie(h.cfg.Security.CookieName)
	if err != nil || tokenStr == "" {
		if authHeader := c.GetHeader("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		c.JSON(http.StatusOK, loggedOut)
		return
	}

	identity, err := h.parseIdentity(tokenStr)
	if err != nil {
		c.JSON(http.StatusOK, loggedOut)
		return
	}

	user, active, err := h.authService.SessionUser(c.Request.Context(), identity)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !active {
		c.JSON(http.StatusOK, loggedOut)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          toUserResponse(user),
		"expiresAt":     identity.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:          identity.UserID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// setSessionCookie writes the signed session token. HttpOnly and SameSite=Lax
// always; Secure only in production so local development over http works.
// The domain comes from config so every environment sets the cookie for the
// hostname it actually serves.
func (h HandlerSet) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		h.cfg.Security.CookieName,
		token,
		int(h.cfg.Security.SessionTTL.Seconds()),
		"/",
		h.cfg.Security.CookieDomain,
		h.cfg.IsProduction(),
		true,
	)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		h.cfg.Security.CookieName,
		"",
		-1,
		"/",
		h.cfg.Security.CookieDomain,
		h.cfg.IsProduction(),
		true,
	)
}
