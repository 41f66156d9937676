package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"loomchat/api/internal/apperror"
	"loomchat/api/internal/llm"
	"loomchat/api/internal/repository"
	"loomchat/api/internal/service"
)

// fail maps an error to its client-facing response. Raw store and provider
// messages stay in the server log; clients see only the safe message for
// the error's kind.
func (h HandlerSet) fail(c *gin.Context, err error) {
	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		h.respond(c, apperror.Upstream(upstreamStatus(provErr.Kind), provErr.UserMessage()))
		return
	}

	var appErr *apperror.Error
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		appErr = apperror.Authentication("unauthenticated")
	case errors.Is(err, service.ErrInvalidCredentials):
		appErr = apperror.Authentication("invalid credentials")
	case errors.Is(err, service.ErrUserDisabled):
		appErr = apperror.Authorization("account disabled")
	case errors.Is(err, service.ErrEmailTaken):
		appErr = apperror.Conflict("email already registered")
	case errors.Is(err, repository.ErrConversationNotFound),
		errors.Is(err, repository.ErrProjectNotFound),
		errors.Is(err, repository.ErrKnowledgeNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		appErr = apperror.NotFound("not found")
	default:
		appErr = apperror.From(err)
		if appErr.Kind == apperror.KindInfrastructure {
			h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		}
	}

	h.respond(c, appErr)
}

func (h HandlerSet) respond(c *gin.Context, appErr *apperror.Error) {
	body := gin.H{"error": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.JSON(appErr.Status, body)
}

func upstreamStatus(kind llm.FailureKind) int {
	switch kind {
	case llm.FailureRateLimited, llm.FailureQuota:
		return http.StatusTooManyRequests
	case llm.FailureTimeout:
		return http.StatusGatewayTimeout
	case llm.FailureContextTooLong:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
