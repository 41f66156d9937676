package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loomchat/api/internal/middleware"
	"loomchat/api/internal/service"
)

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversationId"`
}

func (h HandlerSet) Chat(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	result, err := h.chatService.Send(c.Request.Context(), service.SendInput{
		Identity:       identity,
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":       result.Reply,
		"conversationId": result.ConversationID,
	})
}
