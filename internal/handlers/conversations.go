package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"loomchat/api/internal/middleware"
	"loomchat/api/internal/models"
)

type conversationResponse struct {
	ID        string    `json:"id"`
	ProjectID *string   `json:"projectId,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toConversationResponse(conv models.Conversation) conversationResponse {
	return conversationResponse{
		ID:        conv.ID,
		ProjectID: conv.ProjectID,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}

func (h HandlerSet) ListConversations(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	limit := 50
	offset := 0
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	convs, err := h.conversations.ListByUser(c.Request.Context(), identity.UserID, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		items = append(items, toConversationResponse(conv))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetConversation(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conv, err := h.conversations.GetByID(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	msgs, err := h.conversations.ListMessages(c.Request.Context(), conv.ID, h.cfg.Provider.MaxTurns)
	if err != nil {
		h.fail(c, err)
		return
	}

	messages := make([]messageResponse, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, messageResponse{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": toConversationResponse(conv),
		"messages":     messages,
	})
}

type renameConversationRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

func (h HandlerSet) RenameConversation(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req renameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	if err := h.conversations.Rename(c.Request.Context(), c.Param("id"), identity.UserID, req.Title); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h HandlerSet) DeleteConversation(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.conversations.Delete(c.Request.Context(), c.Param("id"), identity.UserID); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
