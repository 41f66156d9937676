package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loomchat/api/internal/models"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
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

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(users))
	for _, user := range users {
		items = append(items, map[string]interface{}{
			"id":        user.ID,
			"email":     user.Email,
			"name":      user.DisplayName,
			"role":      user.Role,
			"status":    user.Status,
			"createdAt": user.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type setUserStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required,oneof=active disabled pending"`
}

func (h HandlerSet) AdminSetUserStatus(c *gin.Context) {
	var req setUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	if err := h.users.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
