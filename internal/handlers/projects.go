package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"loomchat/api/internal/ids"
	"loomchat/api/internal/middleware"
	"loomchat/api/internal/models"
)

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProjectResponse(project models.Project) projectResponse {
	return projectResponse{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

type projectRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description" binding:"max=2000"`
}

func (h HandlerSet) CreateProject(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	project := models.Project{
		ID:          ids.New(),
		UserID:      identity.UserID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"project": toProjectResponse(project)})
}

func (h HandlerSet) ListProjects(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	projects, err := h.projects.ListByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for _, project := range projects {
		items = append(items, toProjectResponse(project))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetProject(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": toProjectResponse(project)})
}

func (h HandlerSet) UpdateProject(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}

	project := models.Project{
		ID:          c.Param("id"),
		UserID:      identity.UserID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h HandlerSet) DeleteProject(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.projects.Delete(c.Request.Context(), c.Param("id"), identity.UserID); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
