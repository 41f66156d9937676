package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"loomchat/api/internal/middleware"
	"loomchat/api/internal/models"
	"loomchat/api/internal/service"
)

type knowledgeResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	Title       string    `json:"title"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toKnowledgeResponse(doc models.KnowledgeDoc) knowledgeResponse {
	return knowledgeResponse{
		ID:          doc.ID,
		ProjectID:   doc.ProjectID,
		Title:       doc.Title,
		ContentType: doc.ContentType,
		SizeBytes:   doc.SizeBytes,
		CreatedAt:   doc.CreatedAt,
	}
}

func (h HandlerSet) UploadKnowledge(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	doc, err := h.knowledgeService.Upload(c.Request.Context(), service.KnowledgeUploadInput{
		UserID:    identity.UserID,
		ProjectID: c.Param("id"),
		Title:     c.PostForm("title"),
		File:      file,
		Header:    header,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"document": toKnowledgeResponse(doc)})
}

func (h HandlerSet) ListKnowledge(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	docs, err := h.knowledgeService.List(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]knowledgeResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toKnowledgeResponse(doc))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) DownloadKnowledge(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	doc, body, err := h.knowledgeService.Open(c.Request.Context(), c.Param("id"), identity.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", doc.ContentType)
	c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.log.Warn().Err(err).Str("doc_id", doc.ID).Msg("knowledge stream interrupted")
	}
}

func (h HandlerSet) DeleteKnowledge(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.knowledgeService.Delete(c.Request.Context(), c.Param("id"), identity.UserID); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
