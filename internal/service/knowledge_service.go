package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/rs/zerolog"

	"loomchat/api/internal/config"
	"loomchat/api/internal/docsniff"
	"loomchat/api/internal/ids"
	"loomchat/api/internal/models"
	"loomchat/api/internal/repository"
	"loomchat/api/internal/storage"
)

const maxKnowledgeDocBytes = 10 << 20

type KnowledgeService struct {
	docs     *repository.KnowledgeRepository
	projects *repository.ProjectRepository
	store    *storage.ObjectStore
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewKnowledgeService(
	docs *repository.KnowledgeRepository,
	projects *repository.ProjectRepository,
	store *storage.ObjectStore,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *KnowledgeService {
	return &KnowledgeService{
		docs:     docs,
		projects: projects,
		store:    store,
		cfg:      cfg,
		log:      log,
	}
}

type KnowledgeUploadInput struct {
	UserID    string
	ProjectID string
	Title     string
	File      multipart.File
	Header    *multipart.FileHeader
}

func (s *KnowledgeService) Upload(ctx context.Context, input KnowledgeUploadInput) (models.KnowledgeDoc, error) {
	if input.File == nil || input.Header == nil {
		return models.KnowledgeDoc{}, errors.New("invalid file payload")
	}
	if input.Header.Size > maxKnowledgeDocBytes {
		return models.KnowledgeDoc{}, fmt.Errorf("document exceeds %d bytes", maxKnowledgeDocBytes)
	}

	// Project must exist and belong to the caller before we touch storage.
	if _, err := s.projects.GetByID(ctx, input.ProjectID, input.UserID); err != nil {
		return models.KnowledgeDoc{}, err
	}

	data, err := io.ReadAll(io.LimitReader(input.File, maxKnowledgeDocBytes+1))
	if err != nil {
		return models.KnowledgeDoc{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return models.KnowledgeDoc{}, errors.New("empty file")
	}
	if len(data) > maxKnowledgeDocBytes {
		return models.KnowledgeDoc{}, fmt.Errorf("document exceeds %d bytes", maxKnowledgeDocBytes)
	}

	result, err := docsniff.Detect(data)
	if err != nil {
		return models.KnowledgeDoc{}, fmt.Errorf("detect type: %w", err)
	}

	declared := docsniff.MimeTypeFromHTTP(http.Header(input.Header.Header))
	if declared != "" && !docsniff.Compatible(declared, result.MIME) {
		return models.KnowledgeDoc{}, fmt.Errorf("content type mismatch: declared %s, actual %s", declared, result.MIME)
	}

	docID := ids.New()
	objectKey := buildObjectKey(docID, result.Ext)

	if err := s.store.Put(ctx, objectKey, bytes.NewReader(data), int64(len(data)), result.MIME); err != nil {
		return models.KnowledgeDoc{}, err
	}

	title := input.Title
	if title == "" {
		title = input.Header.Filename
	}

	doc := models.KnowledgeDoc{
		ID:          docID,
		ProjectID:   input.ProjectID,
		UserID:      input.UserID,
		Title:       title,
		Bucket:      s.store.KnowledgeBucket(),
		ObjectKey:   objectKey,
		ContentType: result.MIME,
		SizeBytes:   int64(len(data)),
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := s.docs.Create(ctx, doc); err != nil {
		// Best effort: do not orphan the stored object when metadata fails.
		if rmErr := s.store.Remove(ctx, objectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("orphan cleanup failed")
		}
		return models.KnowledgeDoc{}, fmt.Errorf("save metadata: %w", err)
	}

	return doc, nil
}

// List returns the metadata rows for a project the caller owns.
func (s *KnowledgeService) List(ctx context.Context, projectID string, userID string) ([]models.KnowledgeDoc, error) {
	if _, err := s.projects.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.docs.ListByProject(ctx, projectID, userID)
}

// Open returns the stored body for streaming back to the client.
func (s *KnowledgeService) Open(ctx context.Context, docID string, userID string) (models.KnowledgeDoc, io.ReadCloser, error) {
	doc, err := s.docs.GetByID(ctx, docID, userID)
	if err != nil {
		return models.KnowledgeDoc{}, nil, err
	}

	body, err := s.store.Get(ctx, doc.ObjectKey)
	if err != nil {
		return models.KnowledgeDoc{}, nil, err
	}
	return doc, body, nil
}

func (s *KnowledgeService) Delete(ctx context.Context, docID string, userID string) error {
	doc, err := s.docs.GetByID(ctx, docID, userID)
	if err != nil {
		return err
	}

	if err := s.docs.Delete(ctx, docID, userID); err != nil {
		return err
	}

	if err := s.store.Remove(ctx, doc.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("object_key", doc.ObjectKey).Msg("object removal failed")
	}
	return nil
}

func buildObjectKey(docID string, ext string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join(datePrefix, fmt.Sprintf("%s.%s", docID, ext))
}
