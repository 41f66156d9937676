package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loomchat/api/internal/models"
)

var ErrKnowledgeNotFound = errors.New("knowledge document not found")

type KnowledgeRepository struct {
	pool *pgxpool.Pool
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{pool: pool}
}

func (r *KnowledgeRepository) Create(ctx context.Context, doc models.KnowledgeDoc) error {
	const query = `
		INSERT INTO knowledge_docs (
			id, project_id, user_id, title, bucket, object_key, content_type, size_bytes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		doc.ID,
		doc.ProjectID,
		doc.UserID,
		doc.Title,
		doc.Bucket,
		doc.ObjectKey,
		doc.ContentType,
		doc.SizeBytes,
	)
	return err
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string, userID string) (models.KnowledgeDoc, error) {
	const query = `
		SELECT id, project_id, user_id, title, bucket, object_key, content_type, size_bytes, created_at, updated_at
		FROM knowledge_docs
		WHERE id = $1 AND user_id = $2
	`

	row := r.pool.QueryRow(ctx, query, id, userID)
	var doc models.KnowledgeDoc
	if err := row.Scan(
		&doc.ID,
		&doc.ProjectID,
		&doc.UserID,
		&doc.Title,
		&doc.Bucket,
		&doc.ObjectKey,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.KnowledgeDoc{}, ErrKnowledgeNotFound
		}
		return models.KnowledgeDoc{}, err
	}
	return doc, nil
}

func (r *KnowledgeRepository) ListByProject(ctx context.Context, projectID string, userID string) ([]models.KnowledgeDoc, error) {
	const query = `
		SELECT id, project_id, user_id, title, bucket, object_key, content_type, size_bytes, created_at, updated_at
		FROM knowledge_docs
		WHERE project_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, projectID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []models.KnowledgeDoc
	for rows.Next() {
		var doc models.KnowledgeDoc
		if err := rows.Scan(
			&doc.ID,
			&doc.ProjectID,
			&doc.UserID,
			&doc.Title,
			&doc.Bucket,
			&doc.ObjectKey,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *KnowledgeRepository) Delete(ctx context.Context, id string, userID string) error {
	const query = `DELETE FROM knowledge_docs WHERE id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrKnowledgeNotFound
	}
	return nil
}
