package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loomchat/api/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) Create(ctx context.Context, conv models.Conversation) error {
	const query = `
		INSERT INTO conversations (
			id, user_id, project_id, title, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.UserID,
		conv.ProjectID,
		conv.Title,
	)
	return err
}

// GetByID is owner-scoped: a conversation belonging to another user is
// reported as not found, never as forbidden.
func (r *ConversationRepository) GetByID(ctx context.Context, id string, userID string) (models.Conversation, error) {
	const query = `
		SELECT id, user_id, project_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`

	row := r.pool.QueryRow(ctx, query, id, userID)
	var conv models.Conversation
	if err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.ProjectID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Conversation{}, ErrConversationNotFound
		}
		return models.Conversation{}, err
	}
	return conv, nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Conversation, error) {
	const query = `
		SELECT id, user_id, project_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.ProjectID,
			&conv.Title,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	const query = `
		SELECT id, conversation_id, role, content, created_at
		FROM (
			SELECT id, conversation_id, role, content, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// AppendMessages writes the given messages and bumps the conversation's
// updated_at in one transaction, so a chat turn lands atomically.
func (r *ConversationRepository) AppendMessages(ctx context.Context, conversationID string, msgs []models.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insert = `
		INSERT INTO messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, msg := range msgs {
		createdAt := msg.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.Exec(ctx, insert, msg.ID, conversationID, msg.Role, msg.Content, createdAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	const touch = `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, touch, conversationID); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *ConversationRepository) Rename(ctx context.Context, id string, userID string, title string) error {
	const query = `
		UPDATE conversations SET title = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	cmd, err := r.pool.Exec(ctx, query, id, userID, title)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, id string, userID string) error {
	const query = `DELETE FROM conversations WHERE id = $1 AND user_id = $2`
	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// DeleteEmptyBefore removes conversations with no messages that were created
// before the cutoff. Used by the maintenance job.
func (r *ConversationRepository) DeleteEmptyBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		DELETE FROM conversations c
		WHERE c.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = c.id)
	`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ConversationRepository) CountMessagesSince(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE created_at >= $1`
	var count int64
	if err := r.pool.QueryRow(ctx, query, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
