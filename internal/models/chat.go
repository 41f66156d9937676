package models

import "time"

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Conversation groups an append-only list of messages owned by a user.
type Conversation struct {
	ID        string
	UserID    string
	ProjectID *string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	CreatedAt      time.Time
}

type Project struct {
	ID          string
	UserID      string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// KnowledgeDoc is the metadata row for a document attached to a project.
// The document body lives in the object store under ObjectKey.
type KnowledgeDoc struct {
	ID          string
	ProjectID   string
	UserID      string
	Title       string
	Bucket      string
	ObjectKey   string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
