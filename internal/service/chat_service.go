package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"loomchat/api/internal/config"
	"loomchat/api/internal/ids"
	"loomchat/api/internal/llm"
	"loomchat/api/internal/models"
)

var ErrUnauthenticated = errors.New("unauthenticated")

const titleMaxRunes = 60

// ConversationStore is the persistence contract for chat turns.
type ConversationStore interface {
	Create(ctx context.Context, conv models.Conversation) error
	GetByID(ctx context.Context, id string, userID string) (models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	AppendMessages(ctx context.Context, conversationID string, msgs []models.Message) error
}

type ChatService struct {
	conversations ConversationStore
	provider      llm.Completer
	cfg           *config.AppConfig
	log           zerolog.Logger
}

func NewChatService(conversations ConversationStore, provider llm.Completer, cfg *config.AppConfig, log zerolog.Logger) *ChatService {
	return &ChatService{
		conversations: conversations,
		provider:      provider,
		cfg:           cfg,
		log:           log,
	}
}

type SendInput struct {
	Identity       models.Identity
	Message        string
	ConversationID string
}

type SendResult struct {
	ConversationID string
	Reply          string
}

// Send forwards one user message to the provider and persists the exchange.
// The provider is never contacted without a validated identity.
func (s *ChatService) Send(ctx context.Context, input SendInput) (SendResult, error) {
	if input.Identity.UserID == "" {
		return SendResult{}, ErrUnauthenticated
	}

	var (
		conv  models.Conversation
		prior []models.Message
		err   error
	)

	if input.ConversationID != "" {
		conv, err = s.conversations.GetByID(ctx, input.ConversationID, input.Identity.UserID)
		if err != nil {
			return SendResult{}, err
		}
		prior, err = s.conversations.ListMessages(ctx, conv.ID, s.cfg.Provider.MaxTurns)
		if err != nil {
			return SendResult{}, err
		}
	} else {
		conv = models.Conversation{
			ID:     ids.New(),
			UserID: input.Identity.UserID,
			Title:  titleFrom(input.Message),
		}
		if err := s.conversations.Create(ctx, conv); err != nil {
			return SendResult{}, err
		}
	}

	turns := make([]llm.Message, 0, len(prior)+1)
	for _, msg := range prior {
		turns = append(turns, llm.Message{Role: string(msg.Role), Content: msg.Content})
	}
	turns = append(turns, llm.Message{Role: string(models.MessageRoleUser), Content: input.Message})

	reply, err := s.provider.Complete(ctx, turns)
	if err != nil {
		var provErr *llm.ProviderError
		if errors.As(err, &provErr) {
			s.log.Error().
				Str("user_id", input.Identity.UserID).
				Str("conversation_id", conv.ID).
				Str("kind", string(provErr.Kind)).
				Str("detail", provErr.Detail).
				Msg("provider call failed")
		}
		return SendResult{}, err
	}

	now := time.Now().UTC()
	exchange := []models.Message{
		{
			ID:             ids.New(),
			ConversationID: conv.ID,
			Role:           models.MessageRoleUser,
			Content:        input.Message,
			CreatedAt:      now,
		},
		{
			ID:             ids.New(),
			ConversationID: conv.ID,
			Role:           models.MessageRoleAssistant,
			Content:        reply,
			CreatedAt:      now.Add(time.Millisecond),
		},
	}
	if err := s.conversations.AppendMessages(ctx, conv.ID, exchange); err != nil {
		return SendResult{}, err
	}

	return SendResult{
		ConversationID: conv.ID,
		Reply:          reply,
	}, nil
}

// titleFrom derives a conversation title from the first message, truncated
// on a rune boundary.
func titleFrom(message string) string {
	runes := []rune(message)
	if len(runes) <= titleMaxRunes {
		return message
	}
	return string(runes[:titleMaxRunes])
}
