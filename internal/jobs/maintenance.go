package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"loomchat/api/internal/repository"
)

const emptyConversationMaxAge = 24 * time.Hour

// Maintenance executes the tasks the scheduler enqueues.
type Maintenance struct {
	conversations *repository.ConversationRepository
	log           zerolog.Logger
}

func NewMaintenance(conversations *repository.ConversationRepository, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		conversations: conversations,
		log:           log,
	}
}

func (m *Maintenance) Handle(ctx context.Context, msg redis.XMessage) error {
	taskType, _ := msg.Values["type"].(string)

	switch taskType {
	case "purge_empty_conversations":
		return m.purgeEmptyConversations(ctx)
	case "usage_report":
		return m.usageReport(ctx)
	default:
		return fmt.Errorf("unknown task type %q", taskType)
	}
}

func (m *Maintenance) purgeEmptyConversations(ctx context.Context) error {
	cutoff := time.Now().Add(-emptyConversationMaxAge)
	purged, err := m.conversations.DeleteEmptyBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge empty conversations: %w", err)
	}
	m.log.Info().Int64("purged", purged).Msg("empty conversations purged")
	return nil
}

func (m *Maintenance) usageReport(ctx context.Context) error {
	since := time.Now().Add(-1 * time.Hour)
	count, err := m.conversations.CountMessagesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("usage report: %w", err)
	}
	m.log.Info().Int64("messages_last_hour", count).Msg("usage report")
	return nil
}
