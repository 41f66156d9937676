package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const MaintenanceStream = "chat:maintenance"

// Scheduler enqueues periodic maintenance tasks onto a redis stream; the
// in-process Consumer picks them up.
type Scheduler struct {
	cron  *cron.Cron
	queue *redis.Client
	log   zerolog.Logger
}

func NewScheduler(queue *redis.Client, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		queue: queue,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	// Nightly: drop conversations that never got a message.
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.enqueuePurge); err != nil {
		return err
	}
	// Hourly usage rollup.
	if _, err := s.cron.AddFunc("0 0 * * * *", s.enqueueUsageReport); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits up to 5s for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueuePurge() {
	if err := s.enqueueTask(map[string]any{
		"type": "purge_empty_conversations",
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue purge failed")
	}
}

func (s *Scheduler) enqueueUsageReport() {
	if err := s.enqueueTask(map[string]any{
		"type": "usage_report",
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue usage report failed")
	}
}

func (s *Scheduler) enqueueTask(payload map[string]any) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: MaintenanceStream,
		Values: payload,
	}).Result()
	return err
}
