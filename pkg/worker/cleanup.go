package worker

import (
	"context"
	"time"

	"github.com/doarbem/doar-api/internal/repository"
	"github.com/doarbem/doar-api/pkg/logger"
)

// OutboxCleanup purges processed outbox events past the retention window.
type OutboxCleanup struct {
	repo      repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger
}

func NewOutboxCleanup(repo repository.OutboxRepository, retention, interval time.Duration, logger *logger.Logger) *OutboxCleanup {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &OutboxCleanup{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger,
	}
}

func (c *OutboxCleanup) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := c.repo.DeleteProcessedBefore(ctx, time.Now().Add(-c.retention))
			if err != nil {
				c.logger.Error(err, "failed to purge processed outbox events")
				continue
			}
			if deleted > 0 {
				c.logger.WithFields(map[string]interface{}{"deleted": deleted}).Info("purged processed outbox events")
			}
		}
	}
}
