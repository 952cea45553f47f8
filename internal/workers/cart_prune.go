package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/carts"
	"github.com/storefront-dev/storefront/internal/tasks"
)

// CartRetention is how long a cart may sit untouched before it is pruned
const CartRetention = 30 * 24 * time.Hour

// HandlePruneCarts deletes carts idle for longer than the payload's period
func HandlePruneCarts(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParsePruneCartsPayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w: %w", err, asynq.SkipRetry)
	}

	olderThan := payload.OlderThan
	if olderThan <= 0 {
		olderThan = CartRetention
	}

	removed, err := carts.Prune(ctx, db, olderThan)
	if err != nil {
		return fmt.Errorf("failed to prune carts: %w", err)
	}

	logger.Info().
		Int64("removed", removed).
		Dur("older_than", olderThan).
		Msg("Pruned idle carts")
	return nil
}

// StartCartPruneScheduler enqueues a cart:prune task on every tick of the cron
// schedule. The returned scheduler is already running; stop it on shutdown.
func StartCartPruneScheduler(schedule string, client Enqueuer, logger zerolog.Logger) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	scheduler := cron.New(cron.WithParser(parser))

	_, err := scheduler.AddFunc(schedule, func() {
		enqueuePruneCarts(client, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cart prune schedule %q: %w", schedule, err)
	}

	scheduler.Start()
	logger.Info().Str("schedule", schedule).Msg("Cart prune scheduler started")
	return scheduler, nil
}

func enqueuePruneCarts(client Enqueuer, logger zerolog.Logger) {
	task, opts, err := tasks.NewPruneCartsTask(CartRetention)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create cart prune task")
		return
	}

	info, err := client.Enqueue(task, opts...)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue cart prune task")
		return
	}

	logger.Info().Str("task_id", info.ID).Msg("Enqueued cart prune task")
}
