package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/metrics"
	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/orders"
	"github.com/storefront-dev/storefront/internal/tasks"
)

// HandleExpireOrder cancels an order that is still waiting for payment.
// Paid, cancelled and deleted orders are skipped so redelivery is harmless.
func HandleExpireOrder(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParseExpireOrderPayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w: %w", err, asynq.SkipRetry)
	}

	changed, err := orders.Expire(ctx, db, payload.OrderID)
	if err != nil {
		return fmt.Errorf("failed to expire order: %w", err)
	}

	if !changed {
		logger.Debug().
			Str("order_id", payload.OrderID).
			Msg("Order no longer pending payment, nothing to expire")
		return nil
	}

	metrics.RecordOrder(models.OrderStatusCancelled)
	logger.Info().
		Str("order_id", payload.OrderID).
		Msg("Expired unpaid order")
	return nil
}
