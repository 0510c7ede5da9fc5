package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tourify/tourify/internal/jobs"
)

// TourRoller marks overdue active tours as completed.
type TourRoller interface {
	RollCompleted(ctx context.Context, now time.Time) (int64, error)
}

// NewTourStatusRollHandler builds the Asynq handler for the status roll.
func NewTourStatusRollHandler(repo TourRoller, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload TourStatusRollPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("tour_status_roll")
		count, err := repo.RollCompleted(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("tour status roll failed", slog.Any("error", err))
			return tracker.End(err)
		}
		if count > 0 {
			logger.Info("tour status roll", slog.Int64("completed", count))
		}
		return tracker.End(nil)
	}
}
