package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/tourify/tourify/internal/jobs"
)

// GrantExpirer sweeps lapsed role assignments.
type GrantExpirer interface {
	ExpireLapsedGrants(ctx context.Context) (int, error)
}

// NewGrantExpirySweepHandler builds the Asynq handler for the expiry sweep.
// Expired assignments already deny at read time; the sweep keeps the stored
// rows and the permission cache consistent with that.
func NewGrantExpirySweepHandler(svc GrantExpirer, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload GrantExpirySweepPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("expire_grants")
		count, err := svc.ExpireLapsedGrants(ctx)
		if err != nil {
			logger.Error("grant expiry sweep failed", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddExpiredGrants(int64(count))
		if count > 0 {
			logger.Info("grant expiry sweep", slog.Int("deactivated", count))
		}
		return tracker.End(nil)
	}
}
