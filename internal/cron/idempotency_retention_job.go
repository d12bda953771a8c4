package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/agyemangopoku/farmlink-backend/internal/idempotency"
	"github.com/agyemangopoku/farmlink-backend/pkg/logger"
)

// IdempotencyRetentionJobParams configure the purge job.
type IdempotencyRetentionJobParams struct {
	Logger  *logger.Logger
	Tracker idempotency.Tracker
}

// NewIdempotencyRetentionJob deletes idempotency records whose retention
// window elapsed. Replays of very old operations then re-execute instead of
// returning stale snapshots, which is the documented contract.
func NewIdempotencyRetentionJob(params IdempotencyRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tracker == nil {
		return nil, fmt.Errorf("idempotency tracker required")
	}
	return &idempotencyRetentionJob{
		logg:    params.Logger,
		tracker: params.Tracker,
		now:     time.Now,
	}, nil
}

type idempotencyRetentionJob struct {
	logg    *logger.Logger
	tracker idempotency.Tracker
	now     func() time.Time
}

func (j *idempotencyRetentionJob) Name() string { return "idempotency-retention" }

func (j *idempotencyRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	deleted, err := j.tracker.PurgeExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("idempotency retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       now,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "idempotency retention cleanup complete")
	return nil
}
