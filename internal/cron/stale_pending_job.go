package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/metrics"
)

const defaultStalePendingAfter = 72 * time.Hour

type pendingPaymentCounter interface {
	CountPendingSince(ctx context.Context, before time.Time) (int64, error)
}

// StalePendingJobParams configure the stale pending payment job.
type StalePendingJobParams struct {
	Logger   *logger.Logger
	Payments pendingPaymentCounter
	Metrics  *metrics.BillingMetrics
	After    time.Duration
}

// NewStalePendingJob builds the job that reports payments waiting on review
// for longer than the configured threshold.
func NewStalePendingJob(params StalePendingJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	after := params.After
	if after <= 0 {
		after = defaultStalePendingAfter
	}
	return &stalePendingJob{
		logg:     params.Logger,
		payments: params.Payments,
		metrics:  params.Metrics,
		after:    after,
		now:      time.Now,
	}, nil
}

type stalePendingJob struct {
	logg     *logger.Logger
	payments pendingPaymentCounter
	metrics  *metrics.BillingMetrics
	after    time.Duration
	now      func() time.Time
}

func (j *stalePendingJob) Name() string { return "stale-pending-payments" }

func (j *stalePendingJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	count, err := j.payments.CountPendingSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("count stale pending payments: %w", err)
	}
	j.metrics.SetStalePending(count)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"stale_pending": count,
	})
	if count > 0 {
		j.logg.Warn(logCtx, "payments awaiting review past threshold")
		return nil
	}
	j.logg.Info(logCtx, "no stale pending payments")
	return nil
}
