package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultPruneBatch      = 500
	outboxMinAttempts      = 10
)

type outboxPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

// OutboxRetentionJobParams configure the outbox cleanup job. MinAttempts
// should match the publisher's attempt ceiling so rows still being retried
// survive.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	Repository  outboxPruner
	Retention   time.Duration
	MinAttempts int
	BatchSize   int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		repo:        params.Repository,
		retention:   params.Retention,
		minAttempts: params.MinAttempts,
		batch:       params.BatchSize,
		now:         time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.minAttempts <= 0 {
		job.minAttempts = outboxMinAttempts
	}
	if job.batch <= 0 {
		job.batch = defaultPruneBatch
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	repo        outboxPruner
	retention   time.Duration
	minAttempts int
	batch       int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in batches until a short batch signals the backlog is gone, so
// no single statement holds locks on a large slice of the table.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for rounds := 0; ; rounds++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("outbox retention stopped after %d rows: %w", total, err)
		}
		n, err := j.repo.PruneBefore(ctx, cutoff, j.minAttempts, j.batch)
		if err != nil {
			return fmt.Errorf("outbox retention: %w", err)
		}
		total += n
		if n < int64(j.batch) {
			j.logg.Info(j.logg.WithFields(ctx, map[string]any{
				"cutoff":       cutoff,
				"min_attempts": j.minAttempts,
				"rows_deleted": total,
				"rounds":       rounds + 1,
			}), "outbox retention cleanup complete")
			return nil
		}
	}
}
