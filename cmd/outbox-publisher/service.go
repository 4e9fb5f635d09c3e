package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/config"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type pinger interface {
	Ping(context.Context) error
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	MarkTerminal(ctx context.Context, id uuid.UUID, err error, terminalAttempts int) error
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         pinger
	PubSub     pinger
	Repository outboxRepository
	Publisher  publisher
}

// Service drains outbox_events onto the domain topic. Delivery is at least
// once: a crash between publish and MarkPublished republishes the event with
// the same eventId.
type Service struct {
	logg         *logger.Logger
	deps         map[string]pinger
	repo         outboxRepository
	publisher    publisher
	topic        string
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Publisher == nil:
		return nil, errors.New("domain publisher is required")
	}

	cfg := params.Config.Outbox
	svc := &Service{
		logg:         params.Logger,
		deps:         map[string]pinger{"database": params.DB, "pubsub": params.PubSub},
		repo:         params.Repository,
		publisher:    params.Publisher,
		topic:        params.Config.PubSub.DomainTopic,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		pollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
	if svc.batchSize <= 0 {
		svc.batchSize = defaultBatchSize
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = defaultMaxAttempts
	}
	if svc.pollInterval <= 0 {
		svc.pollInterval = defaultPollInterval
	}
	return svc, nil
}

// Run polls until ctx ends. A full batch is followed immediately by the next
// one; an empty batch waits one poll interval; a failed batch backs off.
func (s *Service) Run(ctx context.Context) error {
	for name, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	backoff := s.pollInterval
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := s.processBatch(ctx)
		wait := time.Duration(0)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			wait = withJitter(backoff)
		case !processed:
			backoff = s.pollInterval
			wait = withJitter(s.pollInterval)
		default:
			backoff = s.pollInterval
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

type pendingPublish struct {
	event  models.OutboxEvent
	env    outbox.PayloadEnvelope
	result publishResult
}

// processBatch hands every decodable row to the publisher first and only then
// waits on the results, so one batch costs roughly one Pub/Sub round trip.
// A failing row never blocks the rest of the batch.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return false, fmt.Errorf("fetch unpublished: %w", err)
	}
	if len(events) == 0 {
		return false, nil
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	var terminal, failed, published int
	inFlight := make([]pendingPublish, 0, len(events))
	for _, event := range events {
		env, err := outbox.DecodeEnvelope(event.Payload)
		if err != nil {
			s.logg.Warn(s.eventCtx(ctx, event, err), "outbox event will not be retried")
			if markErr := s.repo.MarkTerminal(ctx, event.ID, err, s.maxAttempts); markErr != nil {
				return true, fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
			}
			terminal++
			continue
		}
		inFlight = append(inFlight, pendingPublish{
			event:  event,
			env:    env,
			result: s.publisher.Publish(publishCtx, &gcppubsub.Message{Data: event.Payload, Attributes: messageAttributes(event, env)}),
		})
	}

	for _, p := range inFlight {
		err := errors.New("publisher returned no result")
		if p.result != nil {
			_, err = p.result.Get(publishCtx)
		}
		if err != nil {
			s.logg.Warn(s.eventCtx(ctx, p.event, err), "outbox publish failed")
			if markErr := s.repo.MarkFailed(ctx, p.event.ID, err); markErr != nil {
				return true, fmt.Errorf("mark failure %s: %w", p.event.ID, markErr)
			}
			failed++
			continue
		}
		if err := s.repo.MarkPublished(ctx, p.event.ID); err != nil {
			return true, fmt.Errorf("mark published %s: %w", p.event.ID, err)
		}
		s.logg.Debug(s.eventCtx(ctx, p.event, nil), "outbox event published")
		published++
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"topic":     s.topic,
		"published": published,
		"failed":    failed,
		"terminal":  terminal,
	}), "outbox batch done")
	return true, nil
}

func messageAttributes(event models.OutboxEvent, env outbox.PayloadEnvelope) map[string]string {
	return map[string]string{
		"event_id":       env.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"occurred_at":    env.OccurredAt.Format(time.RFC3339Nano),
		"version":        strconv.Itoa(env.Version),
	}
}

func (s *Service) eventCtx(ctx context.Context, event models.OutboxEvent, err error) context.Context {
	fields := map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	return s.logg.WithFields(ctx, fields)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

// gcpPublisher adapts *pubsub.Publisher, whose Publish returns a concrete
// *PublishResult, to the publisher interface.
type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
