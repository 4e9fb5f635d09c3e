package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

const envelopeVersion = 1

// ActorRef identifies who caused the event: a payer, a super admin, or
// nobody for cron-driven events.
type ActorRef struct {
	UserID   uuid.UUID  `json:"userId"`
	TenantID *uuid.UUID `json:"tenantId,omitempty"`
	Role     string     `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and published
// unchanged. Consumers dedupe on EventID.
type PayloadEnvelope struct {
	Version     int                       `json:"version"`
	EventID     string                    `json:"eventId"`
	EventType   enums.OutboxEventType     `json:"eventType"`
	Aggregate   enums.OutboxAggregateType `json:"aggregateType"`
	AggregateID uuid.UUID                 `json:"aggregateId"`
	OccurredAt  time.Time                 `json:"occurredAt"`
	Actor       *ActorRef                 `json:"actor,omitempty"`
	Data        json.RawMessage           `json:"data"`
}

func newEnvelope(event DomainEvent) (PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:     event.Version,
		EventID:     uuid.NewString(),
		EventType:   event.EventType,
		Aggregate:   event.AggregateType,
		AggregateID: event.AggregateID,
		OccurredAt:  event.OccurredAt.UTC(),
		Actor:       event.Actor,
		Data:        data,
	}
	if env.Version == 0 {
		env.Version = envelopeVersion
	}
	if event.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}
	return env, nil
}

// DecodeEnvelope parses a stored payload. An envelope that fails here will
// never publish, so callers treat the error as terminal.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, errors.New("envelope missing event id")
	}
	if env.Version < 1 || env.Version > envelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	return env, nil
}
