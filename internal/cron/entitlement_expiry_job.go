package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/outbox"
)

const defaultExpiryBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type clinicStore interface {
	ListClinicsByStatus(ctx context.Context, status enums.ClinicSubscriptionStatus, afterID *uuid.UUID, limit int) ([]models.Clinic, error)
	UpdateEntitlementWithTx(tx *gorm.DB, clinicID uuid.UUID, status enums.ClinicSubscriptionStatus, plan *enums.PlanTier, at time.Time) error
}

type currentResolver interface {
	Current(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error)
}

// EntitlementExpiryJobParams configure the clinic entitlement expiry job.
type EntitlementExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Clinics   clinicStore
	Resolver  currentResolver
	Outbox    outbox.Emitter
	BatchSize int
}

// NewEntitlementExpiryJob builds the job that flips a clinic's cached status
// to expired once its current subscription period has ended.
func NewEntitlementExpiryJob(params EntitlementExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Clinics == nil {
		return nil, fmt.Errorf("clinic store required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("subscription resolver required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &entitlementExpiryJob{
		logg:     params.Logger,
		db:       params.DB,
		clinics:  params.Clinics,
		resolver: params.Resolver,
		outbox:   params.Outbox,
		batch:    batch,
		now:      time.Now,
	}, nil
}

type entitlementExpiryJob struct {
	logg     *logger.Logger
	db       txRunner
	clinics  clinicStore
	resolver currentResolver
	outbox   outbox.Emitter
	batch    int
	now      func() time.Time
}

func (j *entitlementExpiryJob) Name() string { return "entitlement-expiry" }

// Run checks every clinic cached as active. Clinics without a resolved
// subscription are entitled by payment alone and are left untouched.
func (j *entitlementExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var (
		errs    error
		after   *uuid.UUID
		checked int
		expired int
	)
	for {
		clinics, err := j.clinics.ListClinicsByStatus(ctx, enums.ClinicSubscriptionActive, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list active clinics: %w", err))
		}
		for _, clinic := range clinics {
			checked++
			lapsed, err := j.expireIfLapsed(ctx, clinic, now)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("clinic %s: %w", clinic.ID, err))
				continue
			}
			if lapsed {
				expired++
			}
		}
		if len(clinics) < j.batch {
			break
		}
		last := clinics[len(clinics)-1].ID
		after = &last
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"clinics_checked": checked,
		"clinics_expired": expired,
	}), "entitlement expiry complete")
	return errs
}

func (j *entitlementExpiryJob) expireIfLapsed(ctx context.Context, clinic models.Clinic, now time.Time) (bool, error) {
	current, err := j.resolver.Current(ctx, enums.TenantKindClinic, clinic.ID)
	if err != nil {
		return false, fmt.Errorf("resolve subscription: %w", err)
	}
	if current == nil || current.CurrentPeriodEnd == nil || !current.CurrentPeriodEnd.Before(now) {
		return false, nil
	}
	periodEnd := *current.CurrentPeriodEnd
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.clinics.UpdateEntitlementWithTx(tx, clinic.ID, enums.ClinicSubscriptionExpired, nil, now); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventClinicEntitlementLapse,
			AggregateType: enums.AggregateClinic,
			AggregateID:   clinic.ID,
			OccurredAt:    now,
			Data: outbox.ClinicEntitlementExpired{
				ClinicID:         clinic.ID,
				SubscriptionID:   current.ID,
				CurrentPeriodEnd: periodEnd,
			},
		})
	})
	if err != nil {
		return false, fmt.Errorf("mark expired: %w", err)
	}
	j.logg.Info(j.logg.WithTenant(ctx, string(enums.TenantKindClinic), clinic.ID.String()), "clinic entitlement expired")
	return true, nil
}
