// Package tenants gates clinic and supplier creation behind payment
// entitlement and reconciles payments made before the tenant existed.
package tenants

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/internal/payments"
	"github.com/dentaldesk/dentaldesk-backend/internal/subscriptions"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/metrics"
	"github.com/dentaldesk/dentaldesk-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	CreateWithTx(tx *gorm.DB, profile *models.Profile) error
	LinkTenantWithTx(tx *gorm.DB, userID uuid.UUID, kind enums.TenantKind, tenantID uuid.UUID, role enums.MemberRole, at time.Time) (bool, error)
}

type entitlementReader interface {
	ApprovedSubscription(ctx context.Context, kind enums.TenantKind, userID uuid.UUID) (*models.Subscription, error)
}

// Service defines entitlement checks and tenant bootstrap.
type Service interface {
	CheckEntitlement(ctx context.Context, userID uuid.UUID, kind enums.TenantKind) (*Entitlement, error)
	BootstrapClinic(ctx context.Context, input BootstrapInput) (*BootstrapResult, error)
	BootstrapSupplier(ctx context.Context, input BootstrapInput) (*BootstrapResult, error)
}

// BootstrapInput carries the tenant's display and contact fields.
type BootstrapInput struct {
	UserID   uuid.UUID
	Name     string
	Phone    *string
	Email    *string
	Address  *string
	FullName *string
}

// TenantDTO is the API representation of a bootstrapped tenant.
type TenantDTO struct {
	ID                 uuid.UUID                       `json:"id"`
	Kind               enums.TenantKind                `json:"kind"`
	Name               string                          `json:"name"`
	Phone              *string                         `json:"phone,omitempty"`
	Email              *string                         `json:"email,omitempty"`
	Address            *string                         `json:"address,omitempty"`
	SubscriptionStatus *enums.ClinicSubscriptionStatus `json:"subscription_status,omitempty"`
	SubscriptionPlan   *enums.PlanTier                 `json:"subscription_plan,omitempty"`
	CreatedAt          time.Time                       `json:"created_at"`
}

// Reconciliation reports the best-effort reattachment of orphaned rows.
// Error is set when it failed; the tenant itself is kept either way.
type Reconciliation struct {
	Subscriptions int64  `json:"subscriptions"`
	Payments      int64  `json:"payments"`
	Error         string `json:"error,omitempty"`
}

// BootstrapResult is returned by a bootstrap call. A user who is not
// entitled gets Entitled false and no tenant.
type BootstrapResult struct {
	Entitled       bool            `json:"entitled"`
	Entitlement    *Entitlement    `json:"entitlement,omitempty"`
	Tenant         *TenantDTO      `json:"tenant,omitempty"`
	Reconciliation *Reconciliation `json:"reconciliation,omitempty"`
}

// ServiceParams groups dependencies for the tenant service.
type ServiceParams struct {
	Repo              *Repository
	Entitlements      entitlementReader
	Profiles          profileRepository
	Payments          payments.Repository
	Subscriptions     subscriptions.Repository
	Outbox            outbox.Emitter
	TransactionRunner txRunner
	Metrics           *metrics.BillingMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
}

type service struct {
	repo         *Repository
	entitlements entitlementReader
	profiles     profileRepository
	payments     payments.Repository
	subs         subscriptions.Repository
	outbox       outbox.Emitter
	txRunner     txRunner
	metrics      *metrics.BillingMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds a tenant service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("tenant repo required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlement repo required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repo required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment repo required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		entitlements: params.Entitlements,
		profiles:     params.Profiles,
		payments:     params.Payments,
		subs:         params.Subscriptions,
		outbox:       params.Outbox,
		txRunner:     params.TransactionRunner,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

// CheckEntitlement applies the single entitlement rule: a user is entitled
// to a tenant of the given kind when they hold an approved subscription paid
// by an approved payment of theirs, or an approved payment on its own. A
// subscription is reported as the source when both exist.
func (s *service) CheckEntitlement(ctx context.Context, userID uuid.UUID, kind enums.TenantKind) (*Entitlement, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tenant kind")
	}
	result := &Entitlement{Source: EntitlementNone, TenantKind: kind}

	sub, err := s.entitlements.ApprovedSubscription(ctx, kind, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check subscription entitlement")
	}
	payment, err := s.payments.NewestApproved(ctx, kind, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment entitlement")
	}

	switch {
	case sub != nil:
		id, plan := sub.ID, sub.Plan
		result.Entitled = true
		result.Source = EntitlementSubscription
		result.SubscriptionID = &id
		result.PaymentID = sub.PaymentID
		result.Plan = &plan
	case payment != nil:
		id, plan := payment.ID, payment.PlanTier
		result.Entitled = true
		result.Source = EntitlementPayment
		result.PaymentID = &id
		result.Plan = &plan
	}
	return result, nil
}

// BootstrapClinic creates the caller's clinic once they are entitled.
func (s *service) BootstrapClinic(ctx context.Context, input BootstrapInput) (*BootstrapResult, error) {
	return s.bootstrap(ctx, enums.TenantKindClinic, input)
}

// BootstrapSupplier creates the caller's supplier once they are entitled.
func (s *service) BootstrapSupplier(ctx context.Context, input BootstrapInput) (*BootstrapResult, error) {
	return s.bootstrap(ctx, enums.TenantKindSupplier, input)
}

func (s *service) bootstrap(ctx context.Context, kind enums.TenantKind, input BootstrapInput) (*BootstrapResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "tenant_kind", string(kind))
		ctx = s.logg.WithUserID(ctx, input.UserID.String())
	}

	profile, err := s.profiles.FindByUserID(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile != nil && profile.HasTenant() {
		s.metrics.Bootstrap(string(kind), "already_linked")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "profile already belongs to a clinic or supplier")
	}

	entitlement, err := s.CheckEntitlement(ctx, input.UserID, kind)
	if err != nil {
		return nil, err
	}
	if !entitlement.Entitled {
		s.metrics.Bootstrap(string(kind), "not_entitled")
		return &BootstrapResult{Entitled: false, Entitlement: entitlement}, nil
	}

	plan, err := s.defaultPlan(ctx, kind, input.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	tenant := &TenantDTO{
		ID:        uuid.New(),
		Kind:      kind,
		Name:      name,
		Phone:     trimmedOrNil(input.Phone),
		Email:     trimmedOrNil(input.Email),
		Address:   trimmedOrNil(input.Address),
		CreatedAt: now,
	}
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.createTenant(tx, kind, input.UserID, plan, tenant); err != nil {
			return err
		}
		if err := s.linkProfile(tx, kind, profile, input, tenant.ID, now); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventTenantBootstrapped,
			AggregateType: enums.AggregateForTenant(kind),
			AggregateID:   tenant.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, TenantID: &tenant.ID, Role: string(enums.OwnerRoleFor(kind))},
			OccurredAt:    now,
			Data: outbox.TenantBootstrapped{
				TenantKind:        kind,
				TenantID:          tenant.ID,
				OwnerUserID:       input.UserID,
				Plan:              plan,
				EntitlementSource: string(entitlement.Source),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return stepError(err, "emit_event")
		}
		return nil
	})
	if err != nil {
		s.metrics.Bootstrap(string(kind), "error")
		if s.logg != nil {
			s.logg.Error(ctx, "tenant bootstrap failed", err)
		}
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithTenant(ctx, string(kind), tenant.ID.String())
		s.logg.Info(ctx, "tenant bootstrapped")
	}

	reconciliation := s.reconcile(ctx, kind, input.UserID, tenant, now)
	s.metrics.Bootstrap(string(kind), "ok")
	return &BootstrapResult{
		Entitled:       true,
		Entitlement:    entitlement,
		Tenant:         tenant,
		Reconciliation: reconciliation,
	}, nil
}

// defaultPlan is the plan of the user's newest approved payment, else basic.
func (s *service) defaultPlan(ctx context.Context, kind enums.TenantKind, userID uuid.UUID) (enums.PlanTier, error) {
	payment, err := s.payments.NewestApproved(ctx, kind, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approved payment")
	}
	if payment == nil || !payment.PlanTier.IsValid() {
		return enums.PlanTierBasic, nil
	}
	return payment.PlanTier, nil
}

func (s *service) createTenant(tx *gorm.DB, kind enums.TenantKind, owner uuid.UUID, plan enums.PlanTier, tenant *TenantDTO) error {
	var err error
	if kind == enums.TenantKindSupplier {
		err = s.repo.CreateSupplierWithTx(tx, &models.Supplier{
			ID:          tenant.ID,
			Name:        tenant.Name,
			Phone:       tenant.Phone,
			Email:       tenant.Email,
			Address:     tenant.Address,
			OwnerUserID: owner,
			CreatedAt:   tenant.CreatedAt,
			UpdatedAt:   tenant.CreatedAt,
		})
	} else {
		status := enums.ClinicSubscriptionActive
		tenant.SubscriptionStatus = &status
		tenant.SubscriptionPlan = &plan
		err = s.repo.CreateClinicWithTx(tx, &models.Clinic{
			ID:                 tenant.ID,
			Name:               tenant.Name,
			Phone:              tenant.Phone,
			Email:              tenant.Email,
			Address:            tenant.Address,
			OwnerUserID:        owner,
			SubscriptionStatus: status,
			SubscriptionPlan:   &plan,
			CreatedAt:          tenant.CreatedAt,
			UpdatedAt:          tenant.CreatedAt,
		})
	}
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a tenant already exists for this user")
		}
		return stepError(err, "create_tenant")
	}
	return nil
}

func (s *service) linkProfile(tx *gorm.DB, kind enums.TenantKind, profile *models.Profile, input BootstrapInput, tenantID uuid.UUID, now time.Time) error {
	role := enums.OwnerRoleFor(kind)
	if profile == nil {
		created := &models.Profile{
			UserID:     input.UserID,
			FullName:   trimmedOrNil(input.FullName),
			Email:      trimmedOrNil(input.Email),
			Role:       &role,
			SystemRole: enums.SystemRoleUser,
		}
		if kind == enums.TenantKindSupplier {
			created.SupplierID = &tenantID
		} else {
			created.ClinicID = &tenantID
		}
		if err := s.profiles.CreateWithTx(tx, created); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "profile already exists")
			}
			return stepError(err, "create_profile")
		}
		return nil
	}
	ok, err := s.profiles.LinkTenantWithTx(tx, input.UserID, kind, tenantID, role, now)
	if err != nil {
		return stepError(err, "link_profile")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "profile already belongs to a clinic or supplier")
	}
	return nil
}

// reconcile reattaches the user's orphaned approved rows of this tenant kind
// and refreshes the clinic's cached plan. It runs in its own transaction so
// a failure never undoes the tenant created before it; running it again finds
// nothing left to move.
func (s *service) reconcile(ctx context.Context, kind enums.TenantKind, userID uuid.UUID, tenant *TenantDTO, now time.Time) *Reconciliation {
	result := &Reconciliation{}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		subs := s.subs.WithTx(tx)
		n, err := subs.ReattachOrphans(ctx, kind, userID, tenant.ID, now)
		if err != nil {
			return fmt.Errorf("reattach subscriptions: %w", err)
		}
		result.Subscriptions = n

		n, err = s.payments.WithTx(tx).ReattachOrphans(ctx, kind, userID, tenant.ID, now)
		if err != nil {
			return fmt.Errorf("reattach payments: %w", err)
		}
		result.Payments = n

		if kind != enums.TenantKindClinic {
			return nil
		}
		current, err := subs.Current(ctx, kind, tenant.ID)
		if err != nil {
			return fmt.Errorf("resolve current subscription: %w", err)
		}
		if current == nil {
			return nil
		}
		plan := current.Plan
		if err := s.repo.UpdateEntitlementWithTx(tx, tenant.ID, enums.ClinicSubscriptionActive, &plan, now); err != nil {
			return fmt.Errorf("refresh clinic plan: %w", err)
		}
		tenant.SubscriptionPlan = &plan
		return nil
	})
	if err != nil {
		result = &Reconciliation{Error: err.Error()}
		if s.logg != nil {
			s.logg.Warn(s.logg.WithStep(ctx, "reconcile_orphans"), "orphan reconciliation failed: "+err.Error())
		}
		return result
	}
	if s.logg != nil && (result.Subscriptions > 0 || result.Payments > 0) {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"reattached_subscriptions": result.Subscriptions,
			"reattached_payments":      result.Payments,
		}), "orphaned rows reattached")
	}
	return result
}

func stepError(err error, step string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "tenant bootstrap step failed").
		WithStep(step)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
