// Package payments implements manual payment submission and admin review.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/internal/plans"
	"github.com/dentaldesk/dentaldesk-backend/internal/proofs"
	"github.com/dentaldesk/dentaldesk-backend/internal/subscriptions"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/metrics"
	"github.com/dentaldesk/dentaldesk-backend/pkg/outbox"
	"github.com/dentaldesk/dentaldesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type profileReader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type adminGuard interface {
	RequireSuperAdmin(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type proofStore interface {
	Upload(ctx context.Context, payerID uuid.UUID, data []byte) (*proofs.Ref, error)
	ReadURL(key string) (string, error)
}

type clinicCache interface {
	UpdateEntitlementWithTx(tx *gorm.DB, clinicID uuid.UUID, status enums.ClinicSubscriptionStatus, plan *enums.PlanTier, at time.Time) error
}

// Service defines the payment submission and review surface.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	ListMine(ctx context.Context, userID uuid.UUID, filter ListFilter) (pagination.Page[PaymentDTO], error)
	ListForReview(ctx context.Context, reviewerID uuid.UUID, filter ListFilter) (pagination.Page[PaymentDTO], error)
	Approve(ctx context.Context, paymentID, reviewerID uuid.UUID) (*ReviewResult, error)
	Reject(ctx context.Context, paymentID, reviewerID uuid.UUID, reason string) (*ReviewResult, error)
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo              Repository
	Subscriptions     subscriptions.Repository
	Profiles          profileReader
	Admins            adminGuard
	Clinics           clinicCache
	Proofs            proofStore
	Outbox            outbox.Emitter
	TransactionRunner txRunner
	IQDPerUSD         int64
	Metrics           *metrics.BillingMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
}

type service struct {
	repo      Repository
	subs      subscriptions.Repository
	profiles  profileReader
	admins    adminGuard
	clinics   clinicCache
	proofs    proofStore
	outbox    outbox.Emitter
	txRunner  txRunner
	iqdPerUSD int64
	metrics   *metrics.BillingMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds a payment service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repo required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repo required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin guard required")
	}
	if params.Clinics == nil {
		return nil, fmt.Errorf("clinic repo required")
	}
	if params.Proofs == nil {
		return nil, fmt.Errorf("proof uploader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.IQDPerUSD <= 0 {
		return nil, fmt.Errorf("iqd per usd rate must be positive")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		subs:      params.Subscriptions,
		profiles:  params.Profiles,
		admins:    params.Admins,
		clinics:   params.Clinics,
		proofs:    params.Proofs,
		outbox:    params.Outbox,
		txRunner:  params.TransactionRunner,
		iqdPerUSD: params.IQDPerUSD,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
	}, nil
}

type validatedSubmission struct {
	kind        enums.TenantKind
	plan        enums.PlanTier
	method      enums.PaymentMethod
	amount      int64
	senderName  string
	senderPhone string
	ref         *string
	notes       *string
}

func validateSubmission(input SubmitInput) (*validatedSubmission, error) {
	if input.PayerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "payer identity is required")
	}
	missing := []string{}
	name := strings.TrimSpace(input.SenderName)
	if name == "" {
		missing = append(missing, "sender_name")
	}
	phone := strings.TrimSpace(input.SenderPhone)
	if phone == "" {
		missing = append(missing, "sender_phone")
	}
	if len(input.Proof) == 0 {
		missing = append(missing, "proof")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}

	kind := input.TenantKind
	if kind == "" {
		kind = enums.TenantKindClinic
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tenant kind")
	}
	if !input.Plan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	amount, err := ParseAmount(input.DisplayPrice)
	if err != nil {
		return nil, err
	}
	return &validatedSubmission{
		kind:        kind,
		plan:        input.Plan,
		method:      input.Method,
		amount:      amount,
		senderName:  name,
		senderPhone: phone,
		ref:         trimmedOrNil(input.TransactionRef),
		notes:       trimmedOrNil(input.Notes),
	}, nil
}

// Submit validates the form, stores the proof, and records a pending payment
// plus a pending companion subscription when the payer already has a tenant
// of the requested kind. Nothing is written when validation fails, and no
// row is written when the upload fails. A stored proof is not removed if the
// insert fails afterwards.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	in, err := validateSubmission(input)
	if err != nil {
		s.metrics.Submission(string(input.TenantKind), "invalid")
		return nil, err
	}
	ctx = s.withLogFields(ctx, map[string]any{
		"payer_user_id": input.PayerUserID.String(),
		"tenant_kind":   in.kind,
		"plan":          in.plan,
	})

	profile, err := s.profiles.FindByUserID(ctx, input.PayerUserID)
	if err != nil {
		s.metrics.Submission(string(in.kind), "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile").
			WithStep("load_profile")
	}
	var tenantID *uuid.UUID
	if profile != nil {
		tenantID = profile.TenantID(in.kind)
	}

	priceCheck := s.checkPrice(ctx, in, tenantID)

	ref, err := s.proofs.Upload(ctx, input.PayerUserID, input.Proof)
	if err != nil {
		s.metrics.Submission(string(in.kind), "upload_failed")
		return nil, err
	}

	now := s.now().UTC()
	payment := &models.ManualPayment{
		PayerUserID:    input.PayerUserID,
		TenantKind:     in.kind,
		PlanTier:       in.plan,
		Method:         in.method,
		AmountIQD:      in.amount,
		ProofKey:       ref.Key,
		SenderName:     in.senderName,
		SenderPhone:    in.senderPhone,
		TransactionRef: in.ref,
		Notes:          in.notes,
		Status:         enums.PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	setTenant(in.kind, tenantID, &payment.ClinicID, &payment.SupplierID)

	var companion *models.Subscription
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return stepError(err, "insert_payment")
		}
		if tenantID != nil {
			companion = &models.Subscription{
				TenantKind:    in.kind,
				UserID:        input.PayerUserID,
				PaymentID:     &payment.ID,
				Plan:          in.plan,
				Status:        enums.SubscriptionStatusPending,
				AmountIQD:     in.amount,
				AmountUSD:     subscriptions.ReferenceAmount(in.amount, s.iqdPerUSD),
				PaymentMethod: in.method,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			setTenant(in.kind, tenantID, &companion.ClinicID, &companion.SupplierID)
			if err := s.subs.WithTx(tx).Create(ctx, companion); err != nil {
				return stepError(err, "insert_subscription")
			}
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventManualPaymentSubmitted,
			AggregateType: enums.AggregateManualPayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: input.PayerUserID, TenantID: tenantID},
			OccurredAt:    now,
			Data: outbox.ManualPaymentSubmitted{
				PaymentID:      payment.ID,
				PayerUserID:    payment.PayerUserID,
				TenantKind:     payment.TenantKind,
				TenantID:       tenantID,
				PlanTier:       payment.PlanTier,
				Method:         payment.Method,
				AmountIQD:      payment.AmountIQD,
				SubscriptionID: subscriptionID(companion),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return stepError(err, "emit_event")
		}
		return nil
	})
	if err != nil {
		s.metrics.Submission(string(in.kind), "error")
		s.logError(ctx, "payment submission failed", err)
		return nil, err
	}

	s.metrics.Submission(string(in.kind), "ok")
	s.logInfo(ctx, "payment submitted")
	return &SubmitResult{
		Payment:      ToPaymentDTO(*payment),
		Subscription: subscriptionDTOPtr(companion),
		PriceCheck:   priceCheck,
	}, nil
}

// checkPrice prices the requested tier against the tenant's current plan.
// A lookup failure prices from no plan rather than blocking the submission.
func (s *service) checkPrice(ctx context.Context, in *validatedSubmission, tenantID *uuid.UUID) PriceCheck {
	var current *enums.PlanTier
	if tenantID != nil {
		sub, err := s.subs.Current(ctx, in.kind, *tenantID)
		if err != nil {
			s.logWarn(ctx, fmt.Sprintf("current plan lookup failed: %v", err))
		} else if sub != nil {
			current = &sub.Plan
		}
	}
	expected := plans.TableFor(in.kind).UpgradePrice(current, in.plan)
	check := PriceCheck{ExpectedAmountIQD: expected, Mismatch: expected != in.amount}
	if check.Mismatch {
		s.logWarn(ctx, fmt.Sprintf("submitted amount %d IQD differs from expected %d IQD", in.amount, expected))
	}
	return check
}

// ListMine returns the caller's own payments, newest first.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID, filter ListFilter) (pagination.Page[PaymentDTO], error) {
	if userID == uuid.Nil {
		return pagination.Page[PaymentDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	return s.list(ctx, filter, &userID, false)
}

// ListForReview returns payments across all tenants for a super admin, each
// with a time-limited link to its proof.
func (s *service) ListForReview(ctx context.Context, reviewerID uuid.UUID, filter ListFilter) (pagination.Page[PaymentDTO], error) {
	if _, err := s.admins.RequireSuperAdmin(ctx, reviewerID); err != nil {
		return pagination.Page[PaymentDTO]{}, err
	}
	return s.list(ctx, filter, nil, true)
}

func (s *service) list(ctx context.Context, filter ListFilter, payer *uuid.UUID, withProofURL bool) (pagination.Page[PaymentDTO], error) {
	cursor, err := pagination.ParseCursor(filter.Params.Cursor)
	if err != nil {
		return pagination.Page[PaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListQuery{
		Status:      filter.Status,
		TenantKind:  filter.TenantKind,
		PayerUserID: payer,
		Cursor:      cursor,
		Limit:       filter.Params.Limit,
	})
	if err != nil {
		return pagination.Page[PaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	page := pagination.BuildPage(rows, filter.Params.Limit, func(m models.ManualPayment) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	out := pagination.Page[PaymentDTO]{
		Items:      make([]PaymentDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, row := range page.Items {
		dto := ToPaymentDTO(row)
		if withProofURL {
			link, err := s.proofs.ReadURL(row.ProofKey)
			if err != nil {
				s.logWarn(ctx, fmt.Sprintf("proof url unavailable for payment %s: %v", row.ID, err))
			} else {
				dto.ProofURL = link
			}
		}
		out.Items = append(out.Items, dto)
	}
	return out, nil
}

// Approve marks a pending payment approved and, when the payment names a
// tenant, activates that tenant's newest pending subscription for one
// calendar month and refreshes the clinic entitlement cache. Every write
// commits together; the failed step is reported in the error details.
func (s *service) Approve(ctx context.Context, paymentID, reviewerID uuid.UUID) (*ReviewResult, error) {
	if _, err := s.admins.RequireSuperAdmin(ctx, reviewerID); err != nil {
		s.metrics.Review("approve", "forbidden")
		return nil, err
	}
	ctx = s.withLogFields(ctx, map[string]any{
		"payment_id":  paymentID.String(),
		"reviewer_id": reviewerID.String(),
	})

	now := s.now().UTC()
	var (
		payment   *models.ManualPayment
		activated *models.Subscription
	)
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = s.loadPending(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if err := s.decide(ctx, tx, payment, Decision{
			Status:     enums.PaymentStatusApproved,
			ReviewedBy: reviewerID,
			ReviewedAt: now,
		}); err != nil {
			return err
		}

		tenantID := payment.TenantID()
		plan := payment.PlanTier
		if tenantID != nil {
			subs := s.subs.WithTx(tx)
			pending, err := subs.NewestPending(ctx, payment.TenantKind, *tenantID)
			if err != nil {
				return stepError(err, "find_pending_subscription")
			}
			if pending != nil {
				start, end := subscriptions.Period(now)
				ok, err := subs.Activate(ctx, pending.ID, start, end)
				if err != nil {
					return stepError(err, "activate_subscription")
				}
				if !ok {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is no longer pending").
						WithStep("activate_subscription")
				}
				pending.Status = enums.SubscriptionStatusApproved
				pending.CurrentPeriodStart = &start
				pending.CurrentPeriodEnd = &end
				activated = pending
				plan = pending.Plan
			}
			if payment.TenantKind == enums.TenantKindClinic {
				if err := s.clinics.UpdateEntitlementWithTx(tx, *tenantID, enums.ClinicSubscriptionActive, &plan, now); err != nil {
					return stepError(err, "update_clinic_entitlement")
				}
			}
		}

		if err := s.emitReviewed(ctx, tx, payment, enums.EventManualPaymentApproved); err != nil {
			return err
		}
		if activated != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventSubscriptionActivated,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   activated.ID,
				Actor:         &outbox.ActorRef{UserID: reviewerID, Role: string(enums.SystemRoleSuperAdmin)},
				OccurredAt:    now,
				Data: outbox.SubscriptionActivated{
					SubscriptionID:     activated.ID,
					PaymentID:          payment.ID,
					TenantKind:         payment.TenantKind,
					TenantID:           *tenantID,
					Plan:               activated.Plan,
					CurrentPeriodStart: *activated.CurrentPeriodStart,
					CurrentPeriodEnd:   *activated.CurrentPeriodEnd,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return stepError(err, "emit_event")
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.Review("approve", outcomeFor(err))
		s.logError(ctx, "payment approval failed", err)
		return nil, err
	}

	s.metrics.Review("approve", "ok")
	if activated == nil {
		s.logInfo(ctx, "payment approved without pending subscription")
	} else {
		s.logInfo(ctx, "payment approved and subscription activated")
	}
	return &ReviewResult{
		Payment:      ToPaymentDTO(*payment),
		Subscription: subscriptionDTOPtr(activated),
	}, nil
}

// Reject marks a pending payment rejected with a mandatory reason. Pending
// subscriptions created alongside the payment are rejected with it.
func (s *service) Reject(ctx context.Context, paymentID, reviewerID uuid.UUID, reason string) (*ReviewResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		s.metrics.Review("reject", "invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}
	if _, err := s.admins.RequireSuperAdmin(ctx, reviewerID); err != nil {
		s.metrics.Review("reject", "forbidden")
		return nil, err
	}
	ctx = s.withLogFields(ctx, map[string]any{
		"payment_id":  paymentID.String(),
		"reviewer_id": reviewerID.String(),
	})

	now := s.now().UTC()
	var payment *models.ManualPayment
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = s.loadPending(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if err := s.decide(ctx, tx, payment, Decision{
			Status:     enums.PaymentStatusRejected,
			ReviewedBy: reviewerID,
			ReviewedAt: now,
			Reason:     &reason,
		}); err != nil {
			return err
		}
		if _, err := s.subs.WithTx(tx).RejectForPayment(ctx, payment.ID, now); err != nil {
			return stepError(err, "reject_subscription")
		}
		return s.emitReviewed(ctx, tx, payment, enums.EventManualPaymentRejected)
	})
	if err != nil {
		s.metrics.Review("reject", outcomeFor(err))
		s.logError(ctx, "payment rejection failed", err)
		return nil, err
	}

	s.metrics.Review("reject", "ok")
	s.logInfo(ctx, "payment rejected")
	return &ReviewResult{Payment: ToPaymentDTO(*payment)}, nil
}

func (s *service) loadPending(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) (*models.ManualPayment, error) {
	payment, err := s.repo.WithTx(tx).FindByID(ctx, paymentID)
	if err != nil {
		return nil, stepError(err, "load_payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment has already been reviewed").
			WithDetails(map[string]any{"status": payment.Status})
	}
	return payment, nil
}

func (s *service) decide(ctx context.Context, tx *gorm.DB, payment *models.ManualPayment, decision Decision) error {
	ok, err := s.repo.WithTx(tx).Decide(ctx, payment.ID, decision)
	if err != nil {
		return stepError(err, "update_payment")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment has already been reviewed").
			WithStep("update_payment")
	}
	payment.Status = decision.Status
	payment.ReviewedBy = &decision.ReviewedBy
	reviewedAt := decision.ReviewedAt
	payment.ReviewedAt = &reviewedAt
	payment.RejectionReason = decision.Reason
	payment.UpdatedAt = decision.ReviewedAt
	return nil
}

func (s *service) emitReviewed(ctx context.Context, tx *gorm.DB, payment *models.ManualPayment, eventType enums.OutboxEventType) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateManualPayment,
		AggregateID:   payment.ID,
		Actor:         &outbox.ActorRef{UserID: *payment.ReviewedBy, Role: string(enums.SystemRoleSuperAdmin)},
		OccurredAt:    *payment.ReviewedAt,
		Data: outbox.ManualPaymentReviewed{
			PaymentID:       payment.ID,
			PayerUserID:     payment.PayerUserID,
			Status:          payment.Status,
			ReviewedBy:      *payment.ReviewedBy,
			ReviewedAt:      *payment.ReviewedAt,
			RejectionReason: payment.RejectionReason,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return stepError(err, "emit_event")
	}
	return nil
}

func (s *service) withLogFields(ctx context.Context, fields map[string]any) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, fields)
}

func (s *service) logInfo(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}

func (s *service) logWarn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

// stepError wraps a persistence failure and names the step that failed.
// Typed errors pass through untouched.
func stepError(err error, step string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment workflow step failed").
		WithStep(step)
}

func outcomeFor(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeStateConflict:
			return "conflict"
		case pkgerrors.CodeNotFound:
			return "not_found"
		case pkgerrors.CodeForbidden:
			return "forbidden"
		}
	}
	return "error"
}

func setTenant(kind enums.TenantKind, tenantID *uuid.UUID, clinicID, supplierID **uuid.UUID) {
	if tenantID == nil {
		return
	}
	id := *tenantID
	if kind == enums.TenantKindSupplier {
		*supplierID = &id
		return
	}
	*clinicID = &id
}

func subscriptionID(sub *models.Subscription) *uuid.UUID {
	if sub == nil {
		return nil
	}
	id := sub.ID
	return &id
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
