package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	"github.com/dentaldesk/dentaldesk-backend/pkg/pagination"
)

// SubmitInput carries a payer's proof-of-payment submission.
type SubmitInput struct {
	PayerUserID    uuid.UUID
	TenantKind     enums.TenantKind
	Plan           enums.PlanTier
	Method         enums.PaymentMethod
	DisplayPrice   string
	SenderName     string
	SenderPhone    string
	TransactionRef *string
	Notes          *string
	Proof          []byte
}

// ListFilter narrows admin and payer payment lists.
type ListFilter struct {
	Status     *enums.PaymentStatus
	TenantKind *enums.TenantKind
	Params     pagination.Params
}

// PaymentDTO is the API representation of a manual payment.
type PaymentDTO struct {
	ID              uuid.UUID           `json:"id"`
	PayerUserID     uuid.UUID           `json:"payer_user_id"`
	TenantKind      enums.TenantKind    `json:"tenant_kind"`
	TenantID        *uuid.UUID          `json:"tenant_id,omitempty"`
	Plan            enums.PlanTier      `json:"plan"`
	Method          enums.PaymentMethod `json:"method"`
	AmountIQD       int64               `json:"amount_iqd"`
	SenderName      string              `json:"sender_name"`
	SenderPhone     string              `json:"sender_phone"`
	TransactionRef  *string             `json:"transaction_ref,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	Status          enums.PaymentStatus `json:"status"`
	ProofKey        string              `json:"proof_key"`
	ProofURL        string              `json:"proof_url,omitempty"`
	ReviewedBy      *uuid.UUID          `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time          `json:"reviewed_at,omitempty"`
	RejectionReason *string             `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// SubscriptionDTO is the API representation of a subscription row.
type SubscriptionDTO struct {
	ID                 uuid.UUID                `json:"id"`
	TenantKind         enums.TenantKind         `json:"tenant_kind"`
	TenantID           *uuid.UUID               `json:"tenant_id,omitempty"`
	PaymentID          *uuid.UUID               `json:"payment_id,omitempty"`
	Plan               enums.PlanTier           `json:"plan"`
	Status             enums.SubscriptionStatus `json:"status"`
	AmountIQD          int64                    `json:"amount_iqd"`
	AmountUSD          string                   `json:"amount_usd"`
	PaymentMethod      enums.PaymentMethod      `json:"payment_method"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
}

// SubmitResult is returned after a successful submission. Subscription is
// nil when the payer had no tenant of the requested kind yet.
type SubmitResult struct {
	Payment      PaymentDTO       `json:"payment"`
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
	PriceCheck   PriceCheck       `json:"price_check"`
}

// PriceCheck compares the amount the payer entered with the upgrade price
// from the tier table. A mismatch is recorded for the reviewer, not rejected.
type PriceCheck struct {
	ExpectedAmountIQD int64 `json:"expected_amount_iqd"`
	Mismatch          bool  `json:"mismatch"`
}

// ReviewResult is returned after an approval or rejection. Subscription is
// the row activated by an approval, if any.
type ReviewResult struct {
	Payment      PaymentDTO       `json:"payment"`
	Subscription *SubscriptionDTO `json:"subscription,omitempty"`
}

// ToPaymentDTO maps a payment row to its API shape.
func ToPaymentDTO(m models.ManualPayment) PaymentDTO {
	return PaymentDTO{
		ID:              m.ID,
		PayerUserID:     m.PayerUserID,
		TenantKind:      m.TenantKind,
		TenantID:        m.TenantID(),
		Plan:            m.PlanTier,
		Method:          m.Method,
		AmountIQD:       m.AmountIQD,
		SenderName:      m.SenderName,
		SenderPhone:     m.SenderPhone,
		TransactionRef:  m.TransactionRef,
		Notes:           m.Notes,
		Status:          m.Status,
		ProofKey:        m.ProofKey,
		ReviewedBy:      m.ReviewedBy,
		ReviewedAt:      m.ReviewedAt,
		RejectionReason: m.RejectionReason,
		CreatedAt:       m.CreatedAt,
	}
}

// ToSubscriptionDTO maps a subscription row to its API shape.
func ToSubscriptionDTO(m models.Subscription) SubscriptionDTO {
	tenantID := m.ClinicID
	if m.TenantKind == enums.TenantKindSupplier {
		tenantID = m.SupplierID
	}
	return SubscriptionDTO{
		ID:                 m.ID,
		TenantKind:         m.TenantKind,
		TenantID:           tenantID,
		PaymentID:          m.PaymentID,
		Plan:               m.Plan,
		Status:             m.Status,
		AmountIQD:          m.AmountIQD,
		AmountUSD:          m.AmountUSD.StringFixed(2),
		PaymentMethod:      m.PaymentMethod,
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		CreatedAt:          m.CreatedAt,
	}
}

func subscriptionDTOPtr(m *models.Subscription) *SubscriptionDTO {
	if m == nil {
		return nil
	}
	dto := ToSubscriptionDTO(*m)
	return &dto
}
