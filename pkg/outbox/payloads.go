package outbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// ManualPaymentSubmitted is emitted when a payer submits proof of payment.
type ManualPaymentSubmitted struct {
	PaymentID      uuid.UUID           `json:"paymentId"`
	PayerUserID    uuid.UUID           `json:"payerUserId"`
	TenantKind     enums.TenantKind    `json:"tenantKind"`
	TenantID       *uuid.UUID          `json:"tenantId,omitempty"`
	PlanTier       enums.PlanTier      `json:"planTier"`
	Method         enums.PaymentMethod `json:"method"`
	AmountIQD      int64               `json:"amountIqd"`
	SubscriptionID *uuid.UUID          `json:"subscriptionId,omitempty"`
}

// ManualPaymentReviewed is emitted for both approvals and rejections.
type ManualPaymentReviewed struct {
	PaymentID       uuid.UUID           `json:"paymentId"`
	PayerUserID     uuid.UUID           `json:"payerUserId"`
	Status          enums.PaymentStatus `json:"status"`
	ReviewedBy      uuid.UUID           `json:"reviewedBy"`
	ReviewedAt      time.Time           `json:"reviewedAt"`
	RejectionReason *string             `json:"rejectionReason,omitempty"`
}

// SubscriptionActivated is emitted when an approval starts a billing period.
type SubscriptionActivated struct {
	SubscriptionID     uuid.UUID        `json:"subscriptionId"`
	PaymentID          uuid.UUID        `json:"paymentId"`
	TenantKind         enums.TenantKind `json:"tenantKind"`
	TenantID           uuid.UUID        `json:"tenantId"`
	Plan               enums.PlanTier   `json:"plan"`
	CurrentPeriodStart time.Time        `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time        `json:"currentPeriodEnd"`
}

// TenantBootstrapped is emitted once a clinic or supplier is created.
type TenantBootstrapped struct {
	TenantKind        enums.TenantKind `json:"tenantKind"`
	TenantID          uuid.UUID        `json:"tenantId"`
	OwnerUserID       uuid.UUID        `json:"ownerUserId"`
	Plan              enums.PlanTier   `json:"plan"`
	EntitlementSource string           `json:"entitlementSource"`
}

// ClinicEntitlementExpired is emitted when a clinic's cached status lapses.
type ClinicEntitlementExpired struct {
	ClinicID         uuid.UUID `json:"clinicId"`
	SubscriptionID   uuid.UUID `json:"subscriptionId"`
	CurrentPeriodEnd time.Time `json:"currentPeriodEnd"`
}
