package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// ManualPayment is a payer-submitted proof of an offline payment awaiting review.
// ClinicID and SupplierID stay nil until the payer's tenant exists.
type ManualPayment struct {
	ID              uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PayerUserID     uuid.UUID           `gorm:"column:payer_user_id;type:uuid;not null;index"`
	TenantKind      enums.TenantKind    `gorm:"column:tenant_kind;not null"`
	ClinicID        *uuid.UUID          `gorm:"column:clinic_id;type:uuid"`
	SupplierID      *uuid.UUID          `gorm:"column:supplier_id;type:uuid"`
	PlanTier        enums.PlanTier      `gorm:"column:plan_tier;not null"`
	Method          enums.PaymentMethod `gorm:"column:method;not null"`
	AmountIQD       int64               `gorm:"column:amount_iqd;not null"`
	ProofKey        string              `gorm:"column:proof_key;not null"`
	SenderName      string              `gorm:"column:sender_name;not null"`
	SenderPhone     string              `gorm:"column:sender_phone;not null"`
	TransactionRef  *string             `gorm:"column:transaction_ref"`
	Notes           *string             `gorm:"column:notes"`
	Status          enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	ReviewedBy      *uuid.UUID          `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt      *time.Time          `gorm:"column:reviewed_at"`
	RejectionReason *string             `gorm:"column:rejection_reason"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TenantID returns the tenant reference matching the payment's tenant kind.
func (m ManualPayment) TenantID() *uuid.UUID {
	if m.TenantKind == enums.TenantKindSupplier {
		return m.SupplierID
	}
	return m.ClinicID
}
