package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// Subscription is one billing period request for a clinic or supplier.
// At most one of ClinicID and SupplierID is set; both are nil while orphaned.
type Subscription struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantKind         enums.TenantKind         `gorm:"column:tenant_kind;not null"`
	ClinicID           *uuid.UUID               `gorm:"column:clinic_id;type:uuid;index"`
	SupplierID         *uuid.UUID               `gorm:"column:supplier_id;type:uuid;index"`
	UserID             uuid.UUID                `gorm:"column:user_id;type:uuid;not null"`
	PaymentID          *uuid.UUID               `gorm:"column:payment_id;type:uuid"`
	Plan               enums.PlanTier           `gorm:"column:plan;not null"`
	Status             enums.SubscriptionStatus `gorm:"column:status;not null;default:'pending'"`
	AmountIQD          int64                    `gorm:"column:amount_iqd;not null"`
	AmountUSD          decimal.Decimal          `gorm:"column:amount_usd;type:numeric(12,2);not null"`
	PaymentMethod      enums.PaymentMethod      `gorm:"column:payment_method;not null"`
	CurrentPeriodStart *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd   *time.Time               `gorm:"column:current_period_end"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
