package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// Clinic is a dental-clinic tenant. SubscriptionStatus and SubscriptionPlan
// cache the entitlement the resolver derives from subscriptions.
type Clinic struct {
	ID                 uuid.UUID                      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string                         `gorm:"column:name;not null"`
	Phone              *string                        `gorm:"column:phone"`
	Email              *string                        `gorm:"column:email"`
	Address            *string                        `gorm:"column:address"`
	OwnerUserID        uuid.UUID                      `gorm:"column:owner_user_id;type:uuid;not null"`
	SubscriptionStatus enums.ClinicSubscriptionStatus `gorm:"column:subscription_status;not null;default:'inactive'"`
	SubscriptionPlan   *enums.PlanTier                `gorm:"column:subscription_plan"`
	CreatedAt          time.Time                      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                      `gorm:"column:updated_at;autoUpdateTime"`
}
