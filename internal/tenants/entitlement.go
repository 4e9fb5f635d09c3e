package tenants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/internal/repo"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// EntitlementSource names which record proved a user's entitlement.
type EntitlementSource string

const (
	EntitlementNone         EntitlementSource = "none"
	EntitlementPayment      EntitlementSource = "payment"
	EntitlementSubscription EntitlementSource = "subscription"
)

// Entitlement is the outcome of the bootstrap entitlement check.
type Entitlement struct {
	Entitled       bool              `json:"entitled"`
	Source         EntitlementSource `json:"source"`
	TenantKind     enums.TenantKind  `json:"tenant_kind"`
	Plan           *enums.PlanTier   `json:"plan,omitempty"`
	PaymentID      *uuid.UUID        `json:"payment_id,omitempty"`
	SubscriptionID *uuid.UUID        `json:"subscription_id,omitempty"`
}

// EntitlementRepository answers the entitlement queries.
type EntitlementRepository struct {
	repo.Base
}

// NewEntitlementRepository binds the repo to the provided GORM connection.
func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{Base: repo.NewBase(db)}
}

// ApprovedSubscription returns the user's newest approved subscription of the
// given kind whose payment was also approved, or nil.
func (r *EntitlementRepository) ApprovedSubscription(ctx context.Context, kind enums.TenantKind, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	q := r.DB(ctx).
		Model(&models.Subscription{}).
		Select("subscriptions.*").
		Joins("JOIN manual_payments ON manual_payments.id = subscriptions.payment_id").
		Where("subscriptions.tenant_kind = ?", kind).
		Where("subscriptions.status = ?", enums.SubscriptionStatusApproved).
		Where("manual_payments.status = ?", enums.PaymentStatusApproved).
		Where("manual_payments.payer_user_id = ?", userID).
		Order("subscriptions.created_at DESC").
		Order("subscriptions.id DESC")
	found, err := repo.FirstOrNil(q, &sub)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}
