package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/internal/repo"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscription *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	Current(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error)
	NewestPending(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error)
	Activate(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error)
	RejectForPayment(ctx context.Context, paymentID uuid.UUID, at time.Time) (int64, error)
	ReattachOrphans(ctx context.Context, kind enums.TenantKind, userID, tenantID uuid.UUID, at time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

// TenantColumn names the foreign key column for the tenant kind.
func TenantColumn(kind enums.TenantKind) string {
	if kind == enums.TenantKindSupplier {
		return "supplier_id"
	}
	return "clinic_id"
}

func (r *repository) Create(ctx context.Context, subscription *models.Subscription) error {
	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	return r.DB(ctx).Create(subscription).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	found, err := repo.FirstOrNil(r.DB(ctx).Where("id = ?", id), &sub)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}

// Current returns the newest subscription for the tenant that is neither
// pending nor rejected. Rows sharing a created_at are ordered by id so the
// answer is stable.
func (r *repository) Current(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	q := r.DB(ctx).
		Where(TenantColumn(kind)+" = ?", tenantID).
		Where("status NOT IN ?", []enums.SubscriptionStatus{
			enums.SubscriptionStatusPending,
			enums.SubscriptionStatusRejected,
		}).
		Order("created_at DESC").
		Order("id DESC")
	found, err := repo.FirstOrNil(q, &sub)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) NewestPending(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	q := r.DB(ctx).
		Where(TenantColumn(kind)+" = ?", tenantID).
		Where("status = ?", enums.SubscriptionStatusPending).
		Order("created_at DESC").
		Order("id DESC")
	found, err := repo.FirstOrNil(q, &sub)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}

// Activate approves a pending subscription and sets its billing window. It
// reports false when the row was no longer pending.
func (r *repository) Activate(ctx context.Context, id uuid.UUID, start, end time.Time) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, enums.SubscriptionStatusPending).
		Updates(map[string]any{
			"status":               enums.SubscriptionStatusApproved,
			"current_period_start": start,
			"current_period_end":   end,
			"updated_at":           start,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RejectForPayment rejects the pending companion rows of a rejected payment.
func (r *repository) RejectForPayment(ctx context.Context, paymentID uuid.UUID, at time.Time) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("payment_id = ? AND status = ?", paymentID, enums.SubscriptionStatusPending).
		Updates(map[string]any{
			"status":     enums.SubscriptionStatusRejected,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

// ReattachOrphans points the user's approved subscriptions of the given kind
// that have no tenant yet at tenantID. Rows of other users are never touched.
func (r *repository) ReattachOrphans(ctx context.Context, kind enums.TenantKind, userID, tenantID uuid.UUID, at time.Time) (int64, error) {
	res := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Where("tenant_kind = ?", kind).
		Where("status = ?", enums.SubscriptionStatusApproved).
		Where("clinic_id IS NULL AND supplier_id IS NULL").
		Updates(map[string]any{
			TenantColumn(kind): tenantID,
			"updated_at":       at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
