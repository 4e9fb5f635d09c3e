package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/internal/repo"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	"github.com/dentaldesk/dentaldesk-backend/pkg/pagination"
)

// Repository handles manual payment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.ManualPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ManualPayment, error)
	List(ctx context.Context, query ListQuery) ([]models.ManualPayment, error)
	Decide(ctx context.Context, id uuid.UUID, decision Decision) (bool, error)
	NewestApproved(ctx context.Context, kind enums.TenantKind, userID uuid.UUID) (*models.ManualPayment, error)
	ReattachOrphans(ctx context.Context, kind enums.TenantKind, userID, tenantID uuid.UUID, at time.Time) (int64, error)
	CountPendingSince(ctx context.Context, before time.Time) (int64, error)
}

// ListQuery configures payment list queries. Rows come back newest first.
type ListQuery struct {
	Status      *enums.PaymentStatus
	TenantKind  *enums.TenantKind
	PayerUserID *uuid.UUID
	Cursor      *pagination.Cursor
	Limit       int
}

// Decision is the terminal review outcome written to a pending payment.
type Decision struct {
	Status     enums.PaymentStatus
	ReviewedBy uuid.UUID
	ReviewedAt time.Time
	Reason     *string
}

type repository struct {
	repo.Base
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, payment *models.ManualPayment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.DB(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ManualPayment, error) {
	var payment models.ManualPayment
	found, err := repo.FirstOrNil(r.DB(ctx).Where("id = ?", id), &payment)
	if err != nil || !found {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.ManualPayment, error) {
	q := r.DB(ctx).Model(&models.ManualPayment{})
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.TenantKind != nil {
		q = q.Where("tenant_kind = ?", *query.TenantKind)
	}
	if query.PayerUserID != nil {
		q = q.Where("payer_user_id = ?", *query.PayerUserID)
	}
	var rows []models.ManualPayment
	err := q.Scopes(pagination.Keyset(query.Cursor, query.Limit)).Find(&rows).Error
	return rows, err
}

// Decide moves a pending payment to its terminal status. It reports false
// when the payment was no longer pending, which is how concurrent reviews of
// the same payment are detected.
func (r *repository) Decide(ctx context.Context, id uuid.UUID, decision Decision) (bool, error) {
	res := r.DB(ctx).
		Model(&models.ManualPayment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":           decision.Status,
			"reviewed_by":      decision.ReviewedBy,
			"reviewed_at":      decision.ReviewedAt,
			"rejection_reason": decision.Reason,
			"updated_at":       decision.ReviewedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) NewestApproved(ctx context.Context, kind enums.TenantKind, userID uuid.UUID) (*models.ManualPayment, error) {
	var payment models.ManualPayment
	q := r.DB(ctx).
		Where("payer_user_id = ?", userID).
		Where("tenant_kind = ?", kind).
		Where("status = ?", enums.PaymentStatusApproved).
		Order("created_at DESC").
		Order("id DESC")
	found, err := repo.FirstOrNil(q, &payment)
	if err != nil || !found {
		return nil, err
	}
	return &payment, nil
}

// ReattachOrphans points the payer's approved payments of the given kind that
// have no tenant yet at tenantID.
func (r *repository) ReattachOrphans(ctx context.Context, kind enums.TenantKind, userID, tenantID uuid.UUID, at time.Time) (int64, error) {
	column := "clinic_id"
	if kind == enums.TenantKindSupplier {
		column = "supplier_id"
	}
	res := r.DB(ctx).
		Model(&models.ManualPayment{}).
		Where("payer_user_id = ?", userID).
		Where("tenant_kind = ?", kind).
		Where("status = ?", enums.PaymentStatusApproved).
		Where("clinic_id IS NULL AND supplier_id IS NULL").
		Updates(map[string]any{
			column:       tenantID,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) CountPendingSince(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.ManualPayment{}).
		Where("status = ?", enums.PaymentStatusPending).
		Where("created_at < ?", before).
		Count(&count).Error
	return count, err
}
