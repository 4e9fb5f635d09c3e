package tenants

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/internal/repo"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// Repository exposes clinic and supplier persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// CreateClinicWithTx inserts a clinic inside the caller's transaction.
func (r *Repository) CreateClinicWithTx(tx *gorm.DB, clinic *models.Clinic) error {
	if clinic.ID == uuid.Nil {
		clinic.ID = uuid.New()
	}
	return tx.Create(clinic).Error
}

// CreateSupplierWithTx inserts a supplier inside the caller's transaction.
func (r *Repository) CreateSupplierWithTx(tx *gorm.DB, supplier *models.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	return tx.Create(supplier).Error
}

// FindClinic loads a clinic by id, or nil.
func (r *Repository) FindClinic(ctx context.Context, id uuid.UUID) (*models.Clinic, error) {
	var clinic models.Clinic
	found, err := repo.FirstOrNil(r.DB(ctx).Where("id = ?", id), &clinic)
	if err != nil || !found {
		return nil, err
	}
	return &clinic, nil
}

// FindSupplier loads a supplier by id, or nil.
func (r *Repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	found, err := repo.FirstOrNil(r.DB(ctx).Where("id = ?", id), &supplier)
	if err != nil || !found {
		return nil, err
	}
	return &supplier, nil
}

// UpdateEntitlementWithTx rewrites the clinic's cached subscription status.
// A nil plan leaves the cached plan unchanged.
func (r *Repository) UpdateEntitlementWithTx(tx *gorm.DB, clinicID uuid.UUID, status enums.ClinicSubscriptionStatus, plan *enums.PlanTier, at time.Time) error {
	updates := map[string]any{
		"subscription_status": status,
		"updated_at":          at,
	}
	if plan != nil {
		updates["subscription_plan"] = *plan
	}
	return tx.Model(&models.Clinic{}).Where("id = ?", clinicID).Updates(updates).Error
}

// ListClinicsByStatus pages through clinics with the given cached status in
// id order, starting after afterID.
func (r *Repository) ListClinicsByStatus(ctx context.Context, status enums.ClinicSubscriptionStatus, afterID *uuid.UUID, limit int) ([]models.Clinic, error) {
	q := r.DB(ctx).Where("subscription_status = ?", status)
	if afterID != nil {
		q = q.Where("id > ?", *afterID)
	}
	var clinics []models.Clinic
	err := q.Order("id ASC").Limit(limit).Find(&clinics).Error
	return clinics, err
}
