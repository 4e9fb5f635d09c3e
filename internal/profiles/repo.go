package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dentaldesk/dentaldesk-backend/internal/repo"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// Repository exposes profile persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByUserID returns the profile of the authentication identity, or nil.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	found, err := repo.FirstOrNil(r.DB(ctx).Where("user_id = ?", userID), &profile)
	if err != nil || !found {
		return nil, err
	}
	return &profile, nil
}

// CreateWithTx inserts a profile inside the caller's transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.SystemRole == "" {
		profile.SystemRole = enums.SystemRoleUser
	}
	return tx.Create(profile).Error
}

// LinkTenantWithTx points an unlinked profile at tenantID and sets its
// functional role. It reports false when the profile was already linked to
// a clinic or supplier.
func (r *Repository) LinkTenantWithTx(tx *gorm.DB, userID uuid.UUID, kind enums.TenantKind, tenantID uuid.UUID, role enums.MemberRole, at time.Time) (bool, error) {
	column := "clinic_id"
	if kind == enums.TenantKindSupplier {
		column = "supplier_id"
	}
	res := tx.Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Where("clinic_id IS NULL AND supplier_id IS NULL").
		Updates(map[string]any{
			column:       tenantID,
			"role":       role,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
