package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
)

// Profile links an authentication identity to at most one tenant.
type Profile struct {
	ID         uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	FullName   *string           `gorm:"column:full_name"`
	Email      *string           `gorm:"column:email"`
	ClinicID   *uuid.UUID        `gorm:"column:clinic_id;type:uuid"`
	SupplierID *uuid.UUID        `gorm:"column:supplier_id;type:uuid"`
	Role       *enums.MemberRole `gorm:"column:role"`
	SystemRole enums.SystemRole  `gorm:"column:system_role;not null;default:'user'"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TenantID returns the tenant of the given kind this profile belongs to.
func (p Profile) TenantID(kind enums.TenantKind) *uuid.UUID {
	if kind == enums.TenantKindSupplier {
		return p.SupplierID
	}
	return p.ClinicID
}

// HasTenant reports whether the profile is linked to any clinic or supplier.
func (p Profile) HasTenant() bool {
	return p.ClinicID != nil || p.SupplierID != nil
}

// IsSuperAdmin reports whether the profile bypasses tenant scoping.
func (p Profile) IsSuperAdmin() bool {
	return p.SystemRole == enums.SystemRoleSuperAdmin
}
