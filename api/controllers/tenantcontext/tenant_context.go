package tenantcontext

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/api/middleware"
	"github.com/dentaldesk/dentaldesk-backend/api/validators"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

// ProfileReader loads the caller's profile.
type ProfileReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Caller is the authenticated user plus the tenant the request is about.
// TenantID is nil when the user has no tenant of Kind yet.
type Caller struct {
	UserID   uuid.UUID
	Kind     enums.TenantKind
	TenantID *uuid.UUID
}

// Resolve reads the caller from the request. The tenant kind comes from the
// tenant_kind query parameter, else from whichever tenant the profile is
// linked to, else clinic. A user without a profile is a caller with no tenant.
func Resolve(r *http.Request, profiles ProfileReader) (*Caller, error) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return nil, err
	}
	kind, err := validators.ParseQueryEnum(r, "tenant_kind", enums.ParseTenantKind)
	if err != nil {
		return nil, err
	}

	profile, err := profiles.Get(r.Context(), userID)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	caller := &Caller{UserID: userID, Kind: enums.TenantKindClinic}
	switch {
	case kind != nil:
		caller.Kind = *kind
	case profile != nil && profile.SupplierID != nil:
		caller.Kind = enums.TenantKindSupplier
	}
	if profile != nil {
		caller.TenantID = profile.TenantID(caller.Kind)
	}
	return caller, nil
}
