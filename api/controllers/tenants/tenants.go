package tenants

import (
	"context"
	"net/http"

	"github.com/dentaldesk/dentaldesk-backend/api/middleware"
	"github.com/dentaldesk/dentaldesk-backend/api/responses"
	"github.com/dentaldesk/dentaldesk-backend/api/validators"
	tenantsvc "github.com/dentaldesk/dentaldesk-backend/internal/tenants"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

type bootstrapRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,phone,max=32"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
}

type bootstrapFunc func(ctx context.Context, input tenantsvc.BootstrapInput) (*tenantsvc.BootstrapResult, error)

// Entitlement reports whether the caller may bootstrap a tenant of the
// requested kind and which record grants it.
func Entitlement(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		kind, err := validators.ParseQueryEnum(r, "tenant_kind", enums.ParseTenantKind)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if kind == nil {
			clinic := enums.TenantKindClinic
			kind = &clinic
		}
		entitlement, err := svc.CheckEntitlement(ctx, userID, *kind)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, entitlement)
	}
}

func BootstrapClinic(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return bootstrap(nil, logg)
	}
	return bootstrap(svc.BootstrapClinic, logg)
}

func BootstrapSupplier(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return bootstrap(nil, logg)
	}
	return bootstrap(svc.BootstrapSupplier, logg)
}

// bootstrap answers 201 when a tenant was created and 200 with
// entitled=false when the caller has no approved payment yet.
func bootstrap(run bootstrapFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if run == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload bootstrapRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := run(ctx, tenantsvc.BootstrapInput{
			UserID:   userID,
			Name:     payload.Name,
			Phone:    payload.Phone,
			Email:    payload.Email,
			Address:  payload.Address,
			FullName: payload.FullName,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if result.Tenant == nil {
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
