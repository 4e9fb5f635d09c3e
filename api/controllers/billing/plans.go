package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/api/controllers/tenantcontext"
	"github.com/dentaldesk/dentaldesk-backend/api/responses"
	"github.com/dentaldesk/dentaldesk-backend/internal/plans"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

// SubscriptionResolver returns a tenant's current subscription.
type SubscriptionResolver interface {
	Current(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error)
}

type plansResponse struct {
	TenantKind  enums.TenantKind `json:"tenant_kind"`
	CurrentPlan *enums.PlanTier  `json:"current_plan,omitempty"`
	Plans       []plans.Quote    `json:"plans"`
}

// PlansList prices every tier for the caller's tenant kind. The current
// plan is re-derived from the subscription resolver on every call.
func PlansList(profiles tenantcontext.ProfileReader, resolver SubscriptionResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if profiles == nil || resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}
		caller, err := tenantcontext.Resolve(r, profiles)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var current *enums.PlanTier
		if caller.TenantID != nil {
			sub, err := resolver.Current(ctx, caller.Kind, *caller.TenantID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if sub != nil {
				plan := sub.Plan
				current = &plan
			}
		}

		responses.WriteSuccess(w, plansResponse{
			TenantKind:  caller.Kind,
			CurrentPlan: current,
			Plans:       plans.Quotes(caller.Kind, current),
		})
	}
}
