package subscriptions

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/api/controllers/tenantcontext"
	"github.com/dentaldesk/dentaldesk-backend/api/responses"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

// Resolver returns a tenant's current subscription.
type Resolver interface {
	Current(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error)
}

type subscriptionResponse struct {
	ID                 uuid.UUID                `json:"id"`
	Plan               enums.PlanTier           `json:"plan"`
	Status             enums.SubscriptionStatus `json:"status"`
	AmountIQD          int64                    `json:"amount_iqd"`
	AmountUSD          string                   `json:"amount_usd"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	Expired            bool                     `json:"expired"`
}

type currentResponse struct {
	TenantKind   enums.TenantKind      `json:"tenant_kind"`
	TenantID     *uuid.UUID            `json:"tenant_id,omitempty"`
	Subscription *subscriptionResponse `json:"subscription"`
}

// SubscriptionCurrent returns the caller's current subscription, or a null
// subscription when the tenant has none or does not exist yet.
func SubscriptionCurrent(profiles tenantcontext.ProfileReader, resolver Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if profiles == nil || resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}
		caller, err := tenantcontext.Resolve(r, profiles)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := currentResponse{TenantKind: caller.Kind, TenantID: caller.TenantID}
		if caller.TenantID != nil {
			sub, err := resolver.Current(ctx, caller.Kind, *caller.TenantID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			resp.Subscription = newSubscriptionResponse(sub, time.Now())
		}
		responses.WriteSuccess(w, resp)
	}
}

func newSubscriptionResponse(sub *models.Subscription, now time.Time) *subscriptionResponse {
	if sub == nil {
		return nil
	}
	return &subscriptionResponse{
		ID:                 sub.ID,
		Plan:               sub.Plan,
		Status:             sub.Status,
		AmountIQD:          sub.AmountIQD,
		AmountUSD:          sub.AmountUSD.StringFixed(2),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		Expired:            sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.Before(now),
	}
}
