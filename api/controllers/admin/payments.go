package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	paymentcontrollers "github.com/dentaldesk/dentaldesk-backend/api/controllers/payments"
	"github.com/dentaldesk/dentaldesk-backend/api/middleware"
	"github.com/dentaldesk/dentaldesk-backend/api/responses"
	"github.com/dentaldesk/dentaldesk-backend/api/validators"
	paymentsvc "github.com/dentaldesk/dentaldesk-backend/internal/payments"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
)

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=1000"`
}

// statusAll lifts the default pending filter on the review list.
const statusAll = "all"

// AdminPaymentsList returns submissions for review with signed proof URLs.
// Only pending payments are listed unless status is given; status=all lists
// every status.
func AdminPaymentsList(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		reviewerID, err := middleware.RequireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter, err := reviewListFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ListForReview(ctx, reviewerID, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminPaymentApprove(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		reviewerID, paymentID, err := reviewTarget(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Approve(ctx, paymentID, reviewerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminPaymentReject(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		reviewerID, paymentID, err := reviewTarget(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var payload rejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Reject(ctx, paymentID, reviewerID, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func reviewTarget(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	reviewerID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id")
	}
	return reviewerID, paymentID, nil
}

func reviewListFilter(r *http.Request) (paymentsvc.ListFilter, error) {
	query := r.URL.Query()
	all := query.Get("status") == statusAll
	if all {
		query.Del("status")
		r = r.Clone(r.Context())
		r.URL.RawQuery = query.Encode()
	}
	filter, err := paymentcontrollers.ParseListFilter(r)
	if err != nil {
		return paymentsvc.ListFilter{}, err
	}
	if filter.Status == nil && !all {
		pending := enums.PaymentStatusPending
		filter.Status = &pending
	}
	return filter, nil
}
