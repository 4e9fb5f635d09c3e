package payments

import (
	"net/http"

	"github.com/dentaldesk/dentaldesk-backend/api/middleware"
	"github.com/dentaldesk/dentaldesk-backend/api/responses"
	"github.com/dentaldesk/dentaldesk-backend/api/validators"
	paymentsvc "github.com/dentaldesk/dentaldesk-backend/internal/payments"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/logger"
	"github.com/dentaldesk/dentaldesk-backend/pkg/pagination"
)

const (
	maxNameLen  = 120
	maxPhoneLen = 32
	maxRefLen   = 128
	maxNotesLen = 1000
)

// PaymentSubmit accepts a multipart proof-of-payment submission. The proof
// travels in the "proof" file part; everything else is a plain form field.
func PaymentSubmit(svc paymentsvc.Service, maxProofBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxProofBytes); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		kind, err := enums.ParseTenantKind(validators.FormValue(r, "tenant_kind", 16))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tenant_kind"))
			return
		}
		plan, err := enums.ParsePlanTier(validators.FormValue(r, "plan", 16))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan"))
			return
		}
		method, err := enums.ParsePaymentMethod(validators.FormValue(r, "method", 32))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method"))
			return
		}
		senderPhone := validators.FormValue(r, "sender_phone", maxPhoneLen)
		if senderPhone != "" && !validators.IsPhone(senderPhone) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid sender_phone").
				WithDetails(map[string]any{"field": "sender_phone"}))
			return
		}
		proof, err := validators.FormFileBytes(r, "proof", maxProofBytes)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Submit(ctx, paymentsvc.SubmitInput{
			PayerUserID:    userID,
			TenantKind:     kind,
			Plan:           plan,
			Method:         method,
			DisplayPrice:   validators.FormValue(r, "display_price", 64),
			SenderName:     validators.FormValue(r, "sender_name", maxNameLen),
			SenderPhone:    senderPhone,
			TransactionRef: validators.OptionalFormValue(r, "transaction_ref", maxRefLen),
			Notes:          validators.OptionalFormValue(r, "notes", maxNotesLen),
			Proof:          proof,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentListMine lists the caller's own submissions, newest first.
func PaymentListMine(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter, err := ParseListFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.ListMine(ctx, userID, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ParseListFilter reads status, tenant_kind, limit and cursor query params.
func ParseListFilter(r *http.Request) (paymentsvc.ListFilter, error) {
	status, err := validators.ParseQueryEnum(r, "status", enums.ParsePaymentStatus)
	if err != nil {
		return paymentsvc.ListFilter{}, err
	}
	kind, err := validators.ParseQueryEnum(r, "tenant_kind", enums.ParseTenantKind)
	if err != nil {
		return paymentsvc.ListFilter{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return paymentsvc.ListFilter{}, err
	}
	return paymentsvc.ListFilter{
		Status:     status,
		TenantKind: kind,
		Params: pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		},
	}, nil
}
