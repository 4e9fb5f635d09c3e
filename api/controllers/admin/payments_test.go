package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/dentaldesk-backend/api/middleware"
	paymentsvc "github.com/dentaldesk/dentaldesk-backend/internal/payments"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
	"github.com/dentaldesk/dentaldesk-backend/pkg/pagination"
)

type stubReviewService struct {
	paymentsvc.Service
	approved  []uuid.UUID
	rejected  []string
	reviewErr error
	listed    *paymentsvc.ListFilter
}

func (s *stubReviewService) ListForReview(_ context.Context, _ uuid.UUID, filter paymentsvc.ListFilter) (pagination.Page[paymentsvc.PaymentDTO], error) {
	s.listed = &filter
	return pagination.Page[paymentsvc.PaymentDTO]{Items: []paymentsvc.PaymentDTO{}}, nil
}

func (s *stubReviewService) Approve(_ context.Context, paymentID, _ uuid.UUID) (*paymentsvc.ReviewResult, error) {
	if s.reviewErr != nil {
		return nil, s.reviewErr
	}
	s.approved = append(s.approved, paymentID)
	return &paymentsvc.ReviewResult{Payment: paymentsvc.PaymentDTO{ID: paymentID, Status: enums.PaymentStatusApproved}}, nil
}

func (s *stubReviewService) Reject(_ context.Context, paymentID, _ uuid.UUID, reason string) (*paymentsvc.ReviewResult, error) {
	s.rejected = append(s.rejected, reason)
	return &paymentsvc.ReviewResult{Payment: paymentsvc.PaymentDTO{ID: paymentID, Status: enums.PaymentStatusRejected}}, nil
}

func reviewRouter(svc paymentsvc.Service) http.Handler {
	r := chi.NewRouter()
	r.Post("/payments/{paymentId}/approve", AdminPaymentApprove(svc, nil))
	r.Post("/payments/{paymentId}/reject", AdminPaymentReject(svc, nil))
	return r
}

func reviewRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestAdminPaymentApprove(t *testing.T) {
	svc := &stubReviewService{}
	paymentID := uuid.New()

	resp := httptest.NewRecorder()
	reviewRouter(svc).ServeHTTP(resp, reviewRequest("/payments/"+paymentID.String()+"/approve", ""))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []uuid.UUID{paymentID}, svc.approved)
}

func TestAdminPaymentApproveInvalidID(t *testing.T) {
	svc := &stubReviewService{}
	resp := httptest.NewRecorder()
	reviewRouter(svc).ServeHTTP(resp, reviewRequest("/payments/not-a-uuid/approve", ""))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Empty(t, svc.approved)
}

func TestAdminPaymentApproveForbiddenForNonAdmin(t *testing.T) {
	svc := &stubReviewService{reviewErr: pkgerrors.New(pkgerrors.CodeForbidden, "super admin required")}
	resp := httptest.NewRecorder()
	reviewRouter(svc).ServeHTTP(resp, reviewRequest("/payments/"+uuid.NewString()+"/approve", ""))

	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestAdminPaymentRejectRequiresReason(t *testing.T) {
	svc := &stubReviewService{}
	resp := httptest.NewRecorder()
	reviewRouter(svc).ServeHTTP(resp, reviewRequest("/payments/"+uuid.NewString()+"/reject", `{"reason":""}`))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Empty(t, svc.rejected)
}

func TestAdminPaymentRejectPassesReason(t *testing.T) {
	svc := &stubReviewService{}
	resp := httptest.NewRecorder()
	reviewRouter(svc).ServeHTTP(resp, reviewRequest("/payments/"+uuid.NewString()+"/reject", `{"reason":"blurry screenshot"}`))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, []string{"blurry screenshot"}, svc.rejected)
}

func listRequest(query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/payments"+query, nil)
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func TestAdminPaymentsListDefaultsToPending(t *testing.T) {
	svc := &stubReviewService{}
	resp := httptest.NewRecorder()
	AdminPaymentsList(svc, nil).ServeHTTP(resp, listRequest(""))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.listed.Status)
	require.Equal(t, enums.PaymentStatusPending, *svc.listed.Status)
}

func TestAdminPaymentsListHonoursExplicitStatus(t *testing.T) {
	svc := &stubReviewService{}
	resp := httptest.NewRecorder()
	AdminPaymentsList(svc, nil).ServeHTTP(resp, listRequest("?status=approved&tenant_kind=clinic"))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.PaymentStatusApproved, *svc.listed.Status)
	require.Equal(t, enums.TenantKindClinic, *svc.listed.TenantKind)
}

func TestAdminPaymentsListAllStatuses(t *testing.T) {
	svc := &stubReviewService{}
	resp := httptest.NewRecorder()
	AdminPaymentsList(svc, nil).ServeHTTP(resp, listRequest("?status=all"))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Nil(t, svc.listed.Status)
}
