package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/dentaldesk-backend/api/middleware"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

type stubProfiles struct {
	profile *models.Profile
}

func (s stubProfiles) Get(context.Context, uuid.UUID) (*models.Profile, error) {
	if s.profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return s.profile, nil
}

type stubResolver struct {
	sub *models.Subscription
}

func (s stubResolver) Current(context.Context, enums.TenantKind, uuid.UUID) (*models.Subscription, error) {
	return s.sub, nil
}

func plansRequest(query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans"+query, nil)
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func decodePlans(t *testing.T, resp *httptest.ResponseRecorder) plansResponse {
	t.Helper()
	var body struct {
		Data plansResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Data
}

func TestPlansListWithoutTenantQuotesFullPrice(t *testing.T) {
	resp := httptest.NewRecorder()
	PlansList(stubProfiles{}, stubResolver{}, nil).ServeHTTP(resp, plansRequest(""))

	require.Equal(t, http.StatusOK, resp.Code)
	data := decodePlans(t, resp)
	require.Equal(t, enums.TenantKindClinic, data.TenantKind)
	require.Nil(t, data.CurrentPlan)
	require.Len(t, data.Plans, 3)
	for _, q := range data.Plans {
		require.True(t, q.Upgradable)
		require.Equal(t, q.Price, q.UpgradePrice)
	}
}

func TestPlansListUsesResolvedPlan(t *testing.T) {
	clinicID := uuid.New()
	profiles := stubProfiles{profile: &models.Profile{ClinicID: &clinicID}}
	resolver := stubResolver{sub: &models.Subscription{Plan: enums.PlanTierPremium}}

	resp := httptest.NewRecorder()
	PlansList(profiles, resolver, nil).ServeHTTP(resp, plansRequest(""))

	data := decodePlans(t, resp)
	require.Equal(t, enums.PlanTierPremium, *data.CurrentPlan)
	byTier := map[enums.PlanTier]int64{}
	for _, q := range data.Plans {
		if q.Upgradable {
			byTier[q.Tier] = q.UpgradePrice
		}
	}
	require.Equal(t, map[enums.PlanTier]int64{enums.PlanTierEnterprise: 25000}, byTier)
}

func TestPlansListSupplierKindFromProfile(t *testing.T) {
	supplierID := uuid.New()
	profiles := stubProfiles{profile: &models.Profile{SupplierID: &supplierID}}

	resp := httptest.NewRecorder()
	PlansList(profiles, stubResolver{}, nil).ServeHTTP(resp, plansRequest(""))

	data := decodePlans(t, resp)
	require.Equal(t, enums.TenantKindSupplier, data.TenantKind)
	require.Equal(t, int64(15000), data.Plans[0].Price)
}
