package subscriptions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/dentaldesk-backend/pkg/db/dbtest"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestResolverValidatesInput(t *testing.T) {
	svc, err := NewService(ServiceParams{Repo: NewRepository(dbtest.Open(t))})
	require.NoError(t, err)

	_, err = svc.Current(context.Background(), "hospital", uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Current(context.Background(), enums.TenantKindClinic, uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolverReturnsApproved(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	svc, err := NewService(ServiceParams{Repo: r})
	require.NoError(t, err)

	clinicID := uuid.New()
	approved := seedSubscription(t, r, &clinicID, uuid.New(), enums.SubscriptionStatusApproved, base)

	got, err := svc.Current(context.Background(), enums.TenantKindClinic, clinicID)
	require.NoError(t, err)
	require.Equal(t, approved.ID, got.ID)
	require.Equal(t, enums.PlanTierBasic, got.Plan)
}
