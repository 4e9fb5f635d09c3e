package profiles

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/dentaldesk-backend/pkg/db/dbtest"
	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

func seedProfile(t *testing.T, r *Repository, role enums.SystemRole) *models.Profile {
	t.Helper()
	p := &models.Profile{UserID: uuid.New(), SystemRole: role}
	require.NoError(t, r.CreateWithTx(r.DB(context.Background()), p))
	return p
}

func TestRequireSuperAdmin(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	svc, err := NewService(r)
	require.NoError(t, err)

	admin := seedProfile(t, r, enums.SystemRoleSuperAdmin)
	user := seedProfile(t, r, enums.SystemRoleUser)

	got, err := svc.RequireSuperAdmin(context.Background(), admin.UserID)
	require.NoError(t, err)
	require.Equal(t, admin.ID, got.ID)

	_, err = svc.RequireSuperAdmin(context.Background(), user.UserID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.RequireSuperAdmin(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestGetMissingProfile(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLinkTenantOnlyOnce(t *testing.T) {
	r := NewRepository(dbtest.Open(t))
	p := seedProfile(t, r, enums.SystemRoleUser)
	tx := r.DB(context.Background())

	clinicID := uuid.New()
	linkedAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	ok, err := r.LinkTenantWithTx(tx, p.UserID, enums.TenantKindClinic, clinicID, enums.MemberRoleDentist, linkedAt)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.LinkTenantWithTx(tx, p.UserID, enums.TenantKindSupplier, uuid.New(), enums.MemberRoleSupplier, linkedAt.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok)

	got, err := r.FindByUserID(context.Background(), p.UserID)
	require.NoError(t, err)
	require.Equal(t, clinicID, *got.ClinicID)
	require.Nil(t, got.SupplierID)
	require.True(t, got.UpdatedAt.Equal(linkedAt))
	require.Equal(t, enums.MemberRoleDentist, *got.Role)
}
