package subscriptions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	"github.com/dentaldesk/dentaldesk-backend/pkg/enums"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

// Resolver derives a tenant's current entitlement from its subscriptions.
type Resolver interface {
	Current(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService builds the subscription status resolver.
func NewService(params ServiceParams) (Resolver, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	return &service{repo: params.Repo}, nil
}

// Current returns the tenant's newest non-pending, non-rejected subscription,
// or nil when the tenant has never been activated.
func (s *service) Current(ctx context.Context, kind enums.TenantKind, tenantID uuid.UUID) (*models.Subscription, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tenant kind")
	}
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	sub, err := s.repo.Current(ctx, kind, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve current subscription")
	}
	return sub, nil
}
