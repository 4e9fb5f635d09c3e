// Package profiles resolves callers to their profile and platform role.
package profiles

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk-backend/pkg/db/models"
	pkgerrors "github.com/dentaldesk/dentaldesk-backend/pkg/errors"
)

type profileReader interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Service exposes profile lookups and authorization checks.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	RequireSuperAdmin(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type service struct {
	repo profileReader
}

// NewService builds the profile service.
func NewService(repo profileReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repo required")
	}
	return &service{repo: repo}, nil
}

// Get returns the caller's profile or a not-found error.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	if profile == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	return profile, nil
}

// RequireSuperAdmin loads the profile and fails with a forbidden error unless
// it carries the super_admin system role.
func (s *service) RequireSuperAdmin(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "super admin role required")
		}
		return nil, err
	}
	if !profile.IsSuperAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "super admin role required")
	}
	return profile, nil
}
