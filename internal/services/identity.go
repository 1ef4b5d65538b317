package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

// InactiveError is returned when a provisioned principal is not active.
// It unwraps to response.ErrInactive so handlers render it as 403.
type InactiveError struct {
	Status string
}

func (e *InactiveError) Error() string {
	return fmt.Sprintf("principal is %s", e.Status)
}

func (e *InactiveError) Unwrap() error {
	return response.ErrInactive.WithMessage(e.Error())
}

// RevokesSession reports whether the status implies compromised or withdrawn access.
func (e *InactiveError) RevokesSession() bool {
	return models.IsRevokingStatus(e.Status)
}

type IdentityService struct {
	db *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{db: db}
}

// Resolve maps an authenticated principal id to its firm, role and status.
func (s *IdentityService) Resolve(ctx context.Context, principalID uint) (*Actor, error) {
	profile, err := s.load(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if profile.Role == "" {
		return nil, response.ErrNotProvisioned.WithMessage("principal has no role")
	}
	if profile.Status != models.StatusActive {
		return nil, &InactiveError{Status: profile.Status}
	}
	return ActorFromProfile(profile), nil
}

// ResolveInternal is Resolve restricted to firm staff.
func (s *IdentityService) ResolveInternal(ctx context.Context, principalID uint) (*Actor, error) {
	profile, err := s.load(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !models.IsFirmRole(profile.Role) {
		return nil, response.ErrNotInternal
	}
	if profile.Status != models.StatusActive {
		return nil, &InactiveError{Status: profile.Status}
	}
	return ActorFromProfile(profile), nil
}

func (s *IdentityService) load(ctx context.Context, principalID uint) (*models.Profile, error) {
	if principalID == 0 {
		return nil, response.ErrUnauthorized.WithMessage("no session")
	}
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, principalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.ErrUnknownPrincipal
		}
		return nil, err
	}
	return &profile, nil
}
