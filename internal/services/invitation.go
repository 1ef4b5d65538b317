package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/internal/utils"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

const DefaultInvitationTTL = 7 * 24 * time.Hour

type InvitationService struct {
	db    *gorm.DB
	audit *AuditService
	ttl   time.Duration
	now   func() time.Time
}

func NewInvitationService(db *gorm.DB, audit *AuditService, ttl time.Duration) *InvitationService {
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	return &InvitationService{db: db, audit: audit, ttl: ttl, now: time.Now}
}

type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

type CreateInvitationResponse struct {
	Token      string             `json:"token"`
	Invitation *models.Invitation `json:"invitation"`
}

type RedeemInvitationRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Phone     string `json:"phone" binding:"max=50"`
	Password  string `json:"password" binding:"required,min=8"`
}

type InvitationPreview struct {
	FirmName  string    `json:"firm_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EffectiveStatus derives expiry, which is never stored.
func EffectiveStatus(inv *models.Invitation, now time.Time) string {
	if inv.Status == models.InvitationAccepted {
		return models.InvitationAccepted
	}
	if now.After(inv.ExpiresAt) {
		return models.InvitationExpired
	}
	return models.InvitationPending
}

// Create issues a single-use token. The plaintext token is returned once and only its hash is stored.
func (s *InvitationService) Create(ctx context.Context, actor *Actor, req *CreateInvitationRequest) (*CreateInvitationResponse, error) {
	if actor.FirmID == nil || !canInvite(actor, req.Role) {
		return nil, response.NewForbidden("not allowed to invite this role")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, response.NewBadRequest("email is required")
	}

	token, tokenHash, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &models.Invitation{
		FirmID:    *actor.FirmID,
		Email:     email,
		Role:      req.Role,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(s.ttl),
		Status:    models.InvitationPending,
		InvitedBy: actor.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var registered int64
		if err := tx.Model(&models.Profile{}).Where("email = ?", email).Count(&registered).Error; err != nil {
			return err
		}
		if registered > 0 {
			return response.NewConflict("a principal with this email already exists")
		}

		var outstanding int64
		if err := tx.Model(&models.Invitation{}).
			Where("firm_id = ? AND email = ? AND status = ? AND expires_at > ?", inv.FirmID, email, models.InvitationPending, now).
			Count(&outstanding).Error; err != nil {
			return err
		}
		if outstanding > 0 {
			return response.NewConflict("an invitation for this email is already pending")
		}

		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		_, err := s.audit.Record(tx, AuditEntry{
			FirmID:  actor.FirmID,
			ActorID: actor.ID,
			Action:  models.AuditUserInvited,
			Details: map[string]interface{}{
				"invitation_id": inv.ID,
				"email":         email,
				"role":          inv.Role,
				"expires_at":    inv.ExpiresAt,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("invitation_id", inv.ID).Uint("actor_id", actor.ID).Str("role", inv.Role).Msg("invitation created")
	return &CreateInvitationResponse{Token: token, Invitation: inv}, nil
}

// Redeem provisions a principal from a pending, unexpired token. Profile creation
// and the pending->accepted swap share one transaction, so a failure leaves the
// invitation redeemable.
func (s *InvitationService) Redeem(ctx context.Context, token string, req *RedeemInvitationRequest) (*models.Profile, error) {
	if token == "" {
		return nil, response.ErrInvitationInvalid
	}
	hash := utils.HashToken(token)
	now := s.now()

	var profile models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invitation
		if err := tx.Where("token_hash = ?", hash).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.ErrInvitationInvalid
			}
			return err
		}
		if EffectiveStatus(&inv, now) != models.InvitationPending {
			return response.ErrInvitationInvalid
		}

		var registered int64
		if err := tx.Model(&models.Profile{}).Where("email = ?", inv.Email).Count(&registered).Error; err != nil {
			return err
		}
		if registered > 0 {
			return response.NewConflict("a principal with this email already exists")
		}

		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			return err
		}
		firmID := inv.FirmID
		profile = models.Profile{
			FirmID:    &firmID,
			Email:     inv.Email,
			Password:  hashed,
			AuthType:  models.AuthTypeLocal,
			Role:      inv.Role,
			Status:    models.StatusActive,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Phone:     req.Phone,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Invitation{}).
			Where("id = ? AND status = ? AND expires_at > ?", inv.ID, models.InvitationPending, now).
			Updates(map[string]interface{}{
				"status":      models.InvitationAccepted,
				"accepted_by": profile.ID,
				"accepted_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.ErrInvitationInvalid
		}

		_, err = s.audit.Record(tx, AuditEntry{
			FirmID:   &firmID,
			ActorID:  profile.ID,
			Action:   models.AuditInvitationAccepted,
			TargetID: uintPtr(inv.InvitedBy),
			Details:  map[string]interface{}{"invitation_id": inv.ID, "role": inv.Role},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("profile_id", profile.ID).Str("role", profile.Role).Msg("invitation redeemed")
	return &profile, nil
}

// Lookup is the public preview shown before redemption.
func (s *InvitationService) Lookup(ctx context.Context, token string) (*InvitationPreview, error) {
	if token == "" {
		return nil, response.ErrInvitationInvalid
	}
	db := s.db.WithContext(ctx)

	var inv models.Invitation
	if err := db.Where("token_hash = ?", utils.HashToken(token)).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.ErrInvitationInvalid
		}
		return nil, err
	}
	var firm models.Firm
	if err := db.First(&firm, inv.FirmID).Error; err != nil {
		return nil, err
	}
	return &InvitationPreview{
		FirmName:  firm.Name,
		Email:     inv.Email,
		Role:      inv.Role,
		Status:    EffectiveStatus(&inv, s.now()),
		ExpiresAt: inv.ExpiresAt,
	}, nil
}

// ListPending returns the actor firm's invitations that can still be redeemed.
func (s *InvitationService) ListPending(ctx context.Context, actor *Actor) ([]models.Invitation, error) {
	if actor.FirmID == nil || !(actor.Can(PermInviteAnyRole) || actor.Can(PermInviteAssociate)) {
		return nil, response.NewForbidden("not allowed to view invitations")
	}
	var invitations []models.Invitation
	err := s.db.WithContext(ctx).
		Where("firm_id = ? AND status = ? AND expires_at > ?", *actor.FirmID, models.InvitationPending, s.now()).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// canInvite: administrators invite any firm role, case managers only associates.
func canInvite(actor *Actor, role string) bool {
	if !models.IsFirmRole(role) {
		return false
	}
	if actor.Can(PermInviteAnyRole) {
		return true
	}
	return role == models.RoleAssociateLawyer && actor.Can(PermInviteAssociate)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
