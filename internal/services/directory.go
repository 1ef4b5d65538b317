package services

import (
	"context"
	"errors"
	"strings"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

// DirectoryService covers firm administration: staff, statuses and the firm profile.
type DirectoryService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewDirectoryService(db *gorm.DB, audit *AuditService) *DirectoryService {
	return &DirectoryService{db: db, audit: audit}
}

type StaffListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Role     string `form:"role"`
	Status   string `form:"status"`
	Search   string `form:"search"`
}

type StaffListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Profile `json:"items"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

type UpdateFirmRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=200"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
	Phone        *string `json:"phone" binding:"omitempty,max=50"`
	Address      *string `json:"address" binding:"omitempty,max=500"`
	Timezone     *string `json:"timezone" binding:"omitempty,max=64"`
}

func (s *DirectoryService) ListStaff(ctx context.Context, actor *Actor, req *StaffListRequest) (*StaffListResponse, error) {
	if !actor.Can(PermListStaff) || actor.FirmID == nil {
		return nil, response.NewForbidden("not allowed to list staff")
	}
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("firm_id = ? AND role IN ?", *actor.FirmID,
			[]string{models.RoleAdminManager, models.RoleCaseManager, models.RoleAssociateLawyer})
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("(email LIKE ? OR first_name LIKE ? OR last_name LIKE ?)", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var staff []models.Profile
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("last_name ASC, first_name ASC").Offset(offset).Limit(req.PageSize).Find(&staff).Error; err != nil {
		return nil, err
	}

	return &StaffListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    staff,
	}, nil
}

// ChangeStatus suspends, reactivates or deactivates a staff member of the actor's firm.
func (s *DirectoryService) ChangeStatus(ctx context.Context, actor *Actor, principalID uint, req *ChangeStatusRequest) (*models.Profile, error) {
	if !actor.Can(PermManageStaff) || actor.FirmID == nil {
		return nil, response.NewForbidden("only firm administrators may change statuses")
	}
	if !models.IsValidStatus(req.Status) {
		return nil, response.NewBadRequest("unknown status")
	}
	if principalID == actor.ID {
		return nil, response.NewForbidden("administrators cannot change their own status")
	}

	var target models.Profile
	var from string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&target, principalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("principal not found")
			}
			return err
		}
		if !actor.InFirm(target.FirmID) || !models.IsFirmRole(target.Role) {
			return response.NewNotFound("principal not found")
		}
		from = target.Status
		if from == req.Status {
			return nil
		}

		result := tx.Model(&models.Profile{}).
			Where("id = ? AND status = ?", target.ID, from).
			Update("status", req.Status)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NewConflict("principal was modified concurrently")
		}
		target.Status = req.Status

		if models.IsRevokingStatus(req.Status) {
			if _, err := RevokeSessions(tx, target.ID); err != nil {
				return err
			}
		}

		details := map[string]interface{}{"from": from, "to": req.Status}
		if req.Reason != "" {
			details["reason"] = req.Reason
		}
		_, err := s.audit.Record(tx, AuditEntry{
			FirmID:   actor.FirmID,
			ActorID:  actor.ID,
			Action:   models.AuditUserStatusChanged,
			TargetID: uintPtr(target.ID),
			Details:  details,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if from != req.Status {
		logger.Info().Uint("actor_id", actor.ID).Uint("target_id", target.ID).
			Str("from", from).Str("to", req.Status).Msg("principal status changed")
	}
	return &target, nil
}

// UpdateFirm applies the provided fields and audits exactly what changed.
func (s *DirectoryService) UpdateFirm(ctx context.Context, actor *Actor, req *UpdateFirmRequest) (*models.Firm, error) {
	if !actor.Can(PermManageFirm) || actor.FirmID == nil {
		return nil, response.NewForbidden("only firm administrators may update the firm")
	}

	var firm models.Firm
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&firm, *actor.FirmID).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{}
		apply := func(column string, current *string, next *string) {
			if next == nil {
				return
			}
			v := strings.TrimSpace(*next)
			if v != *current {
				changes[column] = v
				*current = v
			}
		}
		apply("name", &firm.Name, req.Name)
		apply("contact_email", &firm.ContactEmail, req.ContactEmail)
		apply("phone", &firm.Phone, req.Phone)
		apply("address", &firm.Address, req.Address)
		apply("timezone", &firm.Timezone, req.Timezone)

		if firm.Name == "" {
			return response.NewBadRequest("firm name cannot be empty")
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&models.Firm{}).Where("id = ?", firm.ID).Updates(changes).Error; err != nil {
			return err
		}
		_, err := s.audit.Record(tx, AuditEntry{
			FirmID:  actor.FirmID,
			ActorID: actor.ID,
			Action:  models.AuditFirmUpdated,
			Details: changes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &firm, nil
}

// AuditLog is the administrator's view over the firm audit trail.
func (s *DirectoryService) AuditLog(ctx context.Context, actor *Actor, req *AuditListRequest) (*AuditListResponse, error) {
	return s.audit.ListForFirm(ctx, actor, req)
}
