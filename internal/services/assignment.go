package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

type AssignmentService struct {
	db       *gorm.DB
	audit    *AuditService
	notifier *NotificationService
}

func NewAssignmentService(db *gorm.DB, audit *AuditService, notifier *NotificationService) *AssignmentService {
	return &AssignmentService{db: db, audit: audit, notifier: notifier}
}

type AssignRequest struct {
	StaffID uint `json:"staff_id" binding:"required"`
}

// Assign binds an associate to a matter in InReview and drives it to Assigned.
// Both facts, and their two audit records, commit together or not at all.
func (s *AssignmentService) Assign(ctx context.Context, actor *Actor, matterID, staffID uint) (*models.Assignment, error) {
	if !actor.Can(PermAssignMatter) {
		return nil, response.NewForbidden("only case managers and administrators may assign matters")
	}

	var matter models.Matter
	var assignment models.Assignment
	var staff models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := loadVisibleMatter(tx, actor, matterID)
		if err != nil {
			return err
		}
		matter = *m

		if err := tx.First(&staff, staffID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.ErrNoEligibleStaff.WithMessage("staff member not found")
			}
			return err
		}
		if staff.Role != models.RoleAssociateLawyer || staff.Status != models.StatusActive || !actor.InFirm(staff.FirmID) {
			return response.ErrNoEligibleStaff.WithMessage("staff member must be an active associate lawyer of this firm")
		}

		existing, err := activeAssignment(tx, matter.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return response.ErrAlreadyAssigned
		}

		if matter.Status != models.MatterInReview {
			return response.ErrInvalidSourceState.WithMessage(
				fmt.Sprintf("matter must be %s to assign, it is %s", models.MatterInReview, matter.Status))
		}

		if !actor.InFirm(matter.FirmID) {
			return response.NewForbidden("matter belongs to another firm")
		}

		now := time.Now()
		assignment = models.Assignment{
			MatterID:   matter.ID,
			StaffID:    staff.ID,
			AssignedBy: actor.ID,
			AssignedAt: now,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Matter{}).
			Where("id = ? AND status = ?", matter.ID, models.MatterInReview).
			Updates(map[string]interface{}{"status": models.MatterAssigned, "updated_at": now})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.ErrAlreadyAssigned.WithMessage("matter was assigned concurrently")
		}
		matter.Status = models.MatterAssigned
		matter.UpdatedAt = now

		if _, err := s.audit.Record(tx, AuditEntry{
			FirmID:   matter.FirmID,
			ActorID:  actor.ID,
			Action:   models.AuditCaseAssigned,
			TargetID: uintPtr(staff.ID),
			MatterID: uintPtr(matter.ID),
			Details:  map[string]interface{}{"assignment_id": assignment.ID, "staff_name": staff.FullName()},
		}); err != nil {
			return err
		}
		_, err = s.audit.Record(tx, AuditEntry{
			FirmID:   matter.FirmID,
			ActorID:  actor.ID,
			Action:   models.AuditCaseStatusChanged,
			MatterID: uintPtr(matter.ID),
			Details: map[string]interface{}{
				"from":   models.MatterInReview,
				"to":     models.MatterAssigned,
				"action": "mark_assigned",
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("matter_id", matter.ID).Uint("actor_id", actor.ID).
		Uint("staff_id", staff.ID).Msg("matter assigned")

	notifyClientOfStatus(ctx, s.notifier, &matter)
	if s.notifier != nil {
		s.notifier.Emit(ctx, staff.ID, models.EventMatterAssigned, NotificationPayload{
			Title:    fmt.Sprintf("Matter %s assigned to you", matter.MatterNumber),
			Message:  fmt.Sprintf("You have been assigned to %q.", matter.Title),
			Link:     matterLink(matter.ID),
			FirmID:   matter.FirmID,
			MatterID: uintPtr(matter.ID),
		})
	}

	assignment.Staff = &staff
	return &assignment, nil
}

// EligibleStaff lists the active associates an actor could assign.
func (s *AssignmentService) EligibleStaff(ctx context.Context, actor *Actor) ([]models.Profile, error) {
	if !actor.Can(PermAssignMatter) || actor.FirmID == nil {
		return nil, response.NewForbidden("not allowed to assign matters")
	}
	var staff []models.Profile
	err := s.db.WithContext(ctx).
		Where("firm_id = ? AND role = ? AND status = ?", *actor.FirmID, models.RoleAssociateLawyer, models.StatusActive).
		Order("last_name ASC, first_name ASC").
		Find(&staff).Error
	return staff, err
}

// Active returns the matter's active assignment, or nil.
func (s *AssignmentService) Active(ctx context.Context, matterID uint) (*models.Assignment, error) {
	return activeAssignment(s.db.WithContext(ctx), matterID)
}

func activeAssignment(db *gorm.DB, matterID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := db.Preload("Staff").
		Where("matter_id = ? AND superseded_at IS NULL", matterID).
		Order("id DESC").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
