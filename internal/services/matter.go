package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

var statusLabels = map[models.MatterStatus]string{
	models.MatterDraft:             "Draft",
	models.MatterPendingReview:     "Pending Review",
	models.MatterInReview:          "In Review",
	models.MatterAwaitingDocuments: "Awaiting Documents",
	models.MatterAssigned:          "Assigned",
	models.MatterInProgress:        "In Progress",
	models.MatterOnHold:            "On Hold",
	models.MatterCompleted:         "Completed",
	models.MatterClosed:            "Closed",
	models.MatterRejected:          "Rejected",
}

type MatterService struct {
	db       *gorm.DB
	audit    *AuditService
	notifier *NotificationService
	calendar *BusinessCalendar
}

func NewMatterService(db *gorm.DB, audit *AuditService, notifier *NotificationService, calendar *BusinessCalendar) *MatterService {
	return &MatterService{
		db:       db,
		audit:    audit,
		notifier: notifier,
		calendar: calendar,
	}
}

type FileMatterRequest struct {
	ClientID    uint   `json:"client_id" binding:"required"`
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Tier        string `json:"tier"`
}

type TransitionRequest struct {
	To   string `json:"to" binding:"required"`
	Note string `json:"note" binding:"max=1000"`
}

type MatterListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status"`
	Category string `form:"category"`
	Tier     string `form:"tier"`
	Search   string `form:"search"`
}

type MatterListResponse struct {
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Items    []models.Matter `json:"items"`
}

type MatterDetail struct {
	Matter               models.Matter           `json:"matter"`
	Assignment           *models.Assignment      `json:"assignment"`
	AuditTrail           []models.AuditRecord    `json:"audit_trail,omitempty"`
	Documents            []models.MatterDocument `json:"documents"`
	Updates              []models.MatterUpdate   `json:"updates"`
	AvailableTransitions []Transition            `json:"available_transitions"`
}

// File lets firm staff open a matter on a client's behalf. It enters at InReview.
func (s *MatterService) File(ctx context.Context, actor *Actor, req *FileMatterRequest) (*models.Matter, error) {
	if actor.IsClient() {
		return nil, response.NewBadRequest("client filings must include a payment")
	}
	if !actor.Can(PermFileForClient) || actor.FirmID == nil {
		return nil, response.NewForbidden("not allowed to file matters")
	}
	tier, err := validateMatterFields(req.Title, req.Category, req.Tier)
	if err != nil {
		return nil, err
	}

	matter := &models.Matter{
		ClientID:    req.ClientID,
		FirmID:      uintPtr(*actor.FirmID),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Tier:        tier,
		Status:      models.MatterInReview,
		FiledBy:     actor.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Profile
		if err := tx.First(&client, req.ClientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewBadRequest("client not found")
			}
			return err
		}
		if client.Role != models.RoleClient || client.Status != models.StatusActive {
			return response.NewBadRequest("client_id must reference an active client")
		}

		return s.createMatter(tx, actor, matter, map[string]interface{}{"filed_for": client.ID})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("matter_id", matter.ID).Uint("actor_id", actor.ID).
		Str("matter_number", matter.MatterNumber).Msg("matter filed by staff")
	return matter, nil
}

// createMatter inserts matter and its case_filed audit record inside tx.
func (s *MatterService) createMatter(tx *gorm.DB, actor *Actor, matter *models.Matter, details map[string]interface{}) error {
	now := time.Now()
	matter.MatterNumber = newDocumentNumber("MAT", now)
	if s.calendar != nil {
		due := s.calendar.ReviewDueAt(matter.Tier, now)
		matter.ReviewDueAt = &due
	}
	if err := tx.Create(matter).Error; err != nil {
		return err
	}

	if details == nil {
		details = map[string]interface{}{}
	}
	details["matter_number"] = matter.MatterNumber
	details["status"] = matter.Status
	_, err := s.audit.Record(tx, AuditEntry{
		FirmID:   matter.FirmID,
		ActorID:  actor.ID,
		Action:   models.AuditCaseFiled,
		TargetID: uintPtr(matter.ClientID),
		MatterID: uintPtr(matter.ID),
		Details:  details,
	})
	return err
}

// Transition moves a matter along one declared edge. The status write is a
// compare-and-swap on the current status and shares a transaction with its audit record.
func (s *MatterService) Transition(ctx context.Context, actor *Actor, matterID uint, req *TransitionRequest) (*models.Matter, error) {
	to := models.MatterStatus(req.To)
	if !to.Valid() {
		return nil, response.NewBadRequest(fmt.Sprintf("unknown status %q", req.To))
	}

	var matter models.Matter
	var from models.MatterStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := loadVisibleMatter(tx, actor, matterID)
		if err != nil {
			return err
		}
		matter = *m
		from = matter.Status

		edge, ok := findEdge(from, to)
		if !ok {
			return response.NewIllegalTransition(fmt.Sprintf("cannot move matter from %s to %s", from, to))
		}
		if edge.ViaAssignment {
			return response.NewIllegalTransition("a matter becomes Assigned by assigning a lawyer to it")
		}
		if edge.Role != actor.Role || !actor.Can(PermTransitionMatter) {
			return response.NewIllegalTransition(fmt.Sprintf("%s may not move matter from %s to %s", actor.Role, from, to))
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     to,
			"updated_at": now,
		}
		// Deciding a firm-less intake, by acceptance or rejection, binds the
		// matter to the deciding manager's firm.
		if from == models.MatterPendingReview && matter.FirmID == nil && actor.FirmID != nil {
			updates["firm_id"] = *actor.FirmID
			matter.FirmID = uintPtr(*actor.FirmID)
		}

		result := tx.Model(&models.Matter{}).
			Where("id = ? AND status = ?", matter.ID, from).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NewConflict("matter was modified concurrently")
		}
		matter.Status = to
		matter.UpdatedAt = now

		details := map[string]interface{}{"from": from, "to": to, "action": edge.Action}
		if req.Note != "" {
			details["note"] = req.Note
		}
		_, err = s.audit.Record(tx, AuditEntry{
			FirmID:   matter.FirmID,
			ActorID:  actor.ID,
			Action:   models.AuditCaseStatusChanged,
			MatterID: uintPtr(matter.ID),
			Details:  details,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("matter_id", matter.ID).Uint("actor_id", actor.ID).
		Str("from", string(from)).Str("to", string(to)).Msg("matter transitioned")

	notifyClientOfStatus(ctx, s.notifier, &matter)
	return &matter, nil
}

func (s *MatterService) List(ctx context.Context, actor *Actor, req *MatterListRequest) (*MatterListResponse, error) {
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := scopeVisibleMatters(s.db.WithContext(ctx).Model(&models.Matter{}), actor)
	if req.Status != "" {
		query = query.Where("matters.status = ?", req.Status)
	}
	if req.Category != "" {
		query = query.Where("matters.category = ?", req.Category)
	}
	if req.Tier != "" {
		query = query.Where("matters.tier = ?", req.Tier)
	}
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("(matters.title LIKE ? OR matters.matter_number LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var matters []models.Matter
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("matters.id DESC").Offset(offset).Limit(req.PageSize).Find(&matters).Error; err != nil {
		return nil, err
	}

	return &MatterListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    matters,
	}, nil
}

// Get returns one matter with its assignment, trail and visible attachments.
func (s *MatterService) Get(ctx context.Context, actor *Actor, matterID uint) (*MatterDetail, error) {
	db := s.db.WithContext(ctx)
	matter, err := loadVisibleMatter(db, actor, matterID)
	if err != nil {
		return nil, err
	}

	detail := &MatterDetail{Matter: *matter}

	assignment, err := activeAssignment(db, matter.ID)
	if err != nil {
		return nil, err
	}
	detail.Assignment = assignment

	if actor.IsInternal() {
		trail, err := s.audit.ListForMatter(ctx, matter.ID)
		if err != nil {
			return nil, err
		}
		detail.AuditTrail = trail
	}

	var docs []models.MatterDocument
	if err := db.Where("matter_id = ?", matter.ID).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	detail.Documents = FilterDocuments(docs, actor, matter.FirmID)

	var updates []models.MatterUpdate
	if err := db.Where("matter_id = ?", matter.ID).Order("id ASC").Find(&updates).Error; err != nil {
		return nil, err
	}
	detail.Updates = FilterUpdates(updates, actor, matter.FirmID)

	detail.AvailableTransitions = AvailableTransitions(matter.Status, actor.Role)
	if detail.AvailableTransitions == nil {
		detail.AvailableTransitions = []Transition{}
	}
	return detail, nil
}

// loadVisibleMatter returns not_found both for missing matters and for
// matters the actor may not see, so existence is not leaked.
func loadVisibleMatter(db *gorm.DB, actor *Actor, matterID uint) (*models.Matter, error) {
	var matter models.Matter
	if err := db.First(&matter, matterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("matter not found")
		}
		return nil, err
	}
	ok, err := canSeeMatter(db, actor, &matter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, response.NewNotFound("matter not found")
	}
	return &matter, nil
}

func notifyClientOfStatus(ctx context.Context, notifier *NotificationService, matter *models.Matter) {
	if notifier == nil || !IsClientRelevant(matter.Status) {
		return
	}
	notifier.Emit(ctx, matter.ClientID, models.EventMatterStatusChanged, NotificationPayload{
		Title:    fmt.Sprintf("Matter %s updated", matter.MatterNumber),
		Message:  fmt.Sprintf("Your matter %q is now %s.", matter.Title, statusLabels[matter.Status]),
		Link:     matterLink(matter.ID),
		FirmID:   matter.FirmID,
		MatterID: uintPtr(matter.ID),
	})
}

func matterLink(id uint) string {
	return fmt.Sprintf("/matters/%d", id)
}

func validateMatterFields(title, category, tier string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", response.NewBadRequest("title is required")
	}
	if !models.IsValidCategory(category) {
		return "", response.NewBadRequest(fmt.Sprintf("unknown category %q", category))
	}
	if tier == "" {
		tier = models.TierStandard
	}
	if !models.IsValidTier(tier) {
		return "", response.NewBadRequest(fmt.Sprintf("unknown tier %q", tier))
	}
	return tier, nil
}

// newDocumentNumber builds human-readable identifiers such as MAT-2025-1A2B3C4D.
func newDocumentNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", prefix, now.Year(), suffix)
}
