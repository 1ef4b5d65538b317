package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

type AuditEntry struct {
	FirmID   *uint
	ActorID  uint
	Action   string
	TargetID *uint
	MatterID *uint
	Details  map[string]interface{}
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends an audit record using tx, which must be the transaction that
// carries the state change being described.
func (s *AuditService) Record(tx *gorm.DB, entry AuditEntry) (uint, error) {
	if tx == nil {
		return 0, errors.New("audit: record requires a transaction")
	}
	if entry.ActorID == 0 || entry.Action == "" {
		return 0, errors.New("audit: actor and action are required")
	}

	var details string
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return 0, err
		}
		details = string(b)
	}

	record := models.AuditRecord{
		FirmID:    entry.FirmID,
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		TargetID:  entry.TargetID,
		MatterID:  entry.MatterID,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

// ListForMatter returns a matter's trail oldest first.
func (s *AuditService) ListForMatter(ctx context.Context, matterID uint) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	err := s.db.WithContext(ctx).
		Where("matter_id = ?", matterID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

type AuditListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Action    string `form:"action"`
	ActorID   uint   `form:"actor_id"`
	MatterID  uint   `form:"matter_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type AuditListResponse struct {
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Items    []models.AuditRecord `json:"items"`
}

// ListForFirm is the administrator's audit browser.
func (s *AuditService) ListForFirm(ctx context.Context, actor *Actor, req *AuditListRequest) (*AuditListResponse, error) {
	if !actor.Can(PermViewAudit) || actor.FirmID == nil {
		return nil, response.NewForbidden("audit log is restricted to firm administrators")
	}
	req.Page, req.PageSize = normalizePage(req.Page, req.PageSize)

	query := s.db.WithContext(ctx).Model(&models.AuditRecord{}).Where("firm_id = ?", *actor.FirmID)
	if req.Action != "" {
		query = query.Where("action = ?", req.Action)
	}
	if req.ActorID != 0 {
		query = query.Where("actor_id = ?", req.ActorID)
	}
	if req.MatterID != 0 {
		query = query.Where("matter_id = ?", req.MatterID)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var records []models.AuditRecord
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return &AuditListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    records,
	}, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

func uintPtr(v uint) *uint { return &v }
