package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

// DocumentService manages document references and case updates attached to matters.
type DocumentService struct {
	db       *gorm.DB
	audit    *AuditService
	notifier *NotificationService
}

func NewDocumentService(db *gorm.DB, audit *AuditService, notifier *NotificationService) *DocumentService {
	return &DocumentService{db: db, audit: audit, notifier: notifier}
}

type AddDocumentRequest struct {
	StorageKey    string `json:"storage_key" binding:"required,max=500"`
	FileName      string `json:"file_name" binding:"required,max=255"`
	ContentType   string `json:"content_type" binding:"max=100"`
	SizeBytes     int64  `json:"size_bytes" binding:"min=0"`
	ClientVisible bool   `json:"client_visible"`
}

type SetVisibilityRequest struct {
	ClientVisible *bool `json:"client_visible" binding:"required"`
}

type PostUpdateRequest struct {
	Body          string `json:"body" binding:"required"`
	ClientVisible bool   `json:"client_visible"`
}

func (s *DocumentService) AddDocument(ctx context.Context, actor *Actor, matterID uint, req *AddDocumentRequest) (*models.MatterDocument, error) {
	var matter *models.Matter
	var doc models.MatterDocument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := loadVisibleMatter(tx, actor, matterID)
		if err != nil {
			return err
		}
		matter = m
		if !actor.IsClient() && !actor.Can(PermManageMatterFiles) {
			return response.NewForbidden("not allowed to add documents")
		}

		doc = models.MatterDocument{
			MatterID:    matter.ID,
			UploadedBy:  actor.ID,
			StorageKey:  req.StorageKey,
			FileName:    req.FileName,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
			// A client's own uploads are always visible to them.
			ClientVisible: req.ClientVisible || actor.IsClient(),
		}
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		_, err = s.audit.Record(tx, AuditEntry{
			FirmID:   matter.FirmID,
			ActorID:  actor.ID,
			Action:   models.AuditDocumentAdded,
			MatterID: uintPtr(matter.ID),
			Details: map[string]interface{}{
				"document_id":    doc.ID,
				"file_name":      doc.FileName,
				"client_visible": doc.ClientVisible,
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if doc.ClientVisible && actor.IsInternal() {
		s.notifyClient(ctx, matter, models.EventDocumentShared,
			fmt.Sprintf("New document on %s", matter.MatterNumber),
			fmt.Sprintf("%s was shared with you.", doc.FileName))
	}
	return &doc, nil
}

// SetDocumentVisibility toggles whether the client can see a document.
func (s *DocumentService) SetDocumentVisibility(ctx context.Context, actor *Actor, documentID uint, visible bool) (*models.MatterDocument, error) {
	if !actor.IsInternal() || !actor.Can(PermManageMatterFiles) {
		return nil, response.NewForbidden("only firm staff may change document visibility")
	}

	var doc models.MatterDocument
	var matter *models.Matter
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc, documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NewNotFound("document not found")
			}
			return err
		}
		m, err := loadVisibleMatter(tx, actor, doc.MatterID)
		if err != nil {
			return err
		}
		matter = m
		if doc.ClientVisible == visible {
			return nil
		}

		if err := tx.Model(&doc).Update("client_visible", visible).Error; err != nil {
			return err
		}
		doc.ClientVisible = visible
		changed = true
		_, err = s.audit.Record(tx, AuditEntry{
			FirmID:   matter.FirmID,
			ActorID:  actor.ID,
			Action:   models.AuditDocumentVisibility,
			MatterID: uintPtr(matter.ID),
			Details:  map[string]interface{}{"document_id": doc.ID, "client_visible": visible},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed && visible {
		s.notifyClient(ctx, matter, models.EventDocumentShared,
			fmt.Sprintf("New document on %s", matter.MatterNumber),
			fmt.Sprintf("%s was shared with you.", doc.FileName))
	}
	return &doc, nil
}

// PostUpdate adds a progress note. Only staff post updates.
func (s *DocumentService) PostUpdate(ctx context.Context, actor *Actor, matterID uint, req *PostUpdateRequest) (*models.MatterUpdate, error) {
	if !actor.IsInternal() || !actor.Can(PermManageMatterFiles) {
		return nil, response.NewForbidden("only firm staff may post updates")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, response.NewBadRequest("body is required")
	}

	var matter *models.Matter
	var update models.MatterUpdate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := loadVisibleMatter(tx, actor, matterID)
		if err != nil {
			return err
		}
		matter = m

		update = models.MatterUpdate{
			MatterID:      matter.ID,
			AuthorID:      actor.ID,
			Body:          body,
			ClientVisible: req.ClientVisible,
		}
		if err := tx.Create(&update).Error; err != nil {
			return err
		}
		_, err = s.audit.Record(tx, AuditEntry{
			FirmID:   matter.FirmID,
			ActorID:  actor.ID,
			Action:   models.AuditCaseUpdatePosted,
			MatterID: uintPtr(matter.ID),
			Details:  map[string]interface{}{"update_id": update.ID, "client_visible": update.ClientVisible},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if update.ClientVisible {
		s.notifyClient(ctx, matter, models.EventCaseUpdate,
			fmt.Sprintf("Update on %s", matter.MatterNumber),
			truncate(body, 200))
	}
	return &update, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, actor *Actor, matterID uint) ([]models.MatterDocument, error) {
	db := s.db.WithContext(ctx)
	matter, err := loadVisibleMatter(db, actor, matterID)
	if err != nil {
		return nil, err
	}
	var docs []models.MatterDocument
	if err := db.Where("matter_id = ?", matter.ID).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return FilterDocuments(docs, actor, matter.FirmID), nil
}

func (s *DocumentService) ListUpdates(ctx context.Context, actor *Actor, matterID uint) ([]models.MatterUpdate, error) {
	db := s.db.WithContext(ctx)
	matter, err := loadVisibleMatter(db, actor, matterID)
	if err != nil {
		return nil, err
	}
	var updates []models.MatterUpdate
	if err := db.Where("matter_id = ?", matter.ID).Order("id ASC").Find(&updates).Error; err != nil {
		return nil, err
	}
	return FilterUpdates(updates, actor, matter.FirmID), nil
}

func (s *DocumentService) notifyClient(ctx context.Context, matter *models.Matter, eventType, title, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(ctx, matter.ClientID, eventType, NotificationPayload{
		Title:    title,
		Message:  message,
		Link:     matterLink(matter.ID),
		FirmID:   matter.FirmID,
		MatterID: uintPtr(matter.ID),
	})
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
