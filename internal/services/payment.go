package services

import (
	"context"
	"strings"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

// PaymentService consumes the gateway's "payment succeeded" fact for client filings.
// It never talks to the gateway itself.
type PaymentService struct {
	db      *gorm.DB
	audit   *AuditService
	matters *MatterService
}

func NewPaymentService(db *gorm.DB, audit *AuditService, matters *MatterService) *PaymentService {
	return &PaymentService{db: db, audit: audit, matters: matters}
}

type PaymentFact struct {
	Reference   string `json:"reference" binding:"required,max=128"`
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Currency    string `json:"currency" binding:"required,len=3"`
}

type PaidFilingRequest struct {
	Title       string      `json:"title" binding:"required,max=255"`
	Description string      `json:"description"`
	Category    string      `json:"category" binding:"required"`
	Tier        string      `json:"tier"`
	Payment     PaymentFact `json:"payment"`
}

type PaidFilingResult struct {
	Matter  *models.Matter  `json:"matter"`
	Payment *models.Payment `json:"payment"`
	Invoice *models.Invoice `json:"invoice"`
}

// FileWithPayment creates the matter, payment and paid invoice together.
// A reused payment reference is a conflict and creates nothing.
func (s *PaymentService) FileWithPayment(ctx context.Context, actor *Actor, req *PaidFilingRequest) (*PaidFilingResult, error) {
	if !actor.Can(PermFileOwnMatter) {
		return nil, response.NewForbidden("only clients file matters with a payment")
	}
	tier, err := validateMatterFields(req.Title, req.Category, req.Tier)
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(req.Payment.Reference)
	if reference == "" {
		return nil, response.NewBadRequest("payment reference is required")
	}
	if req.Payment.AmountMinor <= 0 {
		return nil, response.NewBadRequest("payment amount must be positive")
	}
	currency := strings.ToUpper(req.Payment.Currency)

	result := &PaidFilingResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.Payment{}).Where("reference = ?", reference).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return response.NewConflict("payment reference has already been used")
		}

		matter := &models.Matter{
			ClientID:    actor.ID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Category:    req.Category,
			Tier:        tier,
			Status:      models.MatterPendingReview,
			FiledBy:     actor.ID,
		}
		if err := s.matters.createMatter(tx, actor, matter, map[string]interface{}{"payment_reference": reference}); err != nil {
			return err
		}

		payment := &models.Payment{
			ClientID:    actor.ID,
			MatterID:    matter.ID,
			Reference:   reference,
			AmountMinor: req.Payment.AmountMinor,
			Currency:    currency,
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		now := time.Now()
		invoice := &models.Invoice{
			Number:      newDocumentNumber("INV", now),
			MatterID:    matter.ID,
			ClientID:    actor.ID,
			PaymentID:   payment.ID,
			AmountMinor: payment.AmountMinor,
			Currency:    currency,
			Status:      models.InvoicePaid,
			IssuedAt:    now,
		}
		if err := tx.Create(invoice).Error; err != nil {
			return err
		}

		if _, err := s.audit.Record(tx, AuditEntry{
			ActorID:  actor.ID,
			Action:   models.AuditPaymentRecorded,
			MatterID: uintPtr(matter.ID),
			Details: map[string]interface{}{
				"payment_id":     payment.ID,
				"invoice_number": invoice.Number,
				"amount_minor":   payment.AmountMinor,
				"currency":       currency,
			},
		}); err != nil {
			return err
		}

		result.Matter = matter
		result.Payment = payment
		result.Invoice = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("matter_id", result.Matter.ID).Uint("actor_id", actor.ID).
		Str("invoice", result.Invoice.Number).Msg("paid client filing recorded")
	return result, nil
}
