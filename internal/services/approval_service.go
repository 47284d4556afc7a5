package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/models"
	apperrors "github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/logger"
)

// TicketContextType is the context type under which ApprovalService is registered.
const TicketContextType = "ticket"

// CreateTicketInput describes a new approval ticket.
type CreateTicketInput struct {
	Code      string
	Title     string
	CreatorID string
}

// VoteInput is one department's decision on a ticket.
type VoteInput struct {
	TicketID   string
	Department models.Department
	Approved   bool
	UserID     string
	Comments   string
}

// ApprovalService owns multi-department sign-off tickets. It is the context handler for
// actionable notifications of type "ticket": approve/reject actions vote on behalf of
// the acting user's department.
type ApprovalService struct {
	db        *gorm.DB
	directory UserDirectory
	triggers  *NotificationTriggers
	now       func() time.Time
	log       *zap.Logger
}

// NewApprovalService constructs an ApprovalService. triggers may be nil.
func NewApprovalService(db *gorm.DB, directory UserDirectory, triggers *NotificationTriggers) (*ApprovalService, error) {
	if db == nil {
		return nil, errors.New("approval service: db is required")
	}
	if directory == nil {
		directory = NewGormDirectory(db)
	}
	return &ApprovalService{
		db:        db,
		directory: directory,
		triggers:  triggers,
		now:       time.Now,
		log:       logger.WithModule("approvals"),
	}, nil
}

// CreateTicket stores a ticket with one pending signature per department.
func (s *ApprovalService) CreateTicket(ctx context.Context, input CreateTicketInput) (*models.ApprovalTicket, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidation("ticket title is required")
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		code = "TK-" + strings.ToUpper(uuid.NewString()[:8])
	}

	ticket := &models.ApprovalTicket{
		Code:      code,
		Title:     title,
		Status:    models.ApprovalPending,
		CreatorID: strings.TrimSpace(input.CreatorID),
	}
	for _, department := range models.Departments() {
		ticket.Signatures = append(ticket.Signatures, models.ApprovalSignature{
			Department: department,
			Decision:   models.ApprovalPending,
		})
	}

	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewValidation(fmt.Sprintf("ticket code %q already exists", code))
		}
		return nil, storeError(fmt.Errorf("approval service: create ticket: %w", err))
	}

	if s.triggers != nil {
		s.triggers.TicketCreated(ctx, ticket)
	}
	return ticket, nil
}

// GetTicket loads a ticket with its signatures.
func (s *ApprovalService) GetTicket(ctx context.Context, ticketID string) (*models.ApprovalTicket, error) {
	var ticket models.ApprovalTicket
	err := s.db.WithContext(ensureContext(ctx)).
		Preload("Signatures").
		Take(&ticket, "id = ?", strings.TrimSpace(ticketID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound.WithMessage("ticket not found")
	}
	if err != nil {
		return nil, storeError(fmt.Errorf("approval service: load ticket %s: %w", ticketID, err))
	}
	return &ticket, nil
}

// Vote records a department decision and recomputes the ticket state from the current
// signatures. There is no resubmission flow that clears earlier votes.
func (s *ApprovalService) Vote(ctx context.Context, input VoteInput) (*models.ApprovalTicket, error) {
	ctx = ensureContext(ctx)
	if !input.Department.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown department %q", input.Department))
	}

	ticket, err := s.apply(ctx, input.TicketID, func(tx *gorm.DB) error {
		return s.recordVote(tx, input)
	})
	if err != nil {
		return nil, err
	}

	if s.triggers != nil {
		s.triggers.TicketVoted(ctx, ticket, input.Department, input.Approved)
	}
	return ticket, nil
}

// OnApproved records an approval from the acting user's department.
func (s *ApprovalService) OnApproved(ctx context.Context, contextID, userID string) error {
	return s.voteAsUser(ctx, contextID, userID, true)
}

// OnRejected records a rejection from the acting user's department.
func (s *ApprovalService) OnRejected(ctx context.Context, contextID, userID string) error {
	return s.voteAsUser(ctx, contextID, userID, false)
}

func (s *ApprovalService) voteAsUser(ctx context.Context, ticketID, userID string, approved bool) error {
	department, err := s.directory.DepartmentOf(ctx, userID)
	if err != nil {
		return apperrors.Unavailable(err)
	}

	dept := models.Department(department)
	if !dept.Valid() {
		// No sign-off department: the state is still recomputed so the ticket reflects
		// votes that arrived through other paths.
		s.log.Debug("acting user has no sign-off department",
			zap.String("ticket_id", ticketID),
			zap.String("user_id", userID),
		)
		_, err := s.apply(ctx, ticketID, nil)
		return err
	}

	_, err = s.Vote(ctx, VoteInput{
		TicketID:   ticketID,
		Department: dept,
		Approved:   approved,
		UserID:     userID,
	})
	return err
}

func (s *ApprovalService) recordVote(tx *gorm.DB, input VoteInput) error {
	decision := models.ApprovalRejected
	if input.Approved {
		decision = models.ApprovalApproved
	}
	decidedAt := s.now().UTC()

	result := tx.Model(&models.ApprovalSignature{}).
		Where("ticket_id = ? AND department = ?", input.TicketID, string(input.Department)).
		Updates(map[string]any{
			"decision":   decision,
			"decided_by": stringPtr(strings.TrimSpace(input.UserID)),
			"decided_at": decidedAt,
			"comments":   strings.TrimSpace(input.Comments),
		})
	if result.Error != nil {
		return fmt.Errorf("approval service: record vote on %s: %w", input.TicketID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound.WithMessage("ticket signature not found")
	}
	return nil
}

// apply runs mutate (when set) and recomputes the aggregate state in one transaction.
func (s *ApprovalService) apply(ctx context.Context, ticketID string, mutate func(tx *gorm.DB) error) (*models.ApprovalTicket, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, apperrors.NewValidation("ticket id is required")
	}

	var ticket models.ApprovalTicket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&ticket, "id = ?", ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound.WithMessage("ticket not found")
			}
			return fmt.Errorf("approval service: load ticket %s: %w", ticketID, err)
		}
		if mutate != nil {
			if err := mutate(tx); err != nil {
				return err
			}
		}

		var signatures []models.ApprovalSignature
		if err := tx.Where("ticket_id = ?", ticketID).Find(&signatures).Error; err != nil {
			return fmt.Errorf("approval service: load signatures of %s: %w", ticketID, err)
		}
		decisions := make([]models.ApprovalState, 0, len(signatures))
		for _, signature := range signatures {
			decisions = append(decisions, signature.Decision)
		}

		status := models.AggregateApproval(decisions, len(models.Departments()))
		if status != ticket.Status {
			if err := tx.Model(&ticket).Update("status", status).Error; err != nil {
				return fmt.Errorf("approval service: update ticket %s: %w", ticketID, err)
			}
			ticket.Status = status
		}
		ticket.Signatures = signatures
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return &ticket, nil
}
