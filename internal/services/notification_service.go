package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/notifications"
	apperrors "github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/logger"
	"github.com/charlesng35/estatecrm/pkg/metrics"
)

const (
	defaultFeedLimit = 100
	defaultModule    = "general"
)

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	Audience    models.Audience
	Message     string
	Type        models.NotificationType
	Priority    models.Priority
	Module      string
	Category    string
	Link        string
	Actions     []models.Action
	Metadata    map[string]any
	ContextType string
	ContextID   string
	CreatedBy   string
	ExpiresAt   *time.Time

	// SourceUpdate runs inside the creation transaction once the notification and its
	// recipients are written. Any error, including ErrSourceAlreadyHandled, rolls the
	// whole creation back.
	SourceUpdate func(tx *gorm.DB) error
}

// NotificationService owns the notification store: creation with recipient fan-out,
// per-user feeds and read state, the global archive/pin flags and action execution.
type NotificationService struct {
	db        *gorm.DB
	directory UserDirectory
	resolver  *RecipientResolver
	registry  *notifications.Registry
	publisher notifications.Publisher
	feedLimit int
	now       func() time.Time
	log       *zap.Logger
}

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// WithPublisher pushes lifecycle events to connected clients.
func WithPublisher(publisher notifications.Publisher) NotificationOption {
	return func(s *NotificationService) {
		s.publisher = publisher
	}
}

// WithRegistry sets the context handler registry used by ExecuteAction.
func WithRegistry(registry *notifications.Registry) NotificationOption {
	return func(s *NotificationService) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithFeedLimit caps the number of notifications a feed returns.
func WithFeedLimit(limit int) NotificationOption {
	return func(s *NotificationService) {
		if limit > 0 {
			s.feedLimit = limit
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewNotificationService constructs a NotificationService. A nil directory falls back
// to the users table of db.
func NewNotificationService(db *gorm.DB, directory UserDirectory, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if directory == nil {
		directory = NewGormDirectory(db)
	}

	svc := &NotificationService{
		db:        db,
		directory: directory,
		resolver:  NewRecipientResolver(directory),
		registry:  notifications.NewRegistry(),
		feedLimit: defaultFeedLimit,
		now:       time.Now,
		log:       logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create validates input, resolves its audience and stores the notification together
// with its recipient snapshot in one transaction. The directory is consulted before the
// transaction opens; if it fails nothing is written.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	notification, err := input.build()
	if err != nil {
		return nil, err
	}

	recipients, err := s.resolver.Resolve(ctx, input.Audience)
	if err != nil {
		return nil, err
	}

	var inserted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(notification).Error; err != nil {
			return fmt.Errorf("notification service: create notification: %w", err)
		}
		count, err := s.resolver.Materialize(ctx, tx, notification.ID, recipients)
		if err != nil {
			return err
		}
		inserted = count
		if input.SourceUpdate != nil {
			return input.SourceUpdate(tx)
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	metrics.NotificationsCreated.WithLabelValues(string(notification.Mode)).Inc()
	metrics.RecipientsMaterialized.Add(float64(inserted))

	targets := recipients
	if notification.Mode == models.ModeDirect {
		targets = []string{*notification.UserID}
	}
	s.publish(targets, notifications.Event{
		Event:          notifications.EventCreated,
		Notification:   notification,
		NotificationID: notification.ID,
	})

	return notification, nil
}

// Rematerialize resolves the audience of an existing role or all notification again and
// inserts any missing recipient rows. Existing rows are kept, so calling it repeatedly
// never duplicates membership. It returns the number of rows added.
func (s *NotificationService) Rematerialize(ctx context.Context, notificationID string) (int64, error) {
	ctx = ensureContext(ctx)

	notification, err := s.find(ctx, notificationID)
	if err != nil {
		return 0, err
	}
	if notification.Mode != models.ModeRole && notification.Mode != models.ModeAll {
		return 0, nil
	}

	recipients, err := s.resolver.Resolve(ctx, notification.Audience())
	if err != nil {
		return 0, err
	}

	var inserted int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.resolver.Materialize(ctx, tx, notification.ID, recipients)
		inserted = count
		return err
	})
	if err != nil {
		return 0, storeError(err)
	}

	metrics.RecipientsMaterialized.Add(float64(inserted))
	return inserted, nil
}

// Get returns a single notification.
func (s *NotificationService) Get(ctx context.Context, notificationID string) (*models.Notification, error) {
	return s.find(ensureContext(ctx), notificationID)
}

// Archive hides a notification from every feed and records who archived it and why.
// Archiving an unknown notification is a no-op.
func (s *NotificationService) Archive(ctx context.Context, userID, notificationID, reason string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.NewValidation("user id is required")
	}

	var notification models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&notification, "id = ?", notificationID).Error; err != nil {
			return err
		}
		if err := tx.Model(&notification).Update("archived", true).Error; err != nil {
			return fmt.Errorf("notification service: archive %s: %w", notificationID, err)
		}
		record := models.NotificationArchive{
			NotificationID: notificationID,
			ArchivedBy:     userID,
			Reason:         strings.TrimSpace(reason),
			ArchivedAt:     s.now().UTC(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("notification service: record archive of %s: %w", notificationID, err)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return storeError(err)
	}

	s.log.Info("notification archived",
		zap.String("notification_id", notificationID),
		zap.String("user_id", userID),
	)
	s.publishToAudience(ctx, &notification, notifications.EventArchived)
	return nil
}

// ListArchives returns the archive audit trail of a notification, oldest first.
func (s *NotificationService) ListArchives(ctx context.Context, notificationID string) ([]models.NotificationArchive, error) {
	ctx = ensureContext(ctx)

	var records []models.NotificationArchive
	if err := s.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("archived_at ASC").
		Find(&records).Error; err != nil {
		return nil, storeError(fmt.Errorf("notification service: list archives of %s: %w", notificationID, err))
	}
	return records, nil
}

// Pin forces a notification to the top of every recipient's feed. Pinning an unknown
// notification is a no-op.
func (s *NotificationService) Pin(ctx context.Context, notificationID string) error {
	ctx = ensureContext(ctx)

	var notification models.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&notification, "id = ?", notificationID).Error; err != nil {
			return err
		}
		return tx.Model(&notification).Update("pinned", true).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return storeError(fmt.Errorf("notification service: pin %s: %w", notificationID, err))
	}

	s.publishToAudience(ctx, &notification, notifications.EventPinned)
	return nil
}

// Delete removes a direct notification on behalf of its owner, together with its read
// marks, archive records and action log.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)

	notification, err := s.find(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.Mode != models.ModeDirect || notification.UserID == nil || *notification.UserID != userID {
		return apperrors.ErrForbidden.WithMessage("only the owner of a direct notification can delete it")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children := []any{
			&models.NotificationRecipient{},
			&models.NotificationRead{},
			&models.NotificationArchive{},
			&models.NotificationAction{},
		}
		for _, child := range children {
			if err := tx.Where("notification_id = ?", notificationID).Delete(child).Error; err != nil {
				return fmt.Errorf("notification service: delete children of %s: %w", notificationID, err)
			}
		}
		return tx.Delete(&models.Notification{}, "id = ?", notificationID).Error
	})
	if err != nil {
		return storeError(err)
	}

	s.publish([]string{userID}, notifications.Event{
		Event:          notifications.EventDeleted,
		NotificationID: notificationID,
	})
	return nil
}

func (s *NotificationService) find(ctx context.Context, notificationID string) (*models.Notification, error) {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return nil, apperrors.NewValidation("notification id is required")
	}

	var notification models.Notification
	err := s.db.WithContext(ctx).Take(&notification, "id = ?", notificationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound.WithMessage("notification not found")
	}
	if err != nil {
		return nil, storeError(fmt.Errorf("notification service: load %s: %w", notificationID, err))
	}
	return &notification, nil
}

func (s *NotificationService) publish(userIDs []string, event notifications.Event) {
	if s.publisher == nil || len(userIDs) == 0 {
		return
	}
	s.publisher.BroadcastMany(userIDs, event)
}

// publishToAudience notifies every user that can see notification. Lookup failures
// only cost the push, never the operation that triggered it.
func (s *NotificationService) publishToAudience(ctx context.Context, notification *models.Notification, name string) {
	if s.publisher == nil {
		return
	}

	var targets []string
	if notification.Mode == models.ModeDirect {
		if notification.UserID != nil {
			targets = []string{*notification.UserID}
		}
	} else if err := s.db.WithContext(ctx).
		Model(&models.NotificationRecipient{}).
		Where("notification_id = ?", notification.ID).
		Pluck("user_id", &targets).Error; err != nil {
		s.log.Warn("resolve push targets", zap.String("notification_id", notification.ID), zap.Error(err))
		return
	}

	s.publish(targets, notifications.Event{Event: name, NotificationID: notification.ID})
}

func (in CreateNotificationInput) build() (*models.Notification, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, apperrors.NewValidation("message is required")
	}

	notificationType := models.NotificationType(defaultIfEmpty(string(in.Type), string(models.NotificationInfo)))
	if !notificationType.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown notification type %q", in.Type))
	}

	priority := models.Priority(defaultIfEmpty(string(in.Priority), string(models.PriorityMedium)))
	if !priority.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown priority %q", in.Priority))
	}

	module := defaultIfEmpty(in.Module, defaultModule)
	notification := &models.Notification{
		Message:      message,
		Type:         notificationType,
		Priority:     priority,
		PriorityRank: priority.Rank(),
		Module:       module,
		Category:     defaultIfEmpty(in.Category, module),
		Link:         strings.TrimSpace(in.Link),
		CreatedBy:    stringPtr(strings.TrimSpace(in.CreatedBy)),
		ContextType:  strings.ToLower(strings.TrimSpace(in.ContextType)),
		ContextID:    strings.TrimSpace(in.ContextID),
	}

	switch audience := in.Audience.(type) {
	case nil:
		return nil, apperrors.NewValidation("audience is required")
	case models.DirectAudience:
		userID := strings.TrimSpace(audience.UserID)
		if userID == "" {
			return nil, apperrors.NewValidation("direct notifications require a user id")
		}
		notification.UserID = &userID
	case models.RoleAudience:
		roleID := strings.TrimSpace(audience.RoleID)
		if roleID == "" {
			return nil, apperrors.NewValidation("role notifications require a role id")
		}
		notification.RoleID = &roleID
	case models.AllAudience:
	case models.SpecificAudience:
		if len(normaliseIDs(audience.UserIDs)) == 0 {
			return nil, apperrors.NewValidation("specific notifications require at least one user id")
		}
	default:
		return nil, apperrors.NewValidation("unsupported audience")
	}
	notification.Mode = in.Audience.Mode()

	actions := make(datatypes.JSONSlice[models.Action], 0, len(in.Actions))
	for _, action := range in.Actions {
		actionType := strings.TrimSpace(action.ActionType)
		if actionType == "" {
			return nil, apperrors.NewValidation("action type is required")
		}
		actions = append(actions, models.Action{
			ActionType: actionType,
			Label:      defaultIfEmpty(action.Label, actionType),
		})
	}
	notification.Actions = actions
	notification.Actionable = len(actions) > 0

	if len(in.Metadata) > 0 {
		notification.Metadata = datatypes.JSONMap(in.Metadata)
	}
	if in.ExpiresAt != nil {
		expires := in.ExpiresAt.UTC()
		notification.ExpiresAt = &expires
	}

	return notification, nil
}
