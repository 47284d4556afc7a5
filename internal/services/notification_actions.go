package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/notifications"
	apperrors "github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/metrics"
)

// ExecuteActionInput identifies an action taken on an actionable notification.
type ExecuteActionInput struct {
	NotificationID string
	UserID         string
	ActionType     string
	Label          string
}

// ExecuteAction logs the action and marks the notification read for the actor in one
// transaction, then hands the action to the handler registered for the notification's
// context type. Handler problems are recorded on the log row and never returned.
func (s *NotificationService) ExecuteAction(ctx context.Context, input ExecuteActionInput) (*models.NotificationAction, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	actionType := strings.TrimSpace(input.ActionType)
	if userID == "" || actionType == "" {
		return nil, apperrors.NewValidation("user id and action type are required")
	}

	notification, err := s.find(ctx, input.NotificationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	action := &models.NotificationAction{
		NotificationID: notification.ID,
		UserID:         userID,
		ActionType:     actionType,
		Label:          actionLabel(notification, actionType, input.Label),
		ExecutedAt:     now,
		DispatchStatus: models.DispatchPending,
	}

	var firstRead bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(action).Error; err != nil {
			return fmt.Errorf("notification service: log action on %s: %w", notification.ID, err)
		}
		inserted, err := insertReadMark(tx, notification.ID, userID, now)
		firstRead = inserted
		return err
	})
	if err != nil {
		return nil, storeError(err)
	}
	if firstRead {
		metrics.ReadMarks.Inc()
		s.publish([]string{userID}, notifications.Event{Event: notifications.EventRead, NotificationID: notification.ID})
	}

	status, dispatchErr := s.dispatch(ctx, notification, actionType, userID)
	action.DispatchStatus = status
	if dispatchErr != nil {
		action.DispatchError = dispatchErr.Error()
		s.log.Warn("notification action dispatch failed",
			zap.String("notification_id", notification.ID),
			zap.String("context_type", notification.ContextType),
			zap.String("context_id", notification.ContextID),
			zap.String("action_type", actionType),
			zap.String("status", status),
			zap.Error(dispatchErr),
		)
	}
	metrics.ActionsExecuted.WithLabelValues(actionType, status).Inc()

	if err := s.db.WithContext(ctx).
		Model(action).
		Updates(map[string]any{
			"dispatch_status": action.DispatchStatus,
			"dispatch_error":  action.DispatchError,
		}).Error; err != nil {
		s.log.Warn("record action dispatch status", zap.String("action_id", action.ID), zap.Error(err))
	}

	return action, nil
}

// ListActions returns the action log of a notification, oldest first.
func (s *NotificationService) ListActions(ctx context.Context, notificationID string) ([]models.NotificationAction, error) {
	ctx = ensureContext(ctx)

	var actions []models.NotificationAction
	if err := s.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("executed_at ASC").
		Find(&actions).Error; err != nil {
		return nil, storeError(fmt.Errorf("notification service: list actions of %s: %w", notificationID, err))
	}
	return actions, nil
}

func (s *NotificationService) dispatch(ctx context.Context, notification *models.Notification, actionType, userID string) (status string, err error) {
	if notification.ContextType == "" {
		return models.DispatchUnhandled, nil
	}

	handler, ok := s.registry.Get(notification.ContextType)
	if !ok {
		return models.DispatchUnhandled, fmt.Errorf("no handler registered for context type %q", notification.ContextType)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			status = models.DispatchFailed
			err = fmt.Errorf("handler panic: %v", recovered)
		}
	}()

	switch actionType {
	case models.ActionApprove:
		err = handler.OnApproved(ctx, notification.ContextID, userID)
	case models.ActionReject:
		err = handler.OnRejected(ctx, notification.ContextID, userID)
	default:
		custom, ok := handler.(notifications.ActionHandler)
		if !ok {
			return models.DispatchUnhandled, fmt.Errorf("context type %q does not handle action %q", notification.ContextType, actionType)
		}
		err = custom.OnAction(ctx, actionType, notification.ContextID, userID)
	}
	if err != nil {
		return models.DispatchFailed, err
	}
	return models.DispatchDispatched, nil
}

func actionLabel(notification *models.Notification, actionType, label string) string {
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	for _, action := range notification.Actions {
		if action.ActionType == actionType {
			return action.Label
		}
	}
	return actionType
}
