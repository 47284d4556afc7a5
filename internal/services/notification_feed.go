package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/notifications"
	apperrors "github.com/charlesng35/estatecrm/pkg/errors"
	"github.com/charlesng35/estatecrm/pkg/metrics"
)

// FeedFilter narrows a feed. Zero values mean "no filter"; Limit is clamped to the
// service feed window.
type FeedFilter struct {
	Priority   models.Priority
	Module     string
	UnreadOnly bool
	Limit      int
}

// NotificationView is a notification as seen by one user.
type NotificationView struct {
	models.Notification
	Read   bool       `json:"read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// Reader is a recipient listed in notification details.
type Reader struct {
	UserID string     `json:"user_id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// NotificationDetails breaks a notification down by who has and has not read it.
type NotificationDetails struct {
	Notification   *models.Notification `json:"notification"`
	RecipientCount int64                `json:"total_recipients"`
	ReadCount      int64                `json:"read_count"`
	ReadBy         []Reader             `json:"read_by"`
	UnreadBy       []Reader             `json:"unread_by"`
}

type viewer struct {
	userID string
	roleID string
}

// FeedWindow returns the number of rows a feed request for requested items returns at
// most. Zero, negative and oversized requests get the configured window.
func (s *NotificationService) FeedWindow(requested int) int {
	if requested <= 0 || requested > s.feedLimit {
		return s.feedLimit
	}
	return requested
}

// Feed returns the notifications visible to userID: addressed to them directly, to
// everyone, to their current role or through a recipient row; not archived and not
// expired. Pinned notifications come first, then higher priorities, then newer ones.
func (s *NotificationService) Feed(ctx context.Context, userID string, filter FeedFilter) ([]NotificationView, error) {
	ctx = ensureContext(ctx)

	v, err := s.viewerOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	limit := s.FeedWindow(filter.Limit)

	where, args := visibilityClause(v, s.now().UTC())
	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where(where, args...)
	if filter.Priority != "" {
		if !filter.Priority.Valid() {
			return nil, apperrors.NewValidation(fmt.Sprintf("unknown priority %q", filter.Priority))
		}
		query = query.Where("notifications.priority = ?", string(filter.Priority))
	}
	if module := strings.TrimSpace(filter.Module); module != "" {
		query = query.Where("notifications.module = ?", module)
	}
	if filter.UnreadOnly {
		query = query.Where(unreadClause, v.userID)
	}

	var rows []models.Notification
	if err := query.
		Order("notifications.pinned DESC").
		Order("notifications.priority_rank DESC").
		Order("notifications.created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, storeError(fmt.Errorf("notification service: feed for %s: %w", v.userID, err))
	}
	if len(rows) == 0 {
		return []NotificationView{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var reads []models.NotificationRead
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND notification_id IN ?", v.userID, ids).
		Find(&reads).Error; err != nil {
		return nil, storeError(fmt.Errorf("notification service: read marks for %s: %w", v.userID, err))
	}
	readAt := make(map[string]time.Time, len(reads))
	for _, read := range reads {
		readAt[read.NotificationID] = read.ReadAt
	}

	views := make([]NotificationView, 0, len(rows))
	for _, row := range rows {
		view := NotificationView{Notification: row}
		if at, ok := readAt[row.ID]; ok {
			at := at
			view.Read = true
			view.ReadAt = &at
		}
		views = append(views, view)
	}
	return views, nil
}

// UnreadCount returns how many notifications in the user's feed are still unread. It is
// not capped by the feed window.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	v, err := s.viewerOf(ctx, userID)
	if err != nil {
		return 0, err
	}

	where, args := visibilityClause(v, s.now().UTC())
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where(where, args...).
		Where(unreadClause, v.userID).
		Count(&count).Error; err != nil {
		return 0, storeError(fmt.Errorf("notification service: unread count for %s: %w", v.userID, err))
	}
	return count, nil
}

// Details returns a notification with its read and unread recipients.
func (s *NotificationService) Details(ctx context.Context, notificationID string) (*NotificationDetails, error) {
	ctx = ensureContext(ctx)

	notification, err := s.find(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	details := &NotificationDetails{
		Notification: notification,
		ReadBy:       []Reader{},
		UnreadBy:     []Reader{},
	}

	db := s.db.WithContext(ctx)
	if err := db.Table("notification_reads AS nr").
		Select("u.id AS user_id, u.name, u.email, nr.read_at").
		Joins("JOIN users u ON u.id = nr.user_id").
		Where("nr.notification_id = ?", notification.ID).
		Order("nr.read_at DESC").
		Scan(&details.ReadBy).Error; err != nil {
		return nil, storeError(fmt.Errorf("notification service: readers of %s: %w", notification.ID, err))
	}

	unread := db.Table("users AS u").Select("u.id AS user_id, u.name, u.email")
	if notification.Mode == models.ModeDirect {
		unread = unread.Where("u.id = ?", *notification.UserID)
	} else {
		unread = unread.Joins("JOIN notification_recipients nrec ON nrec.user_id = u.id AND nrec.notification_id = ?", notification.ID)
	}
	if err := unread.
		Where("NOT EXISTS (SELECT 1 FROM notification_reads nr WHERE nr.notification_id = ? AND nr.user_id = u.id)", notification.ID).
		Order("u.name ASC").
		Scan(&details.UnreadBy).Error; err != nil {
		return nil, storeError(fmt.Errorf("notification service: unread recipients of %s: %w", notification.ID, err))
	}

	details.ReadCount = int64(len(details.ReadBy))
	if notification.Mode == models.ModeDirect {
		details.RecipientCount = 1
	} else if err := db.Model(&models.NotificationRecipient{}).
		Where("notification_id = ?", notification.ID).
		Count(&details.RecipientCount).Error; err != nil {
		return nil, storeError(fmt.Errorf("notification service: count recipients of %s: %w", notification.ID, err))
	}

	return details, nil
}

// MarkRead records that userID read notificationID. Only the first call stores a
// timestamp; later calls and unknown notifications are no-ops.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	notificationID = strings.TrimSpace(notificationID)
	if userID == "" || notificationID == "" {
		return apperrors.NewValidation("user id and notification id are required")
	}

	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Count(&exists).Error; err != nil {
		return storeError(fmt.Errorf("notification service: load %s: %w", notificationID, err))
	}
	if exists == 0 {
		return nil
	}

	inserted, err := insertReadMark(s.db.WithContext(ctx), notificationID, userID, s.now().UTC())
	if err != nil {
		return storeError(err)
	}
	if inserted {
		metrics.ReadMarks.Inc()
		s.publish([]string{userID}, notifications.Event{
			Event:          notifications.EventRead,
			NotificationID: notificationID,
		})
	}
	return nil
}

// MarkAllRead marks every visible and unread notification of the user as read in a
// single statement and returns how many marks were added.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)

	v, err := s.viewerOf(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	where, args := visibilityClause(v, now)

	insert, suffix := "INSERT INTO", " ON CONFLICT DO NOTHING"
	if s.db.Dialector.Name() == "mysql" {
		insert, suffix = "INSERT IGNORE INTO", ""
	}
	statement := insert + " notification_reads (notification_id, user_id, read_at)" +
		" SELECT notifications.id, ?, ? FROM notifications WHERE " + where +
		" AND " + unreadClause + suffix

	params := make([]any, 0, len(args)+3)
	params = append(params, v.userID, now)
	params = append(params, args...)
	params = append(params, v.userID)

	result := s.db.WithContext(ctx).Exec(statement, params...)
	if result.Error != nil {
		return 0, storeError(fmt.Errorf("notification service: mark all read for %s: %w", v.userID, result.Error))
	}

	metrics.ReadMarks.Add(float64(result.RowsAffected))
	if result.RowsAffected > 0 {
		s.publish([]string{v.userID}, notifications.Event{Event: notifications.EventReadAll})
	}
	s.log.Debug("marked all notifications read",
		zap.String("user_id", v.userID),
		zap.Int64("count", result.RowsAffected),
	)
	return result.RowsAffected, nil
}

// insertReadMark stores a read mark unless one exists. It reports whether a row was added.
func insertReadMark(db *gorm.DB, notificationID, userID string, at time.Time) (bool, error) {
	result := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.NotificationRead{
			NotificationID: notificationID,
			UserID:         userID,
			ReadAt:         at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("notification service: mark %s read for %s: %w", notificationID, userID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *NotificationService) viewerOf(ctx context.Context, userID string) (viewer, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return viewer{}, apperrors.NewValidation("user id is required")
	}
	roleID, err := s.directory.RoleOf(ctx, userID)
	if err != nil {
		return viewer{}, apperrors.Unavailable(err)
	}
	return viewer{userID: userID, roleID: roleID}, nil
}

const unreadClause = "NOT EXISTS (SELECT 1 FROM notification_reads nr WHERE nr.notification_id = notifications.id AND nr.user_id = ?)"

// visibilityClause is the single definition of "user can see notification" shared by
// the feed, the unread count and mark-all-read.
func visibilityClause(v viewer, now time.Time) (string, []any) {
	audience := []string{
		"(notifications.mode = ? AND notifications.user_id = ?)",
		"notifications.mode = ?",
		"EXISTS (SELECT 1 FROM notification_recipients nrec WHERE nrec.notification_id = notifications.id AND nrec.user_id = ?)",
	}
	args := []any{string(models.ModeDirect), v.userID, string(models.ModeAll), v.userID}
	if v.roleID != "" {
		audience = append(audience, "(notifications.mode = ? AND notifications.role_id = ?)")
		args = append(args, string(models.ModeRole), v.roleID)
	}

	where := "(" + strings.Join(audience, " OR ") + ")" +
		" AND notifications.archived = ?" +
		" AND (notifications.expires_at IS NULL OR notifications.expires_at > ?)"
	args = append(args, false, now)
	return where, args
}
