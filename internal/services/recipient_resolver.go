package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/estatecrm/internal/models"
	apperrors "github.com/charlesng35/estatecrm/pkg/errors"
)

const recipientBatchSize = 500

// RecipientResolver expands an audience into the concrete users that receive a
// notification and stores that membership snapshot.
type RecipientResolver struct {
	directory UserDirectory
}

// NewRecipientResolver constructs a resolver over directory.
func NewRecipientResolver(directory UserDirectory) *RecipientResolver {
	return &RecipientResolver{directory: directory}
}

// Resolve returns the user ids an audience addresses. Direct audiences resolve to an
// empty set; their visibility is derived from the notification owner.
// Directory failures are reported as DependencyUnavailable.
func (r *RecipientResolver) Resolve(ctx context.Context, audience models.Audience) ([]string, error) {
	switch a := audience.(type) {
	case models.DirectAudience:
		return nil, nil
	case models.SpecificAudience:
		return normaliseIDs(a.UserIDs), nil
	case models.AllAudience:
		ids, err := r.directory.ActiveUserIDs(ctx)
		if err != nil {
			return nil, apperrors.Unavailable(err)
		}
		return normaliseIDs(ids), nil
	case models.RoleAudience:
		ids, err := r.directory.ActiveUserIDsByRole(ctx, a.RoleID)
		if err != nil {
			return nil, apperrors.Unavailable(err)
		}
		return normaliseIDs(ids), nil
	default:
		return nil, apperrors.NewValidation("unsupported audience")
	}
}

// Materialize stores membership rows for notificationID using tx. Rows that already
// exist are left untouched, so re-running it for the same users is a no-op.
// It returns the number of rows actually inserted.
func (r *RecipientResolver) Materialize(ctx context.Context, tx *gorm.DB, notificationID string, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	rows := make([]models.NotificationRecipient, 0, len(userIDs))
	for _, userID := range userIDs {
		rows = append(rows, models.NotificationRecipient{
			NotificationID: notificationID,
			UserID:         userID,
		})
	}

	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, recipientBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("recipient resolver: materialize %s: %w", notificationID, result.Error)
	}
	return result.RowsAffected, nil
}
