package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/estatecrm/pkg/errors"
)

// ErrSourceAlreadyHandled is returned by a CreateNotificationInput.SourceUpdate hook
// when the source row no longer qualifies. The notification is rolled back.
var ErrSourceAlreadyHandled = errors.New("notification source already handled")

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}

// storeError maps a persistence failure onto the error taxonomy. Application errors
// and the source-handled sentinel pass through untouched.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || errors.Is(err, ErrSourceAlreadyHandled) {
		return err
	}
	return apperrors.Unavailable(err)
}
