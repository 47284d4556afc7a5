package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/models"
)

// GetSystemSetting retrieves a system setting by key. Returns an empty string when not found.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("system settings: db is nil")
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Where(&models.SystemSetting{Key: key}).Take(&setting).Error
	if err == nil {
		return setting.Value, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return "", nil
	}
	return "", fmt.Errorf("system settings: get %q: %w", key, err)
}

// UpsertSystemSetting stores or updates a system setting value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return fmt.Errorf("system settings: db is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("system settings: key is required")
	}

	record := models.SystemSetting{
		Key:   key,
		Value: value,
	}

	if err := db.WithContext(ctx).
		Where(&models.SystemSetting{Key: key}).
		Assign(map[string]any{"value": value}).
		FirstOrCreate(&record).Error; err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}

	return nil
}

func jobRunKey(job string) string {
	return "scheduler." + job + ".last_run"
}

// RecordJobRun stores the completion time of a scheduled job run.
func RecordJobRun(ctx context.Context, db *gorm.DB, job string, at time.Time) error {
	return UpsertSystemSetting(ctx, db, jobRunKey(job), at.UTC().Format(time.RFC3339))
}

// LastJobRun returns when job last completed. ok is false when it never ran.
func LastJobRun(ctx context.Context, db *gorm.DB, job string) (at time.Time, ok bool, err error) {
	value, err := GetSystemSetting(ctx, db, jobRunKey(job))
	if err != nil || value == "" {
		return time.Time{}, false, err
	}
	at, err = time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("system settings: parse last run of %q: %w", job, err)
	}
	return at, true, nil
}
