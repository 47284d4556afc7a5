package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatecrm/internal/models"
)

func TestGetAndUpsertSystemSetting(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	value, err := GetSystemSetting(context.Background(), db, "missing")
	require.NoError(t, err)
	require.Equal(t, "", value)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value1"))

	retrieved, err := GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value1", retrieved)

	require.NoError(t, UpsertSystemSetting(context.Background(), db, "sample", "value2"))

	retrieved, err = GetSystemSetting(context.Background(), db, "sample")
	require.NoError(t, err)
	require.Equal(t, "value2", retrieved)
}

func TestRecordAndReadJobRun(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))

	_, ok, err := LastJobRun(context.Background(), db, "event-reminders")
	require.NoError(t, err)
	require.False(t, ok)

	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, RecordJobRun(context.Background(), db, "event-reminders", at))

	got, ok, err := LastJobRun(context.Background(), db, "event-reminders")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, at.Equal(got))
}
