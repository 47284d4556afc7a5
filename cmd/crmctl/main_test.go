package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/estatecrm/internal/auth"
	"github.com/charlesng35/estatecrm/internal/database"
	"github.com/charlesng35/estatecrm/internal/models"
	"github.com/charlesng35/estatecrm/internal/services"
)

const testSecret = "crmctl-test-secret"

func writeConfig(t *testing.T) (dir, dbPath string) {
	t.Helper()

	dir = t.TempDir()
	dbPath = filepath.Join(dir, "crm.sqlite")
	content := fmt.Sprintf(`server:
  log_level: error
database:
  driver: sqlite
  path: %s
auth:
  jwt:
    secret: %s
`, filepath.ToSlash(dbPath), testSecret)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir, dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func countNotifications(t *testing.T, dbPath string) int64 {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&total).Error)
	return total
}

func TestMigrateCommand(t *testing.T) {
	dir, dbPath := writeConfig(t)

	out, err := execute(t, "migrate", "--config", dir)
	require.NoError(t, err)
	require.Contains(t, out, "Database migrated (sqlite)")
	require.FileExists(t, dbPath)
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	dir, _ := writeConfig(t)

	out, err := execute(t, "token", "--config", filepath.Join(dir, "config.yaml"), "--user", "user-1", "--role", "Admin")
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: testSecret, Issuer: "estatecrm"})
	require.NoError(t, err)
	claims, err := jwtSvc.ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "admin", claims.Role)

	_, err = execute(t, "token", "--config", dir)
	require.Error(t, err)
}

func TestNotifyCommand(t *testing.T) {
	dir, dbPath := writeConfig(t)

	out, err := execute(t, "notify", "--config", dir, "--role", "postventa", "--message", "Revisar reclamos", "--type", "warning")
	require.NoError(t, err)
	require.Contains(t, out, "created (role)")

	out, err = execute(t, "notify", "--config", dir, "--all", "-m", "Mantenimiento programado")
	require.NoError(t, err)
	require.Contains(t, out, "created (all)")

	require.EqualValues(t, 2, countNotifications(t, dbPath))
}

func TestNotificationsRematerializeCommand(t *testing.T) {
	dir, dbPath := writeConfig(t)

	out, err := execute(t, "notify", "--config", dir, "--role", "postventa", "--message", "Revisar reclamos")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2)
	notificationID := fields[1]

	db, err := database.Open(database.Config{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)
	roles, err := services.LoadRoleCatalog(context.Background(), db)
	require.NoError(t, err)
	roleID, ok := roles.ID(models.RolePostSale)
	require.True(t, ok)
	require.NoError(t, db.Create(&models.User{
		BaseModel: models.BaseModel{ID: "pv-late"},
		Name:      "pv-late",
		Email:     "pv-late@example.com",
		RoleID:    &roleID,
		IsActive:  true,
	}).Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	out, err = execute(t, "notifications", "rematerialize", "--config", dir, notificationID)
	require.NoError(t, err)
	require.Contains(t, out, "1 recipients added")

	out, err = execute(t, "notifications", "rematerialize", "--config", dir, notificationID)
	require.NoError(t, err)
	require.Contains(t, out, "0 recipients added")

	_, err = execute(t, "notifications", "rematerialize", "--config", dir, "missing")
	require.ErrorContains(t, err, "not found")

	_, err = execute(t, "notifications", "rematerialize", "--config", dir)
	require.Error(t, err)
}

func TestNotifyCommandRejectsBadAudiences(t *testing.T) {
	dir, dbPath := writeConfig(t)

	_, err := execute(t, "notify", "--config", dir, "--message", "hola")
	require.Error(t, err)

	_, err = execute(t, "notify", "--config", dir, "--all", "--role", "obras", "--message", "hola")
	require.Error(t, err)

	_, err = execute(t, "notify", "--config", dir, "--role", "astronauta", "--message", "hola")
	require.ErrorContains(t, err, "unknown role")

	_, err = execute(t, "notify", "--config", dir, "--user", "user-1", "--message", "hola", "--priority", "extreme")
	require.Error(t, err)

	require.EqualValues(t, 0, countNotifications(t, dbPath))
}

func TestJobsCommands(t *testing.T) {
	dir, _ := writeConfig(t)

	out, err := execute(t, "jobs", "list", "--config", dir)
	require.NoError(t, err)
	require.Contains(t, out, "event-reminders")
	require.Contains(t, out, "@hourly")
	require.Contains(t, out, "never")

	_, err = execute(t, "jobs", "run", "--config", dir)
	require.Error(t, err)

	_, err = execute(t, "jobs", "run", "--config", dir, "vacuum")
	require.Error(t, err)

	out, err = execute(t, "jobs", "run", "--config", dir, "--all")
	require.NoError(t, err)
	for _, job := range []string{"event-reminders", "stale-complaints", "delayed-tasks", "weekly-summary"} {
		require.Contains(t, out, job)
	}

	out, err = execute(t, "jobs", "list", "--config", dir)
	require.NoError(t, err)
	require.NotContains(t, out, "never")
}

func TestMissingConfigPath(t *testing.T) {
	_, err := execute(t, "migrate", "--config", filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "does not exist")
}
