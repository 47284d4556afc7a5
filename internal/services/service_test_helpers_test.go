package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/database/testutil"
	"github.com/charlesng35/estatecrm/internal/models"
)

var errDirectoryDown = errors.New("directory offline")

type failingDirectory struct{}

func (failingDirectory) ActiveUserIDs(context.Context) ([]string, error) {
	return nil, errDirectoryDown
}

func (failingDirectory) ActiveUserIDsByRole(context.Context, string) ([]string, error) {
	return nil, errDirectoryDown
}

func (failingDirectory) RoleOf(context.Context, string) (string, error) {
	return "", errDirectoryDown
}

func (failingDirectory) DepartmentOf(context.Context, string) (string, error) {
	return "", errDirectoryDown
}

type fixture struct {
	db      *gorm.DB
	roles   *RoleCatalog
	service *NotificationService
}

func newFixture(t *testing.T, opts ...NotificationOption) *fixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	roles, err := LoadRoleCatalog(context.Background(), db)
	require.NoError(t, err)

	svc, err := NewNotificationService(db, nil, opts...)
	require.NoError(t, err)

	return &fixture{db: db, roles: roles, service: svc}
}

func (f *fixture) roleID(t *testing.T, key models.RoleKey) string {
	t.Helper()
	id, ok := f.roles.ID(key)
	require.True(t, ok, "role %s not seeded", key)
	return id
}

func (f *fixture) addUser(t *testing.T, id string, role models.RoleKey, active bool) models.User {
	t.Helper()
	return f.addUserWithDepartment(t, id, role, "", active)
}

func (f *fixture) addUserWithDepartment(t *testing.T, id string, role models.RoleKey, department models.Department, active bool) models.User {
	t.Helper()

	roleID := f.roleID(t, role)
	user := models.User{
		BaseModel:  models.BaseModel{ID: id},
		Name:       id,
		Email:      id + "@example.com",
		RoleID:     &roleID,
		Department: string(department),
		IsActive:   active,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *fixture) notify(t *testing.T, input CreateNotificationInput) *models.Notification {
	t.Helper()
	notification, err := f.service.Create(context.Background(), input)
	require.NoError(t, err)
	return notification
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&total).Error)
	return total
}

type tickingClock struct {
	current time.Time
	step    time.Duration
}

func (c *tickingClock) Now() time.Time {
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}
