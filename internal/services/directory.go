package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/models"
)

// UserDirectory is the read-only view of users and roles the notification engine
// depends on. User and role management live elsewhere.
type UserDirectory interface {
	ActiveUserIDs(ctx context.Context) ([]string, error)
	ActiveUserIDsByRole(ctx context.Context, roleID string) ([]string, error)
	// RoleOf returns the role id of userID, empty when the user has none or is unknown.
	RoleOf(ctx context.Context, userID string) (string, error)
	// DepartmentOf returns the sign-off department of userID, empty when unset.
	DepartmentOf(ctx context.Context, userID string) (string, error)
}

type gormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory returns a UserDirectory backed by the users table.
func NewGormDirectory(db *gorm.DB) UserDirectory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) ActiveUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_active = ?", true).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("user directory: list active users: %w", err)
	}
	return ids, nil
}

func (d *gormDirectory) ActiveUserIDsByRole(ctx context.Context, roleID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).
		Model(&models.User{}).
		Where("is_active = ? AND role_id = ?", true, roleID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("user directory: list active users for role %s: %w", roleID, err)
	}
	return ids, nil
}

func (d *gormDirectory) RoleOf(ctx context.Context, userID string) (string, error) {
	user, err := d.lookup(ctx, userID)
	if err != nil || user == nil {
		return "", err
	}
	if user.RoleID == nil {
		return "", nil
	}
	return *user.RoleID, nil
}

func (d *gormDirectory) DepartmentOf(ctx context.Context, userID string) (string, error) {
	user, err := d.lookup(ctx, userID)
	if err != nil || user == nil {
		return "", err
	}
	return user.Department, nil
}

func (d *gormDirectory) lookup(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Select("id", "role_id", "department").
		Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user directory: lookup user %s: %w", userID, err)
	}
	return &user, nil
}

// RoleCatalog maps role keys to the row ids stored on notifications. It is loaded once
// at start-up from the seeded roles table.
type RoleCatalog struct {
	ids map[models.RoleKey]string
}

// LoadRoleCatalog reads every role row.
func LoadRoleCatalog(ctx context.Context, db *gorm.DB) (*RoleCatalog, error) {
	var roles []models.Role
	if err := db.WithContext(ctx).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("role catalog: load roles: %w", err)
	}

	catalog := &RoleCatalog{ids: make(map[models.RoleKey]string, len(roles))}
	for _, role := range roles {
		catalog.ids[role.Key] = role.ID
	}
	return catalog, nil
}

// ID returns the row id for key.
func (c *RoleCatalog) ID(key models.RoleKey) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.ids[key]
	return id, ok
}

// Audience builds a role audience for key. Unknown keys yield a RoleAudience with an
// empty id, which creation rejects as a validation error.
func (c *RoleCatalog) Audience(key models.RoleKey) models.Audience {
	id, _ := c.ID(key)
	return models.ToRole(id)
}
