package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/estatecrm/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.SystemSetting{},
		&models.RateCounter{},
		&models.Notification{},
		&models.NotificationRecipient{},
		&models.NotificationRead{},
		&models.NotificationArchive{},
		&models.NotificationAction{},
		&models.Client{},
		&models.Project{},
		&models.CalendarEvent{},
		&models.Complaint{},
		&models.ConstructionProject{},
		&models.ConstructionTask{},
		&models.ApprovalTicket{},
		&models.ApprovalSignature{},
	)
}

// SeedData populates the role reference table. Existing rows are matched by key
// and left untouched.
func SeedData(db *gorm.DB) error {
	for _, role := range models.DefaultRoles() {
		if err := db.Where(models.Role{Key: role.Key}).Attrs(role).FirstOrCreate(&models.Role{}).Error; err != nil {
			return err
		}
	}
	return nil
}
