package models

// User is the read-only directory entry consulted by recipient resolution.
// User management itself belongs to another module.
type User struct {
	BaseModel

	Name       string  `gorm:"type:varchar(255);not null" json:"name"`
	Email      string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	RoleID     *string `gorm:"type:uuid;index" json:"role_id"`
	Role       *Role   `json:"role,omitempty"`
	Department string  `gorm:"type:varchar(64)" json:"department,omitempty"`
	IsActive   bool    `gorm:"not null;index" json:"is_active"`
}
