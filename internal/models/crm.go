package models

import "time"

// The tables below belong to other CRM modules. The notification engine reads them
// to produce notifications and flips their "notified" flags so scheduled scans do
// not fire twice for the same row.

// Client is a prospective or existing buyer.
type Client struct {
	BaseModel

	FirstName string `gorm:"type:varchar(128);not null" json:"first_name"`
	LastName  string `gorm:"type:varchar(128)" json:"last_name"`
	Email     string `gorm:"type:varchar(255)" json:"email,omitempty"`
}

// Project is a real-estate development.
type Project struct {
	BaseModel

	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

// CalendarEvent is an appointment owned by a single user.
type CalendarEvent struct {
	BaseModel

	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Client    string    `gorm:"type:varchar(255)" json:"client"`
	Start     time.Time `gorm:"index;not null" json:"start"`
	End       time.Time `json:"end"`
	Completed bool      `gorm:"not null" json:"completed"`
	Reminded  bool      `gorm:"not null;index" json:"reminded"`
}

// Complaint statuses used by the post-sale workflow.
const (
	ComplaintFiled    = "Ingresado"
	ComplaintInReview = "En proceso"
	ComplaintSolved   = "Solucionado"
)

// Complaint is a post-sale claim raised by a buyer.
type Complaint struct {
	BaseModel

	Ticket        string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"ticket"`
	Client        string    `gorm:"type:varchar(255)" json:"client"`
	Status        string    `gorm:"type:varchar(32);index;not null" json:"status"`
	FiledAt       time.Time `gorm:"index;not null" json:"filed_at"`
	StaleNotified bool      `gorm:"not null" json:"stale_notified"`
}

// ConstructionProject groups construction tasks.
type ConstructionProject struct {
	BaseModel

	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

// ConstructionTask is a scheduled piece of construction work.
type ConstructionTask struct {
	BaseModel

	ProjectID     string               `gorm:"type:uuid;index;not null" json:"project_id"`
	Project       *ConstructionProject `json:"project,omitempty"`
	Name          string               `gorm:"type:varchar(255);not null" json:"name"`
	EndDate       time.Time            `gorm:"index;not null" json:"end_date"`
	Progress      int                  `gorm:"not null" json:"progress"`
	DelayNotified bool                 `gorm:"not null" json:"delay_notified"`
}
