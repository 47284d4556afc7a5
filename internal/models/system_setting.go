package models

import "time"

// SystemSetting is a key/value row for state that must survive restarts, such as
// scheduler last-run stamps and the weekly summary marker.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
