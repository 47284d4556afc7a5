package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType classifies how a notification is rendered.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationWarning, NotificationSuccess, NotificationError:
		return true
	}
	return false
}

// Priority orders notifications inside a feed.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the ordering weight of the priority, -1 when unknown.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	}
	return -1
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Action describes a button offered by an actionable notification.
type Action struct {
	ActionType string `json:"action_type"`
	Label      string `json:"label"`
}

// Well-known action types dispatched to context handlers.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Notification is the immutable content of a message plus its global visibility flags.
// Only Archived and Pinned change after creation.
type Notification struct {
	BaseModel

	Message      string           `gorm:"type:text;not null" json:"message"`
	Type         NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	Priority     Priority         `gorm:"type:varchar(16);not null" json:"priority"`
	PriorityRank int              `gorm:"not null;index" json:"-"`
	Module       string           `gorm:"type:varchar(64);index" json:"module"`
	Category     string           `gorm:"type:varchar(64)" json:"category"`
	Link         string           `gorm:"type:varchar(255)" json:"link,omitempty"`

	Mode      AudienceMode `gorm:"type:varchar(16);not null;index" json:"mode"`
	UserID    *string      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	RoleID    *string      `gorm:"type:uuid;index" json:"role_id,omitempty"`
	CreatedBy *string      `gorm:"type:uuid" json:"created_by,omitempty"`

	Actionable  bool                        `gorm:"not null" json:"actionable"`
	Actions     datatypes.JSONSlice[Action] `json:"actions"`
	Metadata    datatypes.JSONMap           `json:"metadata,omitempty"`
	ContextType string                      `gorm:"type:varchar(64);index" json:"context_type,omitempty"`
	ContextID   string                      `gorm:"type:varchar(64)" json:"context_id,omitempty"`

	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	Archived  bool       `gorm:"not null;index" json:"archived"`
	Pinned    bool       `gorm:"not null;index" json:"pinned"`

	Recipients []NotificationRecipient `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reads      []NotificationRead      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Archives   []NotificationArchive   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ActionLogs []NotificationAction    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Audience rebuilds the addressing mode recorded at creation.
func (n *Notification) Audience() Audience {
	switch n.Mode {
	case ModeDirect:
		return DirectAudience{UserID: deref(n.UserID)}
	case ModeRole:
		return RoleAudience{RoleID: deref(n.RoleID)}
	case ModeAll:
		return AllAudience{}
	default:
		return SpecificAudience{}
	}
}

// NotificationRecipient is a materialized membership row for role/all/specific notifications.
// The membership is a snapshot taken at creation and never re-evaluated.
type NotificationRecipient struct {
	NotificationID string    `gorm:"primaryKey;type:uuid" json:"notification_id"`
	UserID         string    `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// NotificationRead records the first time a user read a notification.
type NotificationRead struct {
	NotificationID string    `gorm:"primaryKey;type:uuid" json:"notification_id"`
	UserID         string    `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	ReadAt         time.Time `gorm:"not null" json:"read_at"`
}

// NotificationArchive audits who archived a notification and why.
type NotificationArchive struct {
	BaseModel

	NotificationID string    `gorm:"type:uuid;index;not null" json:"notification_id"`
	ArchivedBy     string    `gorm:"type:uuid;not null" json:"archived_by"`
	Reason         string    `gorm:"type:text" json:"reason,omitempty"`
	ArchivedAt     time.Time `gorm:"not null" json:"archived_at"`
}

// Dispatch outcomes recorded on NotificationAction rows.
const (
	DispatchPending    = "pending"
	DispatchDispatched = "dispatched"
	DispatchUnhandled  = "unhandled"
	DispatchFailed     = "failed"
)

// NotificationAction is the append-only log of executed notification actions.
type NotificationAction struct {
	BaseModel

	NotificationID string    `gorm:"type:uuid;index;not null" json:"notification_id"`
	UserID         string    `gorm:"type:uuid;index;not null" json:"user_id"`
	ActionType     string    `gorm:"type:varchar(64);not null" json:"action_type"`
	Label          string    `gorm:"type:varchar(255)" json:"label"`
	ExecutedAt     time.Time `gorm:"not null" json:"executed_at"`
	DispatchStatus string    `gorm:"type:varchar(16);not null" json:"dispatch_status"`
	DispatchError  string    `gorm:"type:text" json:"dispatch_error,omitempty"`
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
