package models

import "time"

// Department is one of the fixed sign-off departments of an approval ticket.
type Department string

const (
	DepartmentAccounting Department = "contaduria"
	DepartmentLegal      Department = "legales"
	DepartmentTreasury   Department = "tesoreria"
	DepartmentSales      Department = "gerenciaComercial"
	DepartmentManagement Department = "gerencia"
	DepartmentArchitect  Department = "arquitecto"
)

// Departments returns the sign-off departments in display order.
func Departments() []Department {
	return []Department{
		DepartmentAccounting,
		DepartmentLegal,
		DepartmentTreasury,
		DepartmentSales,
		DepartmentManagement,
		DepartmentArchitect,
	}
}

// Valid reports whether d is one of the sign-off departments.
func (d Department) Valid() bool {
	for _, known := range Departments() {
		if d == known {
			return true
		}
	}
	return false
}

// ApprovalState is both a department decision and the ticket aggregate.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// ApprovalTicket is a document that needs sign-off from every department.
type ApprovalTicket struct {
	BaseModel

	Code      string        `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Title     string        `gorm:"type:varchar(255);not null" json:"title"`
	Status    ApprovalState `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatorID string        `gorm:"type:varchar(36);index" json:"creator_id"`

	Signatures []ApprovalSignature `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE" json:"signatures,omitempty"`
}

// ApprovalSignature is one department's vote on a ticket.
type ApprovalSignature struct {
	BaseModel

	TicketID   string        `gorm:"type:uuid;uniqueIndex:idx_ticket_department;not null" json:"ticket_id"`
	Department Department    `gorm:"type:varchar(32);uniqueIndex:idx_ticket_department;not null" json:"department"`
	Decision   ApprovalState `gorm:"type:varchar(16);not null" json:"decision"`
	DecidedBy  *string       `gorm:"type:uuid" json:"decided_by,omitempty"`
	DecidedAt  *time.Time    `json:"decided_at,omitempty"`
	Comments   string        `gorm:"type:text" json:"comments,omitempty"`
}

// AggregateApproval folds department decisions into the ticket state: approved when
// every department approved, rejected when any rejected, pending otherwise.
func AggregateApproval(decisions []ApprovalState, departments int) ApprovalState {
	approved := 0
	for _, decision := range decisions {
		switch decision {
		case ApprovalRejected:
			return ApprovalRejected
		case ApprovalApproved:
			approved++
		}
	}
	if departments > 0 && approved == departments {
		return ApprovalApproved
	}
	return ApprovalPending
}
