package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditLog: "entity X of kind K changed from before-state to after-state by
// user U at time T". Rows are written inside the same transaction as the
// change they describe.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time

	UserID   uint
	UserName string `gorm:"size:100"` // denormalized for display

	EntityType string `gorm:"size:50;index"`
	EntityID   uint   `gorm:"index"`

	Action      AuditAction `gorm:"size:20"`
	Description string      `gorm:"size:255"`

	// Previous and new state as JSON.
	BeforeData string `gorm:"type:jsonb"`
	AfterData  string `gorm:"type:jsonb"`
}
