package audit

import (
	"encoding/json"
	"fmt"

	"traceflow-backend/internal/models"

	"gorm.io/gorm"
)

type Entry struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Write records a before/after fact on the given handle. Callers pass their
// open transaction so the audit row commits or rolls back with the change
// it describes.
func Write(tx *gorm.DB, e Entry) error {
	// jsonb rejects the empty string, use the JSON null literal instead
	beforeStr := "null"
	afterStr := "null"

	if e.Before != nil {
		if b, err := json.Marshal(e.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			afterStr = string(b)
		}
	}

	row := models.AuditLog{
		UserID:      e.UserID,
		UserName:    e.UserName,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}

	return nil
}
