package models

import "time"

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusCancelled TransferStatus = "cancelled"
	TransferStatusRejected  TransferStatus = "rejected"
)

func ParseTransferStatus(s string) (TransferStatus, bool) {
	switch TransferStatus(s) {
	case TransferStatusPending, TransferStatusCompleted, TransferStatusCancelled, TransferStatusRejected:
		return TransferStatus(s), true
	}
	return "", false
}

// Transfer: a proposed movement of quantity from one organization's batch to
// another organization. Only pending is non-terminal; completed, cancelled and
// rejected are each reachable only from pending.
type Transfer struct {
	ID                  uint           `gorm:"primaryKey"`
	BatchID             uint           `gorm:"index;not null"`
	Batch               Batch
	FromOrganizationID  uint `gorm:"index;not null"`
	FromOrganization    Organization
	ToOrganizationID    uint `gorm:"index;not null"`
	ToOrganization      Organization
	QuantityTransferred float64        `gorm:"not null"`
	Status              TransferStatus `gorm:"size:20;index;not null"`
	InitiatedByUserID   uint
	AcceptedByUserID    *uint
	InitiatedAt         time.Time `gorm:"not null"`
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
