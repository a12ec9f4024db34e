package models

import "time"

type BatchStatus string

const (
	BatchStatusCreated          BatchStatus = "created"
	BatchStatusReadyForTransfer BatchStatus = "ready_for_transfer"
	BatchStatusInTransit        BatchStatus = "in_transit"
	BatchStatusReceived         BatchStatus = "received"
	BatchStatusProcessing       BatchStatus = "processing"
	BatchStatusProcessed        BatchStatus = "processed"
	BatchStatusSold             BatchStatus = "sold"
	BatchStatusRecalled         BatchStatus = "recalled"
	BatchStatusClosed           BatchStatus = "closed"
)

// batchTransitions is the allowed status matrix. Absence of an edge means
// the transition is rejected; same-status updates are handled as no-ops
// before this matrix is consulted.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusCreated:          {BatchStatusReadyForTransfer, BatchStatusProcessing, BatchStatusRecalled, BatchStatusClosed},
	BatchStatusReadyForTransfer: {BatchStatusInTransit, BatchStatusProcessing, BatchStatusRecalled, BatchStatusClosed},
	BatchStatusInTransit:        {BatchStatusReceived, BatchStatusRecalled},
	BatchStatusReceived:         {BatchStatusProcessing, BatchStatusReadyForTransfer, BatchStatusRecalled},
	BatchStatusProcessing:       {BatchStatusProcessed, BatchStatusRecalled},
	BatchStatusProcessed:        {BatchStatusSold, BatchStatusReadyForTransfer, BatchStatusRecalled, BatchStatusClosed},
	BatchStatusSold:             {BatchStatusRecalled},
	BatchStatusRecalled:         {BatchStatusClosed},
	BatchStatusClosed:           {},
}

func ParseBatchStatus(s string) (BatchStatus, bool) {
	if _, ok := batchTransitions[BatchStatus(s)]; ok {
		return BatchStatus(s), true
	}
	return "", false
}

// CanTransitionTo reports whether the status matrix allows moving from s to next.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminalForSplit reports whether a batch in this status can no longer be split.
func (s BatchStatus) IsTerminalForSplit() bool {
	return s == BatchStatusClosed || s == BatchStatusRecalled || s == BatchStatusSold
}

type Batch struct {
	ID             uint `gorm:"primaryKey"`
	OrganizationID uint `gorm:"index;not null"`
	Organization   Organization
	SiteID         *uint `gorm:"index"`
	Site           *ProductionSite
	// PublicToken is the opaque identifier used in external verification URLs,
	// distinct from the internal id and never reused.
	PublicToken     string      `gorm:"size:64;uniqueIndex;not null"`
	ProductType     string      `gorm:"size:100;not null"`
	StrainOrVariety string      `gorm:"size:100"`
	Quantity        float64     `gorm:"not null"`
	UnitOfMeasure   string      `gorm:"size:20;not null;default:KG"`
	Status          BatchStatus `gorm:"size:30;index;not null"`
	HarvestDate     time.Time   `gorm:"not null"`
	ProcessDate     *time.Time
	CreatedBy       uint
	ModifiedBy      uint
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
