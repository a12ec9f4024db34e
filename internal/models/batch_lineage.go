package models

import "time"

// BatchLineage: a directed edge recording that QuantityAllocated moved from
// the parent batch into the child batch at split time. The edge set over all
// batches must stay acyclic; the (parent, child) pair is unique.
type BatchLineage struct {
	ID                uint `gorm:"primaryKey"`
	ParentBatchID     uint `gorm:"index;not null;uniqueIndex:idx_lineage_pair"`
	ParentBatch       Batch
	ChildBatchID      uint `gorm:"index;not null;uniqueIndex:idx_lineage_pair"`
	ChildBatch        Batch
	QuantityAllocated float64 `gorm:"not null"`
	CreatedAt         time.Time
}
