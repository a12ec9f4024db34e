package batch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"traceflow-backend/internal/audit"
	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateInput struct {
	OrganizationID  uint
	ProductType     string
	StrainOrVariety string
	Quantity        float64
	UnitOfMeasure   string
	HarvestDate     time.Time
	SiteID          *uint
}

type SplitDef struct {
	Quantity        float64
	ProductType     string
	StrainOrVariety string
}

// Create validates the input, verifies the owning organization and the
// optional production site, and persists a new batch with a fresh public
// token in status "created".
func Create(in CreateInput, ident domain.Identity) (*models.Batch, error) {
	if in.Quantity < 0 {
		return nil, domain.Invalid("quantity cannot be negative")
	}
	if strings.TrimSpace(in.ProductType) == "" {
		return nil, domain.Invalid("product type is required")
	}
	if in.HarvestDate.IsZero() {
		return nil, domain.Invalid("harvest date is required")
	}
	if in.HarvestDate.After(time.Now()) {
		return nil, domain.Invalid("harvest date cannot be in the future")
	}
	if in.UnitOfMeasure == "" {
		in.UnitOfMeasure = "KG"
	}

	var batch models.Batch
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.First(&org, in.OrganizationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("organization", in.OrganizationID)
			}
			return err
		}

		if in.SiteID != nil {
			var site models.ProductionSite
			if err := tx.First(&site, *in.SiteID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.NotFound("production site", *in.SiteID)
				}
				return err
			}
			if site.OrganizationID != in.OrganizationID {
				return domain.Violation("site %d does not belong to organization %d", *in.SiteID, in.OrganizationID)
			}
		}

		batch = models.Batch{
			OrganizationID:  in.OrganizationID,
			SiteID:          in.SiteID,
			PublicToken:     uuid.NewString(),
			ProductType:     in.ProductType,
			StrainOrVariety: in.StrainOrVariety,
			Quantity:        in.Quantity,
			UnitOfMeasure:   in.UnitOfMeasure,
			Status:          models.BatchStatusCreated,
			HarvestDate:     in.HarvestDate,
			CreatedBy:       ident.UserID,
			ModifiedBy:      ident.UserID,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "batch",
			EntityID:    batch.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Batch created: %s %.4f %s", batch.ProductType, batch.Quantity, batch.UnitOfMeasure),
			After:       batch,
		})
	})
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Split carves the requested quantities out of the source batch into new
// child batches, recording one lineage edge per child. The whole operation
// is one transaction: on any failure the source quantity, the created
// children and the lineage edges roll back together. Returned child ids
// match the order of the definitions.
func Split(sourceBatchID uint, defs []SplitDef, ident domain.Identity) ([]uint, error) {
	callerOrgID, err := ident.RequireOrganization()
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, domain.Invalid("at least one split is required")
	}
	for i, def := range defs {
		if def.Quantity <= 0 {
			return nil, domain.Invalid("split %d: quantity must be positive", i+1)
		}
	}

	var childIDs []uint
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var source models.Batch
		if err := tx.First(&source, sourceBatchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("batch", sourceBatchID)
			}
			return err
		}

		if source.OrganizationID != callerOrgID {
			return domain.Violation("you can only split batches owned by your organization")
		}
		if source.Status.IsTerminalForSplit() {
			return domain.Violation("cannot split a batch in the '%s' state", source.Status)
		}
		if source.Status == models.BatchStatusInTransit {
			return domain.Violation("cannot split a batch reserved by a pending transfer")
		}

		var totalRequested float64
		for _, def := range defs {
			totalRequested += def.Quantity
		}
		if totalRequested > source.Quantity {
			return domain.Violation("insufficient quantity in source batch: available %.4f, requested %.4f",
				source.Quantity, totalRequested)
		}

		before := source

		for _, def := range defs {
			child := models.Batch{
				OrganizationID:  source.OrganizationID,
				SiteID:          source.SiteID,
				PublicToken:     uuid.NewString(),
				ProductType:     source.ProductType,
				StrainOrVariety: def.StrainOrVariety,
				Quantity:        def.Quantity,
				UnitOfMeasure:   source.UnitOfMeasure,
				Status:          models.BatchStatusCreated,
				HarvestDate:     source.HarvestDate,
				CreatedBy:       ident.UserID,
				ModifiedBy:      ident.UserID,
			}
			if def.ProductType != "" {
				child.ProductType = def.ProductType
			}
			if err := tx.Create(&child).Error; err != nil {
				return err
			}

			if err := addChild(tx, &source, &child, def.Quantity); err != nil {
				return err
			}

			if err := audit.Write(tx, audit.Entry{
				UserID:      ident.UserID,
				UserName:    ident.UserName,
				EntityType:  "batch",
				EntityID:    child.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Batch split from #%d: %.4f %s", source.ID, child.Quantity, child.UnitOfMeasure),
				After:       child,
			}); err != nil {
				return err
			}

			childIDs = append(childIDs, child.ID)
		}

		return audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "batch",
			EntityID:    source.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Batch split into %d children, quantity %.4f -> %.4f", len(defs), before.Quantity, source.Quantity),
			Before:      before,
			After:       source,
		})
	})
	if err != nil {
		return nil, err
	}
	return childIDs, nil
}

// UpdateStatus applies the allowed transition matrix. Re-applying the
// current status is a no-op success. The first transition to "processed"
// stamps the process date; it is never overwritten afterwards.
func UpdateStatus(batchID uint, next models.BatchStatus, ident domain.Identity) error {
	callerOrgID, err := ident.RequireOrganization()
	if err != nil {
		return err
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		var b models.Batch
		if err := tx.First(&b, batchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("batch", batchID)
			}
			return err
		}

		if b.OrganizationID != callerOrgID {
			return domain.Violation("you can only update batches owned by your organization")
		}

		if b.Status == next {
			return nil
		}

		if !b.Status.CanTransitionTo(next) {
			return domain.Violation("invalid status transition from '%s' to '%s'", b.Status, next)
		}

		before := b
		b.Status = next
		if next == models.BatchStatusProcessed && b.ProcessDate == nil {
			now := time.Now()
			b.ProcessDate = &now
		}
		b.ModifiedBy = ident.UserID
		if err := tx.Save(&b).Error; err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "batch",
			EntityID:    b.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Batch status changed: %s -> %s", before.Status, next),
			Before:      before,
			After:       b,
		})
	})
}

// addChild wires child under parent: cycle check, atomic conditional
// decrement of the parent quantity, and a new lineage edge. Must run inside
// the caller's transaction.
func addChild(tx *gorm.DB, parent *models.Batch, child *models.Batch, quantity float64) error {
	if quantity <= 0 {
		return domain.Invalid("lineage quantity must be positive")
	}
	if parent.ID == child.ID {
		return domain.Violation("a batch cannot be its own parent")
	}

	var count int64
	if err := tx.Model(&models.BatchLineage{}).
		Where("parent_batch_id = ? AND child_batch_id = ?", parent.ID, child.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.Violation("lineage edge from batch %d to batch %d already exists", parent.ID, child.ID)
	}

	isAncestor, err := isDescendantOf(tx, parent.ID, child.ID)
	if err != nil {
		return err
	}
	if isAncestor {
		return domain.Violation("lineage edge would form a cycle: batch %d is an ancestor of batch %d", child.ID, parent.ID)
	}

	// Conditional decrement: the WHERE guard makes overdrawing impossible
	// even when two transactions race past the pre-check on the same source.
	res := tx.Model(&models.Batch{}).
		Where("id = ? AND quantity >= ?", parent.ID, quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Violation("insufficient quantity in batch %d", parent.ID)
	}
	parent.Quantity -= quantity

	edge := models.BatchLineage{
		ParentBatchID:     parent.ID,
		ChildBatchID:      child.ID,
		QuantityAllocated: quantity,
	}
	return tx.Create(&edge).Error
}

// isDescendantOf reports whether batchID equals, or transitively descends
// from, ancestorID. Parent edges are loaded from the store level by level,
// so the walk never depends on a partially materialized object graph.
func isDescendantOf(tx *gorm.DB, batchID, ancestorID uint) (bool, error) {
	if batchID == ancestorID {
		return true, nil
	}

	visited := map[uint]bool{batchID: true}
	frontier := []uint{batchID}

	for len(frontier) > 0 {
		var edges []models.BatchLineage
		if err := tx.Where("child_batch_id IN ?", frontier).Find(&edges).Error; err != nil {
			return false, err
		}

		var next []uint
		for _, e := range edges {
			if e.ParentBatchID == ancestorID {
				return true, nil
			}
			if !visited[e.ParentBatchID] {
				visited[e.ParentBatchID] = true
				next = append(next, e.ParentBatchID)
			}
		}
		frontier = next
	}

	return false, nil
}
