package transfer

import (
	"errors"
	"fmt"
	"time"

	"traceflow-backend/internal/audit"
	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"gorm.io/gorm"
)

// Initiate proposes moving quantity from one of the caller's batches to
// another organization. The batch is reserved by moving it to "in_transit"
// in the same transaction, so it cannot be transferred twice or mutated
// while the proposal is pending.
func Initiate(batchID, toOrgID uint, quantity float64, ident domain.Identity) (*models.Transfer, error) {
	callerOrgID, err := ident.RequireOrganization()
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, domain.Invalid("transfer quantity must be positive")
	}

	var t models.Transfer
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var b models.Batch
		if err := tx.First(&b, batchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("batch", batchID)
			}
			return err
		}

		if b.OrganizationID != callerOrgID {
			return domain.Violation("you can only transfer batches owned by your organization")
		}
		if callerOrgID == toOrgID {
			return domain.Violation("cannot transfer to the same organization")
		}
		if b.Status != models.BatchStatusReadyForTransfer {
			return domain.Violation("batch is not in a 'ready_for_transfer' state")
		}
		if quantity > b.Quantity {
			return domain.Violation("transfer quantity %.4f exceeds batch quantity %.4f", quantity, b.Quantity)
		}

		var toOrg models.Organization
		if err := tx.First(&toOrg, toOrgID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("organization", toOrgID)
			}
			return err
		}

		t = models.Transfer{
			BatchID:             b.ID,
			FromOrganizationID:  callerOrgID,
			ToOrganizationID:    toOrgID,
			QuantityTransferred: quantity,
			Status:              models.TransferStatusPending,
			InitiatedByUserID:   ident.UserID,
			InitiatedAt:         time.Now(),
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}

		beforeBatch := b
		b.Status = models.BatchStatusInTransit
		b.ModifiedBy = ident.UserID
		if err := tx.Save(&b).Error; err != nil {
			return err
		}

		if err := audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "transfer",
			EntityID:    t.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Transfer initiated: batch #%d, %.4f %s to organization %s", b.ID, quantity, b.UnitOfMeasure, toOrg.Name),
			After:       t,
		}); err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "batch",
			EntityID:    b.ID,
			Action:      models.AuditActionUpdate,
			Description: "Batch reserved for transfer",
			Before:      beforeBatch,
			After:       b,
		})
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Accept completes a pending transfer: only the destination organization may
// accept, the batch moves to the destination organization and becomes
// "received".
func Accept(transferID uint, ident domain.Identity) error {
	callerOrgID, err := ident.RequireOrganization()
	if err != nil {
		return err
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		t, err := loadPending(tx, transferID, func(t *models.Transfer) error {
			if t.ToOrganizationID != callerOrgID {
				return domain.Unauthorized("only the receiving organization can accept this transfer")
			}
			return nil
		})
		if err != nil {
			return err
		}

		now := time.Now()
		beforeTransfer := *t
		accepterID := ident.UserID
		t.Status = models.TransferStatusCompleted
		t.AcceptedByUserID = &accepterID
		t.CompletedAt = &now
		if err := tx.Save(t).Error; err != nil {
			return err
		}

		var b models.Batch
		if err := tx.First(&b, t.BatchID).Error; err != nil {
			return err
		}
		beforeBatch := b
		b.OrganizationID = t.ToOrganizationID
		if b.Status == models.BatchStatusInTransit {
			b.Status = models.BatchStatusReceived
		}
		b.ModifiedBy = ident.UserID
		if err := tx.Save(&b).Error; err != nil {
			return err
		}

		if err := audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "transfer",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Transfer accepted: batch #%d moved to organization %d", b.ID, t.ToOrganizationID),
			Before:      beforeTransfer,
			After:       *t,
		}); err != nil {
			return err
		}

		return audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "batch",
			EntityID:    b.ID,
			Action:      models.AuditActionUpdate,
			Description: "Batch ownership moved by transfer",
			Before:      beforeBatch,
			After:       b,
		})
	})
}

// Cancel withdraws a pending transfer; only the sending organization may
// cancel. The batch returns to "ready_for_transfer".
func Cancel(transferID uint, ident domain.Identity) error {
	callerOrgID, err := ident.RequireOrganization()
	if err != nil {
		return err
	}

	return closeTransfer(transferID, models.TransferStatusCancelled, ident, func(t *models.Transfer) error {
		if t.FromOrganizationID != callerOrgID {
			return domain.Unauthorized("only the sending organization can cancel this transfer")
		}
		return nil
	})
}

// Reject declines a pending transfer; only the receiving organization may
// reject. The batch returns to "ready_for_transfer".
func Reject(transferID uint, ident domain.Identity) error {
	callerOrgID, err := ident.RequireOrganization()
	if err != nil {
		return err
	}

	return closeTransfer(transferID, models.TransferStatusRejected, ident, func(t *models.Transfer) error {
		if t.ToOrganizationID != callerOrgID {
			return domain.Unauthorized("only the receiving organization can reject this transfer")
		}
		return nil
	})
}

// closeTransfer moves a pending transfer to a terminal state that does NOT hand the
// batch over, releasing the in-transit reservation.
func closeTransfer(transferID uint, terminal models.TransferStatus, ident domain.Identity, authorize func(*models.Transfer) error) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		t, err := loadPending(tx, transferID, authorize)
		if err != nil {
			return err
		}

		now := time.Now()
		beforeTransfer := *t
		t.Status = terminal
		t.CompletedAt = &now
		if err := tx.Save(t).Error; err != nil {
			return err
		}

		var b models.Batch
		if err := tx.First(&b, t.BatchID).Error; err != nil {
			return err
		}
		beforeBatch := b
		if b.Status == models.BatchStatusInTransit {
			b.Status = models.BatchStatusReadyForTransfer
			b.ModifiedBy = ident.UserID
			if err := tx.Save(&b).Error; err != nil {
				return err
			}
			if err := audit.Write(tx, audit.Entry{
				UserID:      ident.UserID,
				UserName:    ident.UserName,
				EntityType:  "batch",
				EntityID:    b.ID,
				Action:      models.AuditActionUpdate,
				Description: "Transfer reservation released",
				Before:      beforeBatch,
				After:       b,
			}); err != nil {
				return err
			}
		}

		return audit.Write(tx, audit.Entry{
			UserID:      ident.UserID,
			UserName:    ident.UserName,
			EntityType:  "transfer",
			EntityID:    t.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Transfer %s", terminal),
			Before:      beforeTransfer,
			After:       *t,
		})
	})
}

// loadPending fetches the transfer, runs the caller's authorization check,
// then enforces that only pending transfers can move.
func loadPending(tx *gorm.DB, transferID uint, authorize func(*models.Transfer) error) (*models.Transfer, error) {
	var t models.Transfer
	if err := tx.First(&t, transferID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("transfer", transferID)
		}
		return nil, err
	}

	if err := authorize(&t); err != nil {
		return nil, err
	}

	if t.Status != models.TransferStatusPending {
		return nil, domain.Violation("transfer is not pending")
	}

	return &t, nil
}
