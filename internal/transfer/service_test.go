package transfer

import (
	"testing"
	"time"

	"traceflow-backend/internal/batch"
	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db
}

func seedOrg(t *testing.T, name string) models.Organization {
	t.Helper()
	org := models.Organization{Name: name, Type: models.OrgTypeProducer}
	require.NoError(t, database.DB.Create(&org).Error)
	return org
}

func seedIdentity(t *testing.T, org models.Organization) domain.Identity {
	t.Helper()
	user := models.User{
		OrganizationID: &org.ID,
		FullName:       "Test User " + org.Name,
		Email:          uuid.NewString() + "@example.com",
		PasswordHash:   "x",
		Role:           models.RoleProducer,
		IsActive:       true,
	}
	require.NoError(t, database.DB.Create(&user).Error)
	return domain.Identity{
		UserID:         user.ID,
		UserName:       user.FullName,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
	}
}

func seedBatch(t *testing.T, orgID uint, quantity float64, status models.BatchStatus) models.Batch {
	t.Helper()
	b := models.Batch{
		OrganizationID: orgID,
		PublicToken:    uuid.NewString(),
		ProductType:    "Green Coffee",
		Quantity:       quantity,
		UnitOfMeasure:  "KG",
		Status:         status,
		HarvestDate:    time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		CreatedBy:      1,
		ModifiedBy:     1,
	}
	require.NoError(t, database.DB.Create(&b).Error)
	return b
}

func reloadBatch(t *testing.T, id uint) models.Batch {
	t.Helper()
	var b models.Batch
	require.NoError(t, database.DB.First(&b, id).Error)
	return b
}

func reloadTransfer(t *testing.T, id uint) models.Transfer {
	t.Helper()
	var tr models.Transfer
	require.NoError(t, database.DB.First(&tr, id).Error)
	return tr
}

func TestInitiateReservesBatch(t *testing.T) {
	setupTestDB(t)
	from := seedOrg(t, "Finca Aurora")
	to := seedOrg(t, "Highland Aggregators")
	sender := seedIdentity(t, from)
	b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)

	tr, err := Initiate(b.ID, to.ID, 50, sender)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusPending, tr.Status)
	assert.Equal(t, from.ID, tr.FromOrganizationID)
	assert.Equal(t, to.ID, tr.ToOrganizationID)
	assert.Nil(t, tr.CompletedAt)

	got := reloadBatch(t, b.ID)
	assert.Equal(t, models.BatchStatusInTransit, got.Status)
	assert.Equal(t, from.ID, got.OrganizationID, "ownership must not move before acceptance")

	// the reservation blocks a second proposal for the same batch
	_, err = Initiate(b.ID, to.ID, 10, sender)
	assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
}

func TestPendingTransferBlocksSplit(t *testing.T) {
	setupTestDB(t)
	from := seedOrg(t, "Finca Aurora")
	to := seedOrg(t, "Highland Aggregators")
	sender := seedIdentity(t, from)
	b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)

	tr, err := Initiate(b.ID, to.ID, 50, sender)
	require.NoError(t, err)

	// the reservation must hold the full quantity until the transfer resolves
	_, err = batch.Split(b.ID, []batch.SplitDef{{Quantity: 40}}, sender)
	assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
	assert.InDelta(t, 50, reloadBatch(t, b.ID).Quantity, 1e-9)

	// releasing the reservation makes the batch splittable again
	require.NoError(t, Cancel(tr.ID, sender))
	childIDs, err := batch.Split(b.ID, []batch.SplitDef{{Quantity: 40}}, sender)
	require.NoError(t, err)
	require.Len(t, childIDs, 1)
	assert.InDelta(t, 10, reloadBatch(t, b.ID).Quantity, 1e-9)
}

func TestInitiateRejections(t *testing.T) {
	setupTestDB(t)
	from := seedOrg(t, "Finca Aurora")
	to := seedOrg(t, "Highland Aggregators")
	sender := seedIdentity(t, from)

	t.Run("non positive quantity", func(t *testing.T) {
		b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)
		_, err := Initiate(b.ID, to.ID, 0, sender)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("quantity exceeds batch", func(t *testing.T) {
		b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)
		_, err := Initiate(b.ID, to.ID, 50.5, sender)
		assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
	})

	t.Run("batch not ready for transfer", func(t *testing.T) {
		b := seedBatch(t, from.ID, 50, models.BatchStatusCreated)
		_, err := Initiate(b.ID, to.ID, 10, sender)
		assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
	})

	t.Run("foreign batch", func(t *testing.T) {
		b := seedBatch(t, to.ID, 50, models.BatchStatusReadyForTransfer)
		_, err := Initiate(b.ID, from.ID, 10, sender)
		assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
	})

	t.Run("same organization", func(t *testing.T) {
		b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)
		_, err := Initiate(b.ID, from.ID, 10, sender)
		assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := Initiate(9999, to.ID, 10, sender)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("unknown destination organization", func(t *testing.T) {
		b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)
		_, err := Initiate(b.ID, 9999, 10, sender)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestAcceptMovesOwnership(t *testing.T) {
	setupTestDB(t)
	from := seedOrg(t, "Finca Aurora")
	to := seedOrg(t, "Highland Aggregators")
	sender := seedIdentity(t, from)
	receiver := seedIdentity(t, to)
	b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)

	tr, err := Initiate(b.ID, to.ID, 50, sender)
	require.NoError(t, err)

	require.NoError(t, Accept(tr.ID, receiver))

	gotTransfer := reloadTransfer(t, tr.ID)
	assert.Equal(t, models.TransferStatusCompleted, gotTransfer.Status)
	require.NotNil(t, gotTransfer.CompletedAt)
	require.NotNil(t, gotTransfer.AcceptedByUserID)
	assert.Equal(t, receiver.UserID, *gotTransfer.AcceptedByUserID)

	gotBatch := reloadBatch(t, b.ID)
	assert.Equal(t, to.ID, gotBatch.OrganizationID)
	assert.Equal(t, models.BatchStatusReceived, gotBatch.Status)

	// a completed transfer cannot move again
	err = Cancel(tr.ID, sender)
	assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
	err = Accept(tr.ID, receiver)
	assert.Equal(t, domain.KindDomainViolation, domain.KindOf(err))
}

func TestAcceptAuthorization(t *testing.T) {
	setupTestDB(t)
	from := seedOrg(t, "Finca Aurora")
	to := seedOrg(t, "Highland Aggregators")
	bystanderOrg := seedOrg(t, "Pacific Exporters")
	sender := seedIdentity(t, from)
	bystander := seedIdentity(t, bystanderOrg)
	b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)

	tr, err := Initiate(b.ID, to.ID, 50, sender)
	require.NoError(t, err)

	// neither the sender nor a third party may accept
	err = Accept(tr.ID, sender)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	err = Accept(tr.ID, bystander)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	assert.Equal(t, models.TransferStatusPending, reloadTransfer(t, tr.ID).Status)
	assert.Equal(t, models.BatchStatusInTransit, reloadBatch(t, b.ID).Status)
}

func TestCancelRestoresBatch(t *testing.T) {
	setupTestDB(t)
	from := seedOrg(t, "Finca Aurora")
	to := seedOrg(t, "Highland Aggregators")
	sender := seedIdentity(t, from)
	receiver := seedIdentity(t, to)
	b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)

	tr, err := Initiate(b.ID, to.ID, 50, sender)
	require.NoError(t, err)

	// only the sender may cancel
	err = Cancel(tr.ID, receiver)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	require.NoError(t, Cancel(tr.ID, sender))

	gotTransfer := reloadTransfer(t, tr.ID)
	assert.Equal(t, models.TransferStatusCancelled, gotTransfer.Status)
	require.NotNil(t, gotTransfer.CompletedAt)

	gotBatch := reloadBatch(t, b.ID)
	assert.Equal(t, from.ID, gotBatch.OrganizationID)
	assert.Equal(t, models.BatchStatusReadyForTransfer, gotBatch.Status)

	// the released batch can be proposed again
	_, err = Initiate(b.ID, to.ID, 25, sender)
	require.NoError(t, err)
}

func TestRejectRestoresBatch(t *testing.T) {
	setupTestDB(t)
	from := seedOrg(t, "Finca Aurora")
	to := seedOrg(t, "Highland Aggregators")
	sender := seedIdentity(t, from)
	receiver := seedIdentity(t, to)
	b := seedBatch(t, from.ID, 50, models.BatchStatusReadyForTransfer)

	tr, err := Initiate(b.ID, to.ID, 50, sender)
	require.NoError(t, err)

	// only the receiver may reject
	err = Reject(tr.ID, sender)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	require.NoError(t, Reject(tr.ID, receiver))

	gotTransfer := reloadTransfer(t, tr.ID)
	assert.Equal(t, models.TransferStatusRejected, gotTransfer.Status)

	gotBatch := reloadBatch(t, b.ID)
	assert.Equal(t, from.ID, gotBatch.OrganizationID)
	assert.Equal(t, models.BatchStatusReadyForTransfer, gotBatch.Status)
}

func TestActionsOnUnknownTransfer(t *testing.T) {
	setupTestDB(t)
	org := seedOrg(t, "Finca Aurora")
	ident := seedIdentity(t, org)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(Accept(9999, ident)))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(Cancel(9999, ident)))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(Reject(9999, ident)))
}
