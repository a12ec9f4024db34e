package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allBatchStatuses = []BatchStatus{
	BatchStatusCreated,
	BatchStatusReadyForTransfer,
	BatchStatusInTransit,
	BatchStatusReceived,
	BatchStatusProcessing,
	BatchStatusProcessed,
	BatchStatusSold,
	BatchStatusRecalled,
	BatchStatusClosed,
}

func TestBatchStatusTransitionMatrix(t *testing.T) {
	allowed := map[BatchStatus][]BatchStatus{
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

	for _, from := range allBatchStatuses {
		allowedSet := map[BatchStatus]bool{}
		for _, to := range allowed[from] {
			allowedSet[to] = true
		}
		for _, to := range allBatchStatuses {
			got := from.CanTransitionTo(to)
			assert.Equal(t, allowedSet[to], got, "transition %s -> %s", from, to)
		}
	}
}

func TestBatchStatusClosedIsTerminal(t *testing.T) {
	for _, to := range allBatchStatuses {
		assert.False(t, BatchStatusClosed.CanTransitionTo(to), "closed must have no outbound edge to %s", to)
	}
}

func TestIsTerminalForSplit(t *testing.T) {
	terminal := map[BatchStatus]bool{
		BatchStatusClosed:   true,
		BatchStatusRecalled: true,
		BatchStatusSold:     true,
	}
	for _, s := range allBatchStatuses {
		assert.Equal(t, terminal[s], s.IsTerminalForSplit(), "status %s", s)
	}
}

func TestParseBatchStatus(t *testing.T) {
	for _, s := range allBatchStatuses {
		parsed, ok := ParseBatchStatus(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, parsed)
	}

	_, ok := ParseBatchStatus("shipped")
	assert.False(t, ok)
	_, ok = ParseBatchStatus("")
	assert.False(t, ok)
	// symbolic names are case sensitive
	_, ok = ParseBatchStatus("Created")
	assert.False(t, ok)
}

func TestParseTransferStatus(t *testing.T) {
	for _, s := range []TransferStatus{TransferStatusPending, TransferStatusCompleted, TransferStatusCancelled, TransferStatusRejected} {
		parsed, ok := ParseTransferStatus(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, parsed)
	}

	_, ok := ParseTransferStatus("done")
	assert.False(t, ok)
}

func TestParseOrganizationTypeAndRole(t *testing.T) {
	_, ok := ParseOrganizationType("producer")
	assert.True(t, ok)
	_, ok = ParseOrganizationType("wholesaler")
	assert.False(t, ok)

	_, ok = ParseUserRole("admin")
	assert.True(t, ok)
	_, ok = ParseUserRole("superuser")
	assert.False(t, ok)
}
