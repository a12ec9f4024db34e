package batch

import (
	"testing"
	"time"

	"traceflow-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestVerificationURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/verify/abc",
		verificationURL("http://localhost:8080/api/verify", "abc"))
	// trailing slashes on the configured base must not double up
	assert.Equal(t, "http://localhost:8080/api/verify/abc",
		verificationURL("http://localhost:8080/api/verify/", "abc"))
}

func TestBatchResponseCarriesVerifyURL(t *testing.T) {
	b := models.Batch{
		ID:          7,
		PublicToken: "tok-123",
		ProductType: "Coffee Cherries",
		Status:      models.BatchStatusCreated,
		HarvestDate: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
	}

	resp := toBatchResponse(b, "https://trace.example.com/verify")
	assert.Equal(t, "https://trace.example.com/verify/tok-123", resp.VerifyURL)
	assert.Equal(t, "tok-123", resp.PublicToken)
}
