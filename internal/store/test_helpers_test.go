package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ledgerguard/internal/domain"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

// createTestInvoice creates an invoice with minimal required fields.
func createTestInvoice(id, tenantID string) *domain.Invoice {
	return &domain.Invoice{
		ID:                id,
		TenantID:          tenantID,
		InvoiceNumber:     "INV-" + id,
		SupplierName:      "Bright Gardens Pty Ltd",
		InvoiceDate:       "2025-02-14",
		Total:             300,
		ExtractedPONumber: "PO-1001",
		Status:            domain.StatusExtracted,
		CreatedAt:         testTime,
		UpdatedAt:         testTime,
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
