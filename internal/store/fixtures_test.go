package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/domain"
)

const fixtureDoc = `
purchaseOrders:
  - poNumber: PO-1001
    clientId: client-1
    quarterlyBudgetCap: 5300
    currentQuarterSpend: 1200
clients:
  - id: client-1
    name: Ada Lovelace
    fundingTier: LEVEL_3
invoices:
  - id: inv-1
    invoiceNumber: INV-0001
    supplierName: Bright Gardens Pty Ltd
    invoiceDate: "2025-02-14"
    total: 300
    extractedPoNumber: PO-1001
  - id: inv-2
    tenantId: acme
    status: MATCHED
    invoiceNumber: INV-0002
    supplierName: Bright Gardens Pty Ltd
    invoiceDate: "2025-02-15"
    total: 80
`

func TestDecodeFixtures(t *testing.T) {
	f, err := DecodeFixtures(strings.NewReader(fixtureDoc))
	require.NoError(t, err)

	require.Len(t, f.PurchaseOrders, 1)
	assert.Equal(t, 5300.0, f.PurchaseOrders[0].QuarterlyBudgetCap)
	require.Len(t, f.Clients, 1)
	assert.Equal(t, "LEVEL_3", f.Clients[0].FundingTier)
	require.Len(t, f.Invoices, 2)
	assert.Equal(t, "PO-1001", f.Invoices[0].ExtractedPONumber)
}

func TestDecodeFixtures_Empty(t *testing.T) {
	f, err := DecodeFixtures(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Invoices)
}

func TestDecodeFixtures_UnknownField(t *testing.T) {
	_, err := DecodeFixtures(strings.NewReader("invoices:\n  - id: inv-1\n    colour: red\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse fixtures")
}

func TestImport_AppliesDefaults(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	f, err := DecodeFixtures(strings.NewReader(fixtureDoc))
	require.NoError(t, err)

	sum, err := s.Import(ctx, f, "default", testTime)
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{PurchaseOrders: 1, Clients: 1, Invoices: 2}, sum)

	inv, err := s.Invoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "default", inv.TenantID)
	assert.Equal(t, domain.StatusExtracted, inv.Status)
	assert.True(t, inv.CreatedAt.Equal(testTime))
	assert.True(t, inv.UpdatedAt.Equal(testTime))

	inv, err = s.Invoice(ctx, "inv-2")
	require.NoError(t, err)
	assert.Equal(t, "acme", inv.TenantID)
	assert.Equal(t, domain.StatusMatched, inv.Status)

	po, err := s.PurchaseOrder(ctx, "PO-1001")
	require.NoError(t, err)
	require.NotNil(t, po)
	assert.Equal(t, "client-1", po.ClientID)

	client, err := s.Client(ctx, "client-1")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "Ada Lovelace", client.Name)

	// The caller's fixtures are left untouched.
	assert.Empty(t, f.Invoices[0].TenantID)
}

func TestImport_ReplacesExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutInvoice(ctx, createTestInvoice("inv-1", "t1")))

	_, err := s.Import(ctx, &Fixtures{Invoices: []domain.Invoice{{ID: "inv-1", TenantID: "t1", Total: 999}}}, "default", testTime)
	require.NoError(t, err)

	inv, err := s.Invoice(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, 999.0, inv.Total)
	assert.Empty(t, inv.ExtractedPONumber)
}

func TestImport_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		fixtures Fixtures
		wantErr  string
	}{
		{"po_without_number", Fixtures{PurchaseOrders: []domain.PurchaseOrder{{ClientID: "c"}}}, "poNumber is required"},
		{"client_without_id", Fixtures{Clients: []domain.ClientProfile{{Name: "x"}}}, "id is required"},
		{"invoice_without_id", Fixtures{Invoices: []domain.Invoice{{Total: 1}}}, "invoice 0: id is required"},
		{"unknown_status", Fixtures{Invoices: []domain.Invoice{{ID: "inv-1", Status: "PAID"}}}, `unknown status "PAID"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			_, err := s.Import(context.Background(), &tt.fixtures, "default", testTime)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
