package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Fixtures is a bundle of registry records and invoices to load in one go.
type Fixtures struct {
	PurchaseOrders []domain.PurchaseOrder `yaml:"purchaseOrders,omitempty"`
	Clients        []domain.ClientProfile `yaml:"clients,omitempty"`
	Invoices       []domain.Invoice       `yaml:"invoices,omitempty"`
}

// ImportSummary counts the records written by Import.
type ImportSummary struct {
	PurchaseOrders int `json:"purchaseOrders"`
	Clients        int `json:"clients"`
	Invoices       int `json:"invoices"`
}

// DecodeFixtures reads fixture YAML, rejecting unknown fields.
func DecodeFixtures(r io.Reader) (*Fixtures, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// Import writes every fixture record. Invoices without a tenant get
// tenant, without a status get EXTRACTED, and without timestamps get now.
// Existing records with the same key are replaced.
func (s *Store) Import(ctx context.Context, f *Fixtures, tenant string, now time.Time) (ImportSummary, error) {
	var sum ImportSummary
	for i := range f.PurchaseOrders {
		po := f.PurchaseOrders[i]
		if strings.TrimSpace(po.PONumber) == "" {
			return sum, fmt.Errorf("purchase order %d: poNumber is required", i)
		}
		if err := s.PutPurchaseOrder(ctx, &po); err != nil {
			return sum, err
		}
		sum.PurchaseOrders++
	}
	for i := range f.Clients {
		c := f.Clients[i]
		if strings.TrimSpace(c.ID) == "" {
			return sum, fmt.Errorf("client %d: id is required", i)
		}
		if err := s.PutClient(ctx, &c); err != nil {
			return sum, err
		}
		sum.Clients++
	}
	for i := range f.Invoices {
		inv := f.Invoices[i].Clone()
		if strings.TrimSpace(inv.ID) == "" {
			return sum, fmt.Errorf("invoice %d: id is required", i)
		}
		if inv.TenantID == "" {
			inv.TenantID = tenant
		}
		if inv.Status == "" {
			inv.Status = domain.StatusExtracted
		}
		if !inv.Status.IsValid() {
			return sum, fmt.Errorf("invoice %s: unknown status %q", inv.ID, inv.Status)
		}
		if inv.CreatedAt.IsZero() {
			inv.CreatedAt = now
		}
		if inv.UpdatedAt.IsZero() {
			inv.UpdatedAt = inv.CreatedAt
		}
		if err := s.PutInvoice(ctx, inv); err != nil {
			return sum, err
		}
		sum.Invoices++
	}
	return sum, nil
}
