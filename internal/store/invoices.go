package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Invoice returns the invoice with id, or an error wrapping
// domain.ErrNotFound.
func (s *Store) Invoice(ctx context.Context, id string) (*domain.Invoice, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM invoices WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read invoice %s: %w", id, err)
	}

	var inv domain.Invoice
	if err := json.Unmarshal([]byte(doc), &inv); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", id, err)
	}
	return &inv, nil
}

// PutInvoice replaces the invoice by id, inserting it if absent. The whole
// document is overwritten; there is no field-level merge.
func (s *Store) PutInvoice(ctx context.Context, inv *domain.Invoice) error {
	if inv.ID == "" {
		return fmt.Errorf("put invoice: empty id")
	}
	doc, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invoice %s: %w", inv.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, tenant_id, status, document, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			status = excluded.status,
			document = excluded.document,
			updated_at = excluded.updated_at
	`, inv.ID, inv.TenantID, string(inv.Status), string(doc), formatTime(inv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put invoice %s: %w", inv.ID, err)
	}
	return nil
}

// ListInvoices returns a tenant's invoices in creation order. Returns an
// empty slice (not nil) when there are none.
func (s *Store) ListInvoices(ctx context.Context, tenantID string) ([]*domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document FROM invoices
		WHERE tenant_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*domain.Invoice{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		var inv domain.Invoice
		if err := json.Unmarshal([]byte(doc), &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}
