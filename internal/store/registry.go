package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
)

// PurchaseOrder returns the PO for poNumber, or (nil, nil) when unknown.
func (s *Store) PurchaseOrder(ctx context.Context, poNumber string) (*domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	found, err := s.readDocument(ctx, `SELECT document FROM purchase_orders WHERE po_number = ?`, poNumber, &po)
	if err != nil || !found {
		return nil, err
	}
	return &po, nil
}

// PutPurchaseOrder inserts or replaces a purchase order. Used by import
// only; the pipeline never writes POs.
func (s *Store) PutPurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) error {
	doc, err := json.Marshal(po)
	if err != nil {
		return fmt.Errorf("encode purchase order %s: %w", po.PONumber, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchase_orders (po_number, client_id, document) VALUES (?, ?, ?)
		ON CONFLICT(po_number) DO UPDATE SET client_id = excluded.client_id, document = excluded.document
	`, po.PONumber, po.ClientID, string(doc))
	if err != nil {
		return fmt.Errorf("put purchase order %s: %w", po.PONumber, err)
	}
	return nil
}

// Client returns the client profile for id, or (nil, nil) when unknown.
func (s *Store) Client(ctx context.Context, id string) (*domain.ClientProfile, error) {
	var c domain.ClientProfile
	found, err := s.readDocument(ctx, `SELECT document FROM clients WHERE id = ?`, id, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// PutClient inserts or replaces a client profile.
func (s *Store) PutClient(ctx context.Context, c *domain.ClientProfile) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode client %s: %w", c.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clients (id, document) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document
	`, c.ID, string(doc))
	if err != nil {
		return fmt.Errorf("put client %s: %w", c.ID, err)
	}
	return nil
}

// LoadSettings returns the persisted settings object. The bool is false when
// nothing has been saved yet.
func (s *Store) LoadSettings(ctx context.Context) (*config.Settings, bool, error) {
	var cfg config.Settings
	found, err := s.readDocument(ctx, `SELECT document FROM settings WHERE id = ?`, 1, &cfg)
	if err != nil || !found {
		return nil, false, err
	}
	return &cfg, true, nil
}

// SaveSettings replaces the persisted settings object.
func (s *Store) SaveSettings(ctx context.Context, cfg *config.Settings, now domain.Clock) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, document, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`, string(doc), formatTime(now.Now()))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// readDocument scans a single JSON document column into out.
func (s *Store) readDocument(ctx context.Context, query string, key any, out any) (bool, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %v: %w", key, err)
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return false, fmt.Errorf("decode %v: %w", key, err)
	}
	return true, nil
}
