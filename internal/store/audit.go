package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ledgerguard/internal/domain"
)

// ErrChainBroken is returned when the audit log fails hash verification.
var ErrChainBroken = errors.New("audit log hash chain broken")

// AppendAudit links entry to the current chain head and appends it. The
// returned entry carries the computed Hash and PrevHash.
func (s *Store) AppendAudit(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return entry, fmt.Errorf("append audit: begin: %w", err)
	}
	defer tx.Rollback()

	var prev string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM audit_log ORDER BY seq DESC LIMIT 1`).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return entry, fmt.Errorf("append audit: read head: %w", err)
	}

	entry.PrevHash = prev
	entry.Hash = domain.AuditHash(entry)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (id, tenant_id, invoice_id, actor, action, detail, ts, hash, prev_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.TenantID, entry.InvoiceID, entry.Actor, entry.Action, entry.Detail,
		formatTime(entry.Ts), entry.Hash, entry.PrevHash)
	if err != nil {
		return entry, fmt.Errorf("append audit: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return entry, fmt.Errorf("append audit: commit: %w", err)
	}
	return entry, nil
}

// AuditLog returns the entries for one invoice in append order. An empty
// invoiceID returns the whole log.
func (s *Store) AuditLog(ctx context.Context, invoiceID string) ([]domain.AuditEntry, error) {
	query := `SELECT id, tenant_id, invoice_id, actor, action, detail, ts, hash, prev_hash FROM audit_log`
	var args []any
	if invoiceID != "" {
		query += ` WHERE invoice_id = ?`
		args = append(args, invoiceID)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	out := []domain.AuditEntry{}
	for rows.Next() {
		var (
			e  domain.AuditEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.InvoiceID, &e.Actor, &e.Action, &e.Detail, &ts, &e.Hash, &e.PrevHash); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.Ts, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return out, nil
}

// VerifyAuditChain recomputes every hash in append order and reports the
// first entry that does not link to its predecessor.
func (s *Store) VerifyAuditChain(ctx context.Context) error {
	entries, err := s.AuditLog(ctx, "")
	if err != nil {
		return err
	}
	prev := ""
	for _, e := range entries {
		if e.PrevHash != prev || domain.AuditHash(e) != e.Hash {
			return fmt.Errorf("%w at entry %s", ErrChainBroken, e.ID)
		}
		prev = e.Hash
	}
	return nil
}
