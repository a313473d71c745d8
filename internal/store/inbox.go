package store

import (
	"context"
	"fmt"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Enqueue appends an in-app notification. Duplicate IDs are ignored.
func (s *Store) Enqueue(ctx context.Context, n domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, tenant_id, invoice_id, trigger_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(id) DO NOTHING
	`, n.ID, n.TenantID, n.InvoiceID, string(n.Trigger), n.Message, formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Notifications lists a tenant's inbox oldest first. When unreadOnly is set,
// read entries are skipped.
func (s *Store) Notifications(ctx context.Context, tenantID string, unreadOnly bool) ([]domain.Notification, error) {
	query := `
		SELECT id, tenant_id, invoice_id, trigger_id, message, read, created_at
		FROM notifications
		WHERE tenant_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var (
			n       domain.Notification
			trigger string
			read    int
			created string
		)
		if err := rows.Scan(&n.ID, &n.TenantID, &n.InvoiceID, &trigger, &n.Message, &read, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Trigger = domain.Trigger(trigger)
		n.Read = read != 0
		if n.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// MarkRead flags a notification as read.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
