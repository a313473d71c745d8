package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFacts = "ledgerguard/facts/v1"
	DomainAudit = "ledgerguard/audit/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FactsHash fingerprints the inputs the audit reasons over. Two runs with an
// identical hash audited identical facts.
func FactsHash(inv *Invoice, po *PurchaseOrder) (string, error) {
	lines := make([]any, len(inv.LineItems))
	for i, li := range inv.LineItems {
		lines[i] = map[string]any{
			"description":  li.Description,
			"service_code": li.ServiceCode,
			"amount_cents": Cents(li.Amount),
		}
	}
	obj := map[string]any{
		"invoice_id":     inv.ID,
		"tenant_id":      inv.TenantID,
		"supplier":       inv.SupplierName,
		"invoice_date":   inv.InvoiceDate,
		"total_cents":    Cents(inv.Total),
		"po_number":      inv.PONumber(),
		"line_items":     lines,
		"client_id":      inv.ClientID,
		"invoice_number": inv.InvoiceNumber,
	}
	if po != nil {
		obj["po"] = map[string]any{
			"quarterly_cap_cents": Cents(po.QuarterlyBudgetCap),
			"quarter_spend_cents": Cents(po.CurrentQuarterSpend),
			"annual_cap_cents":    Cents(po.AnnualBudgetCap),
			"annual_spend_cents":  Cents(po.AnnualSpend),
			"valid_from":          po.ValidFrom,
			"valid_to":            po.ValidTo,
			"approved_categories": po.ApprovedCategories,
		}
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FactsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFacts, canonical), nil
}

// AuditHash chains an audit entry to its predecessor.
func AuditHash(entry AuditEntry) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		entry.TenantID, entry.InvoiceID, entry.Actor, entry.Action, entry.Detail,
		entry.Ts.UTC().Format(time.RFC3339Nano), entry.PrevHash)
	return hashWithDomain(DomainAudit, []byte(payload))
}
