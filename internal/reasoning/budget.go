package reasoning

import (
	"fmt"
	"strings"

	"github.com/roach88/ledgerguard/internal/domain"
)

// BudgetCheck computes the AI-BUDGET result from the PO counters with the
// invoice added. Quarterly and annual caps are checked; a quarterly total at
// or above 90% of the cap is an early warning. Caps of zero are treated as
// absent.
func BudgetCheck(po *domain.PurchaseOrder, invoiceTotal float64) domain.ValidationResult {
	total := domain.Cents(invoiceTotal)

	var breaches, warnings, notes []string

	if qCap := domain.Cents(po.QuarterlyBudgetCap); qCap > 0 {
		projected := domain.Cents(po.CurrentQuarterSpend) + total
		switch {
		case projected > qCap:
			breaches = append(breaches, fmt.Sprintf(
				"quarterly spend %s with this invoice exceeds quarterly cap %s by %s",
				domain.FormatCents(projected), domain.FormatCents(qCap), domain.FormatCents(projected-qCap)))
		case projected*10 >= qCap*9:
			warnings = append(warnings, fmt.Sprintf(
				"quarterly spend %s with this invoice is %s of quarterly cap %s",
				domain.FormatCents(projected), percent(projected, qCap), domain.FormatCents(qCap)))
		default:
			notes = append(notes, fmt.Sprintf("quarterly spend %s of %s", domain.FormatCents(projected), domain.FormatCents(qCap)))
		}
	}

	if aCap := domain.Cents(po.AnnualBudgetCap); aCap > 0 {
		projected := domain.Cents(po.AnnualSpend) + total
		if projected > aCap {
			breaches = append(breaches, fmt.Sprintf(
				"annual spend %s with this invoice exceeds annual cap %s by %s",
				domain.FormatCents(projected), domain.FormatCents(aCap), domain.FormatCents(projected-aCap)))
		} else {
			notes = append(notes, fmt.Sprintf("annual spend %s of %s", domain.FormatCents(projected), domain.FormatCents(aCap)))
		}
	}

	switch {
	case len(breaches) > 0:
		return domain.Fail(domain.RuleAIBudget, domain.SeverityBlocking, strings.Join(breaches, "; "))
	case len(warnings) > 0:
		return domain.Warn(domain.RuleAIBudget, strings.Join(warnings, "; "))
	case len(notes) > 0:
		return domain.Pass(domain.RuleAIBudget, domain.SeverityInfo, "within budget: "+strings.Join(notes, "; "))
	}
	return domain.Pass(domain.RuleAIBudget, domain.SeverityInfo, "no budget caps recorded on PO")
}

func percent(part, whole int64) string {
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(whole))
}
