package audit

import "github.com/roach88/ledgerguard/internal/domain"

// Aggregation is the merged verdict of one audit run.
type Aggregation struct {
	Results         []domain.ValidationResult
	Status          domain.Status
	BlockingFailure bool
	BudgetFailed    bool
	ReasoningError  bool
}

// StatusChanged reports whether the run moved the invoice.
func (a Aggregation) StatusChanged(prior domain.Status) bool {
	return a.Status != prior
}

// Aggregate merges fresh stage results into the invoice's existing ones.
//
// SYS- and AI- entries are each replaced wholesale by their stage's fresh
// set; anything else already on the invoice is kept. When the reasoning
// stage degraded, the prior status is returned unchanged whatever it was.
func Aggregate(prior domain.Status, existing, system, reasoning []domain.ValidationResult) Aggregation {
	merged := domain.ReplaceOwned(existing, domain.PrefixSystem, system)
	merged = domain.ReplaceOwned(merged, domain.PrefixReasoning, reasoning)

	agg := Aggregation{
		Results:         merged,
		BlockingFailure: domain.HasBlockingFailure(merged),
		BudgetFailed:    domain.BudgetFailed(merged),
		ReasoningError:  domain.HasReasoningError(merged),
	}
	switch {
	case agg.ReasoningError:
		agg.Status = prior
	case agg.BlockingFailure:
		agg.Status = domain.StatusNeedsReview
	default:
		agg.Status = domain.StatusApproved
	}
	return agg
}
