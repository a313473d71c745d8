package domain

import "strings"

// Rule ID prefixes identify the stage that owns a result.
const (
	PrefixSystem    = "SYS-"
	PrefixReasoning = "AI-"
)

// Rule engine check IDs.
const (
	RulePOPresent     = "SYS-PO-PRESENT"
	RulePOLookup      = "SYS-PO-LOOKUP"
	RuleBudget        = "SYS-BUDGET"
	RuleServicePeriod = "SYS-SERVICE-PERIOD"
	RuleCarePlan      = "SYS-CARE-PLAN"
)

// Reasoning-tier rule IDs. The deep audit only ever emits IDs from this set,
// plus RuleAIError when the stage degrades.
const (
	RuleAIAging      = "AI-AGING"
	RuleAIFraud      = "AI-FRAUD"
	RuleAIPrice      = "AI-PRICE"
	RuleAIBudget     = "AI-BUDGET"
	RuleAIContractor = "AI-CONTRACTOR"
	RuleAIPolicy     = "AI-POLICY"
	RuleAIFunding    = "AI-FUNDING"
	RuleAIError      = "AI-ERROR"
)

// ReasoningRuleIDs is the closed set of deep-audit rule IDs in report order.
var ReasoningRuleIDs = []string{
	RuleAIAging,
	RuleAIFraud,
	RuleAIPrice,
	RuleAIBudget,
	RuleAIContractor,
	RuleAIPolicy,
	RuleAIFunding,
}

// Pass builds a passing result.
func Pass(ruleID string, severity Severity, details string) ValidationResult {
	return ValidationResult{RuleID: ruleID, Severity: severity, Result: OutcomePass, Details: details}
}

// Fail builds a failing result.
func Fail(ruleID string, severity Severity, details string) ValidationResult {
	return ValidationResult{RuleID: ruleID, Severity: severity, Result: OutcomeFail, Details: details}
}

// Warn builds an early-warning result.
func Warn(ruleID string, details string) ValidationResult {
	return ValidationResult{RuleID: ruleID, Severity: SeverityWarning, Result: OutcomeWarn, Details: details}
}

// IsBlockingFailure reports whether the result forces review.
func (r ValidationResult) IsBlockingFailure() bool {
	return r.Result == OutcomeFail && r.Severity == SeverityBlocking
}

// OwnedBy reports whether the result belongs to the stage with the prefix.
func (r ValidationResult) OwnedBy(prefix string) bool {
	return strings.HasPrefix(r.RuleID, prefix)
}

// ReplaceOwned returns existing with every result owned by prefix removed and
// fresh appended. Results owned by other stages keep their relative order.
// Calling it twice with the same fresh set yields the same slice.
func ReplaceOwned(existing []ValidationResult, prefix string, fresh []ValidationResult) []ValidationResult {
	out := make([]ValidationResult, 0, len(existing)+len(fresh))
	for _, r := range existing {
		if !r.OwnedBy(prefix) {
			out = append(out, r)
		}
	}
	for _, r := range fresh {
		if r.OwnedBy(prefix) {
			out = append(out, r)
		}
	}
	return out
}

// HasBlockingFailure reports whether any result is a blocking FAIL.
func HasBlockingFailure(results []ValidationResult) bool {
	for _, r := range results {
		if r.IsBlockingFailure() {
			return true
		}
	}
	return false
}

// HasReasoningError reports whether the reasoning stage degraded.
func HasReasoningError(results []ValidationResult) bool {
	for _, r := range results {
		if r.RuleID == RuleAIError {
			return true
		}
	}
	return false
}

// FindResult returns the first result with the given rule ID.
func FindResult(results []ValidationResult, ruleID string) (ValidationResult, bool) {
	for _, r := range results {
		if r.RuleID == ruleID {
			return r, true
		}
	}
	return ValidationResult{}, false
}

// BudgetFailed reports whether a budget-ceiling check failed. Other rule
// types never trigger the spend-velocity analysis.
func BudgetFailed(results []ValidationResult) bool {
	for _, r := range results {
		if r.Result == OutcomeFail && (r.RuleID == RuleBudget || r.RuleID == RuleAIBudget) {
			return true
		}
	}
	return false
}
