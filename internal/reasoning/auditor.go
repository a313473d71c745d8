package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/metrics"
	"github.com/roach88/ledgerguard/internal/router"
)

// Degraded-audit defaults.
const (
	degradedScore         = 50
	degradedJustification = "The automated forensic audit could not be completed, so risk is provisionally rated medium."
	degradedAction        = "Retry the audit once the cooldown ends, or review the invoice manually."
)

// Bundle is the context a deep audit reasons over.
type Bundle struct {
	Invoice       *domain.Invoice
	PurchaseOrder *domain.PurchaseOrder
	Client        *domain.ClientProfile
	PolicyText    string
	PolicyFiles   []Document
}

// AuditOutput is the deep audit's contribution to the invoice.
type AuditOutput struct {
	Report         string
	RiskAssessment domain.RiskAssessment
	Results        []domain.ValidationResult
	Route          router.Route
	// Err is set when the audit degraded to the synthetic AI-ERROR result.
	Err error
}

// Degraded reports whether the output is the synthetic error result.
func (o AuditOutput) Degraded() bool {
	return o.Err != nil
}

// Auditor runs the COMPLEX-tier deep audit.
type Auditor struct {
	completer Completer
	gate      *RetryGate
	knowledge string
	logger    *slog.Logger
}

// NewAuditor creates an auditor. The gate is armed whenever an audit
// degrades.
func NewAuditor(completer Completer, gate *RetryGate, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{completer: completer, gate: gate, knowledge: Knowledge, logger: logger}
}

type auditReply struct {
	Report         string `json:"report"`
	RiskAssessment *struct {
		Level                string `json:"level"`
		Score                *int   `json:"score"`
		Justification        string `json:"justification"`
		ActionRecommendation string `json:"actionRecommendation"`
	} `json:"riskAssessment"`
	ValidationResults []struct {
		RuleID   string `json:"ruleId"`
		Severity string `json:"severity"`
		Result   string `json:"result"`
		Details  string `json:"details"`
	} `json:"validationResults"`
}

// Audit runs the deep audit. It never returns an error: any routing,
// transport or parse failure yields the degraded output and arms the gate.
func (a *Auditor) Audit(ctx context.Context, b Bundle) AuditOutput {
	logger := a.logger.With("invoiceId", b.Invoice.ID, "tenantId", b.Invoice.TenantID)

	text, route, err := a.completer.Complete(ctx, router.TierComplex, Request{
		System:    auditSystemPrompt,
		Prompt:    auditPrompt(b, a.knowledge),
		Documents: b.PolicyFiles,
	})
	if err != nil {
		return a.degrade(logger, b.Invoice.ID, route, err)
	}

	var reply auditReply
	if err := DecodeJSON(text, &reply); err != nil {
		return a.degrade(logger, b.Invoice.ID, route, err)
	}

	risk, err := normaliseRisk(reply)
	if err != nil {
		return a.degrade(logger, b.Invoice.ID, route, err)
	}

	results := a.normaliseResults(logger, reply)
	if b.PurchaseOrder != nil {
		results = append(results, BudgetCheck(b.PurchaseOrder, b.Invoice.Total))
	}
	sortByRuleOrder(results)

	if a.gate != nil {
		a.gate.Clear(b.Invoice.ID)
	}
	logger.Info("deep audit completed", "route", route.String(), "risk", risk.Level, "score", risk.Score, "results", len(results))
	return AuditOutput{
		Report:         reply.Report,
		RiskAssessment: risk,
		Results:        results,
		Route:          route,
	}
}

func (a *Auditor) degrade(logger *slog.Logger, invoiceID string, route router.Route, cause error) AuditOutput {
	err := &domain.ReasoningServiceError{InvoiceID: invoiceID, Err: cause}
	metrics.ReasoningDegradedTotal.Inc()
	if a.gate != nil {
		next := a.gate.Arm(invoiceID)
		logger.Error("deep audit degraded", "error", err, "retryAt", next)
	} else {
		logger.Error("deep audit degraded", "error", err)
	}
	return AuditOutput{
		RiskAssessment: domain.RiskAssessment{
			Level:                domain.RiskMedium,
			Score:                degradedScore,
			Justification:        degradedJustification,
			ActionRecommendation: degradedAction,
		},
		Results: []domain.ValidationResult{
			domain.Fail(domain.RuleAIError, domain.SeverityWarning, "deep audit unavailable; retry after cooldown"),
		},
		Route: route,
		Err:   err,
	}
}

func normaliseRisk(reply auditReply) (domain.RiskAssessment, error) {
	r := reply.RiskAssessment
	if r == nil {
		return domain.RiskAssessment{}, fmt.Errorf("reply has no riskAssessment")
	}
	level := domain.RiskLevel(strings.ToUpper(strings.TrimSpace(r.Level)))
	if !domain.ValidRiskLevels[level] {
		return domain.RiskAssessment{}, fmt.Errorf("invalid risk level %q", r.Level)
	}
	if r.Score == nil {
		return domain.RiskAssessment{}, fmt.Errorf("reply has no risk score")
	}
	score := *r.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return domain.RiskAssessment{
		Level:                level,
		Score:                score,
		Justification:        r.Justification,
		ActionRecommendation: r.ActionRecommendation,
	}, nil
}

// normaliseResults maps reply entries onto the closed AI- rule set. Unknown
// rule IDs, duplicates and model-emitted budget results are dropped.
func (a *Auditor) normaliseResults(logger *slog.Logger, reply auditReply) []domain.ValidationResult {
	allowed := make(map[string]bool, len(domain.ReasoningRuleIDs))
	for _, id := range domain.ReasoningRuleIDs {
		allowed[id] = true
	}

	seen := make(map[string]bool)
	var out []domain.ValidationResult
	for _, r := range reply.ValidationResults {
		id := strings.ToUpper(strings.TrimSpace(r.RuleID))
		if !strings.HasPrefix(id, domain.PrefixReasoning) {
			id = domain.PrefixReasoning + id
		}
		if !allowed[id] {
			logger.Warn("dropping unknown rule id from deep audit", "ruleId", r.RuleID)
			continue
		}
		if id == domain.RuleAIBudget || seen[id] {
			continue
		}
		outcome, ok := parseOutcome(r.Result)
		if !ok {
			logger.Warn("dropping result with unknown outcome", "ruleId", id, "result", r.Result)
			continue
		}
		seen[id] = true
		out = append(out, domain.ValidationResult{
			RuleID:   id,
			Severity: parseSeverity(r.Severity),
			Result:   outcome,
			Details:  r.Details,
		})
	}
	return out
}

func parseOutcome(s string) (domain.Outcome, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PASS":
		return domain.OutcomePass, true
	case "WARN", "WARNING":
		return domain.OutcomeWarn, true
	case "FAIL":
		return domain.OutcomeFail, true
	}
	return "", false
}

// parseSeverity defaults unrecognised severities to WARNING.
func parseSeverity(s string) domain.Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO", "INFORMATIONAL":
		return domain.SeverityInfo
	case "BLOCKING", "CRITICAL":
		return domain.SeverityBlocking
	}
	return domain.SeverityWarning
}

func sortByRuleOrder(results []domain.ValidationResult) {
	rank := make(map[string]int, len(domain.ReasoningRuleIDs))
	for i, id := range domain.ReasoningRuleIDs {
		rank[id] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		return rank[results[i].RuleID] < rank[results[j].RuleID]
	})
}
