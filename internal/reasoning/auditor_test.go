package reasoning_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/router"
	"github.com/roach88/ledgerguard/internal/testutil"
)

const cleanAudit = "```json\n" + `{
  "report": "No concerns.",
  "riskAssessment": {"level": "low", "score": 12, "justification": "Rates match guide.", "actionRecommendation": "Approve."},
  "validationResults": [
    {"ruleId": "AI-PRICE", "severity": "INFO", "result": "PASS", "details": "rates within guide"},
    {"ruleId": "fraud", "severity": "INFO", "result": "PASS", "details": "no indicators"},
    {"ruleId": "AI-BUDGET", "severity": "INFO", "result": "PASS", "details": "model thinks budget is fine"},
    {"ruleId": "AI-HOROSCOPE", "severity": "INFO", "result": "PASS"},
    {"ruleId": "AI-PRICE", "severity": "BLOCKING", "result": "FAIL", "details": "duplicate"}
  ]
}` + "\n```"

func testBundle() reasoning.Bundle {
	return reasoning.Bundle{
		Invoice: &domain.Invoice{ID: "inv-1", TenantID: "t1", Total: 300, InvoiceDate: "2025-02-14"},
		PurchaseOrder: &domain.PurchaseOrder{
			PONumber: "PO-1001", QuarterlyBudgetCap: 5491.43, CurrentQuarterSpend: 5300,
		},
		Client:     &domain.ClientProfile{ID: "c-1", Name: "Ada"},
		PolicyText: "No weekend loadings without prior approval.",
	}
}

func newAuditor(p *testutil.ScriptedProvider) (*reasoning.Auditor, *reasoning.RetryGate, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC))
	gate := reasoning.NewRetryGate(5*time.Second, clock)
	return reasoning.NewAuditor(testutil.NewScriptedClient(p), gate, nil), gate, clock
}

func TestAudit_NormalisesResultsAndOverridesBudget(t *testing.T) {
	p := testutil.NewScriptedProvider().Reply(cleanAudit)
	a, gate, _ := newAuditor(p)

	out := a.Audit(context.Background(), testBundle())

	require.False(t, out.Degraded())
	assert.Equal(t, "No concerns.", out.Report)
	assert.Equal(t, domain.RiskLow, out.RiskAssessment.Level)
	assert.Equal(t, 12, out.RiskAssessment.Score)

	require.Len(t, out.Results, 3)
	assert.Equal(t, domain.RuleAIFraud, out.Results[0].RuleID)
	assert.Equal(t, domain.RuleAIPrice, out.Results[1].RuleID)
	assert.Equal(t, domain.OutcomePass, out.Results[1].Result)
	assert.Equal(t, domain.RuleAIBudget, out.Results[2].RuleID)
	assert.True(t, out.Results[2].IsBlockingFailure())
	assert.Contains(t, out.Results[2].Details, "by $108.57")

	assert.Zero(t, gate.Remaining("inv-1"))
	assert.Equal(t, "scripted/scripted-complex (COMPLEX)", out.Route.String())
}

func TestAudit_PromptCarriesContextBundle(t *testing.T) {
	p := testutil.NewScriptedProvider().Reply(cleanAudit)
	a, _, _ := newAuditor(p)
	b := testBundle()
	b.PolicyFiles = []reasoning.Document{{Name: "policy.pdf", MimeType: "application/pdf", Data: []byte("%PDF")}}

	a.Audit(context.Background(), b)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "scripted-complex", calls[0].Model)
	assert.Contains(t, calls[0].Prompt, "Domain primer")
	assert.Contains(t, calls[0].Prompt, `"poNumber": "PO-1001"`)
	assert.Contains(t, calls[0].Prompt, "No weekend loadings")
	assert.Contains(t, calls[0].Prompt, "(attached: policy.pdf)")
	assert.Len(t, calls[0].Documents, 1)
}

func TestAudit_DegradesOnTransportFailureAndArmsGate(t *testing.T) {
	p := testutil.NewScriptedProvider().Fail(errors.New("503 overloaded"))
	a, gate, clock := newAuditor(p)

	out := a.Audit(context.Background(), testBundle())

	require.True(t, out.Degraded())
	var rse *domain.ReasoningServiceError
	assert.ErrorAs(t, out.Err, &rse)
	require.Len(t, out.Results, 1)
	assert.Equal(t, domain.RuleAIError, out.Results[0].RuleID)
	assert.Equal(t, domain.SeverityWarning, out.Results[0].Severity)
	assert.Equal(t, domain.OutcomeFail, out.Results[0].Result)
	assert.Equal(t, domain.RiskMedium, out.RiskAssessment.Level)
	assert.Equal(t, 50, out.RiskAssessment.Score)

	assert.Equal(t, 5*time.Second, gate.Remaining("inv-1"))
	clock.Advance(5 * time.Second)
	assert.Zero(t, gate.Remaining("inv-1"))
}

func TestAudit_DegradesOnUnparsableReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "I am unable to audit this invoice."},
		{"missing risk", `{"report": "x", "validationResults": []}`},
		{"bad level", `{"riskAssessment": {"level": "SEVERE", "score": 90}}`},
		{"missing score", `{"riskAssessment": {"level": "HIGH"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newAuditor(testutil.NewScriptedProvider().Reply(tt.reply))
			out := a.Audit(context.Background(), testBundle())
			assert.True(t, out.Degraded())
			assert.True(t, domain.HasReasoningError(out.Results))
		})
	}
}

func TestAudit_DegradesWhenNoProviderConfigured(t *testing.T) {
	client := reasoning.NewClient(router.New(nil, nil), nil, nil)
	a := reasoning.NewAuditor(client, nil, nil)

	out := a.Audit(context.Background(), testBundle())

	require.True(t, out.Degraded())
	assert.True(t, domain.IsConfigurationError(out.Err))
}

func TestAudit_ClampsScore(t *testing.T) {
	p := testutil.NewScriptedProvider().Reply(`{"riskAssessment": {"level": "HIGH", "score": 140}}`)
	a, _, _ := newAuditor(p)

	out := a.Audit(context.Background(), testBundle())

	assert.Equal(t, 100, out.RiskAssessment.Score)
}

func TestVelocityAnalyzer_AddsNarrative(t *testing.T) {
	p := testutil.NewScriptedProvider().Reply(`{"narrative": "Budget runs out mid-February."}`)
	clock := testutil.NewFakeClock(time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC))
	v := reasoning.NewVelocityAnalyzer(testutil.NewScriptedClient(p), clock, nil)
	b := testBundle()

	a := v.Analyze(context.Background(), b.Invoice, b.PurchaseOrder)

	assert.Equal(t, "Budget runs out mid-February.", a.Narrative)
	assert.InDelta(t, 11200.00, a.ProjectedQuarterSpend, 0.001)
	assert.Equal(t, "scripted-standard", p.Calls()[0].Model)
}

func TestVelocityAnalyzer_KeepsNumbersWhenNarrativeFails(t *testing.T) {
	p := testutil.NewScriptedProvider().Fail(errors.New("timeout"))
	clock := testutil.NewFakeClock(time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC))
	v := reasoning.NewVelocityAnalyzer(testutil.NewScriptedClient(p), clock, nil)
	b := testBundle()

	a := v.Analyze(context.Background(), b.Invoice, b.PurchaseOrder)

	require.NotNil(t, a)
	assert.Empty(t, a.Narrative)
	assert.Equal(t, 45, a.DaysElapsed)
}
