package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ledgerguard/internal/domain"
)

func TestBudgetCheck_QuarterlyBreachReportsOverage(t *testing.T) {
	po := &domain.PurchaseOrder{QuarterlyBudgetCap: 5491.43, CurrentQuarterSpend: 5300}

	r := BudgetCheck(po, 300)

	assert.Equal(t, domain.RuleAIBudget, r.RuleID)
	assert.True(t, r.IsBlockingFailure())
	assert.Contains(t, r.Details, "$5600.00")
	assert.Contains(t, r.Details, "by $108.57")
}

func TestBudgetCheck_ExactlyNinetyPercentWarns(t *testing.T) {
	po := &domain.PurchaseOrder{QuarterlyBudgetCap: 1000, CurrentQuarterSpend: 600}

	r := BudgetCheck(po, 300)

	assert.Equal(t, domain.OutcomeWarn, r.Result)
	assert.Equal(t, domain.SeverityWarning, r.Severity)
	assert.Contains(t, r.Details, "90.0%")
}

func TestBudgetCheck_JustBelowNinetyPercentPasses(t *testing.T) {
	po := &domain.PurchaseOrder{QuarterlyBudgetCap: 1000, CurrentQuarterSpend: 600}

	r := BudgetCheck(po, 299.99)

	assert.Equal(t, domain.OutcomePass, r.Result)
}

func TestBudgetCheck_AtCapIsNotABreach(t *testing.T) {
	po := &domain.PurchaseOrder{QuarterlyBudgetCap: 1000, CurrentQuarterSpend: 700}

	r := BudgetCheck(po, 300)

	assert.Equal(t, domain.OutcomeWarn, r.Result)
}

func TestBudgetCheck_AnnualBreachFailsEvenWithQuarterlyHeadroom(t *testing.T) {
	po := &domain.PurchaseOrder{
		QuarterlyBudgetCap: 5000, CurrentQuarterSpend: 100,
		AnnualBudgetCap: 10000, AnnualSpend: 9900,
	}

	r := BudgetCheck(po, 250)

	assert.True(t, r.IsBlockingFailure())
	assert.Contains(t, r.Details, "annual cap $10000.00 by $150.00")
}

func TestBudgetCheck_NoCaps(t *testing.T) {
	r := BudgetCheck(&domain.PurchaseOrder{}, 300)
	assert.Equal(t, domain.OutcomePass, r.Result)
}
