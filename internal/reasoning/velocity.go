package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/router"
)

const velocitySystemPrompt = `You are a care-funding actuary. Given a spend projection for one purchase
order, explain in two or three plain sentences what it means for the client
and what the coordinator should do. Return ONLY valid JSON: {"narrative": "..."}`

// VelocityAnalyzer projects quarter-end spend from the current burn rate.
// The projection is advisory and never affects status.
type VelocityAnalyzer struct {
	completer Completer
	clock     domain.Clock
	logger    *slog.Logger
}

// NewVelocityAnalyzer creates an analyzer. A nil completer skips the
// narrative.
func NewVelocityAnalyzer(completer Completer, clock domain.Clock, logger *slog.Logger) *VelocityAnalyzer {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VelocityAnalyzer{completer: completer, clock: clock, logger: logger}
}

// Analyze projects the current calendar quarter's spend including the
// invoice. A narrative failure is logged and the numbers are kept.
func (v *VelocityAnalyzer) Analyze(ctx context.Context, inv *domain.Invoice, po *domain.PurchaseOrder) *domain.SpendingAnalysis {
	a := Project(v.clock.Now(), po.CurrentQuarterSpend+inv.Total, po.QuarterlyBudgetCap)

	if v.completer != nil {
		var reply struct {
			Narrative string `json:"narrative"`
		}
		prompt := fmt.Sprintf(
			"PO %s, quarter %s to %s, as of %s (day %d of %d).\nSpend so far including this invoice: $%.2f.\nDaily burn rate: $%.2f.\nProjected quarter spend: $%.2f against a cap of $%.2f (variance $%.2f).\nProjected exhaustion date: %s.",
			po.PONumber, a.QuarterStart, a.QuarterEnd, a.AsOf, a.DaysElapsed, a.DaysInQuarter,
			po.CurrentQuarterSpend+inv.Total, a.DailyBurnRate, a.ProjectedQuarterSpend, a.QuarterlyCap,
			a.ProjectedVariance, orNone(a.ExhaustionDate))
		text, _, err := v.completer.Complete(ctx, router.TierStandard, Request{System: velocitySystemPrompt, Prompt: prompt})
		if err == nil {
			err = DecodeJSON(text, &reply)
		}
		if err != nil {
			v.logger.Warn("spend velocity narrative failed", "invoiceId", inv.ID, "error", err)
		} else {
			a.Narrative = reply.Narrative
		}
	}
	return a
}

// Project computes a straight-line burn-rate projection for the calendar
// quarter containing asOf. spent is the quarter's spend to date.
func Project(asOf time.Time, spent, quarterlyCap float64) *domain.SpendingAnalysis {
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	firstMonth := time.Month((int(asOf.Month())-1)/3*3 + 1)
	start := time.Date(asOf.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)

	daysInQuarter := int(end.Sub(start).Hours()/24) + 1
	daysElapsed := int(asOf.Sub(start).Hours()/24) + 1

	burn := spent / float64(daysElapsed)
	projected := burn * float64(daysInQuarter)

	a := &domain.SpendingAnalysis{
		QuarterStart:          start.Format(domain.DateLayout),
		QuarterEnd:            end.Format(domain.DateLayout),
		AsOf:                  asOf.Format(domain.DateLayout),
		DaysElapsed:           daysElapsed,
		DaysInQuarter:         daysInQuarter,
		DailyBurnRate:         round2(burn),
		ProjectedQuarterSpend: round2(projected),
		QuarterlyCap:          round2(quarterlyCap),
		ProjectedVariance:     round2(projected - quarterlyCap),
	}

	switch {
	case quarterlyCap <= 0:
	case spent >= quarterlyCap:
		a.ExhaustionDate = a.AsOf
	case burn > 0:
		day := int(math.Ceil(quarterlyCap / burn))
		if exhausted := start.AddDate(0, 0, day-1); !exhausted.After(end) {
			a.ExhaustionDate = exhausted.Format(domain.DateLayout)
		}
	}
	return a
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func orNone(s string) string {
	if s == "" {
		return "not within this quarter"
	}
	return s
}
