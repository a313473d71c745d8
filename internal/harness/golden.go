package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Snapshot is the golden view of a scenario run.
type Snapshot struct {
	ScenarioName  string
	Steps         []StepRecord
	Notifications []DeliveryRecord
	AuditTrail    map[string][]string
}

// toCanonicalMap converts the snapshot for canonical JSON serialization,
// which only handles maps, slices and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		m := map[string]any{"op": st.Op}
		for k, v := range map[string]string{
			"invoice":       st.Invoice,
			"status":        st.Status,
			"risk":          st.Risk,
			"determination": st.Determination,
			"error":         st.Error,
		} {
			if v != "" {
				m[k] = v
			}
		}
		if len(st.Results) > 0 {
			m["results"] = st.Results
		}
		steps[i] = m
	}

	deliveries := make([]any, len(s.Notifications))
	for i, d := range s.Notifications {
		deliveries[i] = map[string]any{
			"trigger":   d.Trigger,
			"invoice":   d.Invoice,
			"channel":   d.Channel,
			"recipient": d.Recipient,
			"ok":        d.OK,
		}
	}

	trail := make(map[string]any, len(s.AuditTrail))
	for id, entries := range s.AuditTrail {
		trail[id] = entries
	}

	return map[string]any{
		"scenario":      s.ScenarioName,
		"steps":         steps,
		"notifications": deliveries,
		"auditTrail":    trail,
	}
}

// MarshalSnapshot renders result as canonical JSON for scenarioName.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := Snapshot{
		ScenarioName:  scenarioName,
		Steps:         result.Steps,
		Notifications: result.Notifications,
		AuditTrail:    result.AuditTrail,
	}
	return domain.MarshalCanonical(snap.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
