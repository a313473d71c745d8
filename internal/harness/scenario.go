package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/store"
)

// Scenario is one end-to-end pipeline run described in YAML.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Now is the fake clock's starting time. Defaults to DefaultNow.
	Now time.Time `yaml:"now,omitempty"`

	Settings Settings `yaml:"settings,omitempty"`

	// Fixtures seed the registry and the invoice repository.
	Fixtures store.Fixtures `yaml:"fixtures"`

	// Replies script the reasoning provider, matched against each request's
	// prompts in declaration order.
	Replies []ScriptedReply `yaml:"replies,omitempty"`

	// RejectEmails lists recipients the fake email gateway refuses.
	RejectEmails []string `yaml:"rejectEmails,omitempty"`

	Steps []Step `yaml:"steps"`

	// Notifications, when present, must equal the delivered notifications
	// in order.
	Notifications []ExpectedDelivery `yaml:"notifications,omitempty"`
}

// Settings overrides the defaults for one scenario.
type Settings struct {
	Cooldown          time.Duration             `yaml:"cooldown,omitempty"`
	PolicyText        string                    `yaml:"policyText,omitempty"`
	NotificationRules []domain.NotificationRule `yaml:"notificationRules,omitempty"`
}

// ScriptedReply is one canned provider response. Exactly one of Text or
// Error is set.
type ScriptedReply struct {
	Match string `yaml:"match"`
	Text  string `yaml:"text,omitempty"`
	Error string `yaml:"error,omitempty"`
}

// Step is one operation. Exactly one of the operation fields is set.
type Step struct {
	Audit    string        `yaml:"audit,omitempty"`
	Escalate string        `yaml:"escalate,omitempty"`
	Draft    string        `yaml:"draft,omitempty"`
	Approve  string        `yaml:"approve,omitempty"`
	Reject   string        `yaml:"reject,omitempty"`
	Advance  time.Duration `yaml:"advance,omitempty"`

	// Actor is recorded for approve and reject.
	Actor string `yaml:"actor,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpAudit    = "audit"
	OpEscalate = "escalate"
	OpDraft    = "draft"
	OpApprove  = "approve"
	OpReject   = "reject"
	OpAdvance  = "advance"
)

// Op returns the step's operation and target invoice.
func (s Step) Op() (op, invoiceID string) {
	switch {
	case s.Audit != "":
		return OpAudit, s.Audit
	case s.Escalate != "":
		return OpEscalate, s.Escalate
	case s.Draft != "":
		return OpDraft, s.Draft
	case s.Approve != "":
		return OpApprove, s.Approve
	case s.Reject != "":
		return OpReject, s.Reject
	case s.Advance > 0:
		return OpAdvance, ""
	}
	return "", ""
}

func (s Step) opCount() int {
	n := 0
	for _, v := range []string{s.Audit, s.Escalate, s.Draft, s.Approve, s.Reject} {
		if v != "" {
			n++
		}
	}
	if s.Advance != 0 {
		n++
	}
	return n
}

// Expect is checked against a step's outcome. Empty fields are not checked.
type Expect struct {
	Status domain.Status    `yaml:"status,omitempty"`
	Risk   domain.RiskLevel `yaml:"risk,omitempty"`
	// Error is the domain.CodeOf code the step must fail with.
	Error string `yaml:"error,omitempty"`
	// Results are "RULE-ID:OUTCOME" pairs, compared in order.
	Results       []string             `yaml:"results,omitempty"`
	Determination domain.Determination `yaml:"determination,omitempty"`
}

// ExpectedDelivery is one expected notification.
type ExpectedDelivery struct {
	Trigger   domain.Trigger `yaml:"trigger"`
	Invoice   string         `yaml:"invoice"`
	Channel   string         `yaml:"channel"`
	Recipient string         `yaml:"recipient,omitempty"`
	// Failed expects the delivery to have been refused.
	Failed bool `yaml:"failed,omitempty"`
}

// DefaultNow is the fake clock's start when a scenario sets none.
var DefaultNow = time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must contain at least one step")
	}
	for i, step := range s.Steps {
		if step.opCount() != 1 {
			return fmt.Errorf("step %d: exactly one operation is required", i)
		}
		if step.Advance < 0 {
			return fmt.Errorf("step %d: advance must be positive", i)
		}
		if step.Advance > 0 && step.Expect != nil {
			return fmt.Errorf("step %d: advance takes no expect", i)
		}
	}
	for i, r := range s.Replies {
		if (r.Text == "") == (r.Error == "") {
			return fmt.Errorf("reply %d: exactly one of text or error is required", i)
		}
	}
	for i, rule := range s.Settings.NotificationRules {
		if !rule.Trigger.IsValid() {
			return fmt.Errorf("notification rule %d: unknown trigger %q", i, rule.Trigger)
		}
	}
	for i, n := range s.Notifications {
		if !n.Trigger.IsValid() {
			return fmt.Errorf("notification %d: unknown trigger %q", i, n.Trigger)
		}
	}
	return nil
}
