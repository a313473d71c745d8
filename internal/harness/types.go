package harness

// StepRecord is the observable outcome of one scenario step.
type StepRecord struct {
	Op            string   `json:"op"`
	Invoice       string   `json:"invoice,omitempty"`
	Status        string   `json:"status,omitempty"`
	Risk          string   `json:"risk,omitempty"`
	Results       []string `json:"results,omitempty"`
	Determination string   `json:"determination,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// DeliveryRecord is one notification delivery attempt.
type DeliveryRecord struct {
	Trigger   string `json:"trigger"`
	Invoice   string `json:"invoice"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	OK        bool   `json:"ok"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expectation matched.
	Pass bool `json:"pass"`

	Steps         []StepRecord     `json:"steps"`
	Notifications []DeliveryRecord `json:"notifications"`

	// AuditTrail lists "actor:action" per invoice, in fixture order.
	AuditTrail map[string][]string `json:"auditTrail"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Steps:         []StepRecord{},
		Notifications: []DeliveryRecord{},
		AuditTrail:    make(map[string][]string),
		Errors:        []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
