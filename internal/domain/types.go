package domain

import "time"

// Severity grades how strongly a result constrains the payment decision.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityBlocking Severity = "BLOCKING"
)

// Outcome is the verdict of a single check.
type Outcome string

const (
	OutcomePass Outcome = "PASS"
	// OutcomeWarn marks an early-warning threshold that is not yet a breach.
	OutcomeWarn Outcome = "WARN"
	OutcomeFail Outcome = "FAIL"
)

// RiskLevel is the coarse risk bucket produced by the deep audit.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ValidRiskLevels defines allowed risk levels.
var ValidRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// Invoice is the unit of work flowing through the pipeline.
type Invoice struct {
	ID                string     `json:"id" yaml:"id"`
	TenantID          string     `json:"tenantId" yaml:"tenantId"`
	InvoiceNumber     string     `json:"invoiceNumber" yaml:"invoiceNumber"`
	SupplierName      string     `json:"supplierName" yaml:"supplierName"`
	SupplierEmail     string     `json:"supplierEmail,omitempty" yaml:"supplierEmail,omitempty"`
	SupplierABN       string     `json:"supplierAbn,omitempty" yaml:"supplierAbn,omitempty"`
	ClientID          string     `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	InvoiceDate       string     `json:"invoiceDate" yaml:"invoiceDate"`
	DueDate           string     `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Currency          string     `json:"currency,omitempty" yaml:"currency,omitempty"`
	Total             float64    `json:"total" yaml:"total"`
	LineItems         []LineItem `json:"lineItems,omitempty" yaml:"lineItems,omitempty"`
	ExtractedPONumber string     `json:"extractedPoNumber,omitempty" yaml:"extractedPoNumber,omitempty"`
	MatchedPONumber   string     `json:"matchedPoNumber,omitempty" yaml:"matchedPoNumber,omitempty"`
	Status            Status     `json:"status" yaml:"status"`

	ValidationResults  []ValidationResult  `json:"validationResults,omitempty" yaml:"validationResults,omitempty"`
	RiskAssessment     *RiskAssessment     `json:"riskAssessment,omitempty" yaml:"riskAssessment,omitempty"`
	AuditReport        string              `json:"auditReport,omitempty" yaml:"auditReport,omitempty"`
	ChiefAuditorReview *ChiefAuditorReview `json:"chiefAuditorReview,omitempty" yaml:"chiefAuditorReview,omitempty"`
	SpendingAnalysis   *SpendingAnalysis   `json:"spendingAnalysis,omitempty" yaml:"spendingAnalysis,omitempty"`
	RejectionDrafts    *RejectionDrafts    `json:"rejectionDrafts,omitempty" yaml:"rejectionDrafts,omitempty"`

	// FactsHash fingerprints the audited facts of the last completed run.
	FactsHash string    `json:"factsHash,omitempty" yaml:"factsHash,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// PONumber returns the matched PO number, falling back to the extracted one.
func (inv *Invoice) PONumber() string {
	if inv.MatchedPONumber != "" {
		return inv.MatchedPONumber
	}
	return inv.ExtractedPONumber
}

// Clone returns a deep copy so callers can mutate without aliasing the
// canonical record.
func (inv *Invoice) Clone() *Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	if inv.LineItems != nil {
		c.LineItems = append([]LineItem(nil), inv.LineItems...)
	}
	if inv.ValidationResults != nil {
		c.ValidationResults = append([]ValidationResult(nil), inv.ValidationResults...)
	}
	if inv.RiskAssessment != nil {
		r := *inv.RiskAssessment
		c.RiskAssessment = &r
	}
	if inv.ChiefAuditorReview != nil {
		r := *inv.ChiefAuditorReview
		r.Citations = append([]string(nil), inv.ChiefAuditorReview.Citations...)
		c.ChiefAuditorReview = &r
	}
	if inv.SpendingAnalysis != nil {
		s := *inv.SpendingAnalysis
		c.SpendingAnalysis = &s
	}
	if inv.RejectionDrafts != nil {
		d := *inv.RejectionDrafts
		c.RejectionDrafts = &d
	}
	return &c
}

// LineItem is one billed service line.
type LineItem struct {
	Description string  `json:"description" yaml:"description"`
	ServiceCode string  `json:"serviceCode,omitempty" yaml:"serviceCode,omitempty"`
	Quantity    float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	UnitPrice   float64 `json:"unitPrice,omitempty" yaml:"unitPrice,omitempty"`
	Amount      float64 `json:"amount" yaml:"amount"`
}

// ValidationResult is the outcome of one rule for one invocation of a stage.
type ValidationResult struct {
	RuleID   string   `json:"ruleId" yaml:"ruleId"`
	Severity Severity `json:"severity" yaml:"severity"`
	Result   Outcome  `json:"result" yaml:"result"`
	Details  string   `json:"details,omitempty" yaml:"details,omitempty"`
}

// RiskAssessment is produced wholesale by each successful deep audit.
type RiskAssessment struct {
	Level                RiskLevel `json:"level" yaml:"level"`
	Score                int       `json:"score" yaml:"score"`
	Justification        string    `json:"justification" yaml:"justification"`
	ActionRecommendation string    `json:"actionRecommendation" yaml:"actionRecommendation"`
}

// PurchaseOrder is the pre-authorised budget envelope linked to one client.
// Read-only to the pipeline.
type PurchaseOrder struct {
	PONumber            string   `json:"poNumber" yaml:"poNumber"`
	ClientID            string   `json:"clientId" yaml:"clientId"`
	SupplierName        string   `json:"supplierName,omitempty" yaml:"supplierName,omitempty"`
	QuarterlyBudgetCap  float64  `json:"quarterlyBudgetCap" yaml:"quarterlyBudgetCap"`
	CurrentQuarterSpend float64  `json:"currentQuarterSpend" yaml:"currentQuarterSpend"`
	AnnualBudgetCap     float64  `json:"annualBudgetCap" yaml:"annualBudgetCap"`
	AnnualSpend         float64  `json:"annualSpend" yaml:"annualSpend"`
	ValidFrom           string   `json:"validFrom" yaml:"validFrom"`
	ValidTo             string   `json:"validTo" yaml:"validTo"`
	ApprovedCategories  []string `json:"approvedCategories" yaml:"approvedCategories"`
}

// RemainingBalance is the unconsumed annual envelope.
func (po *PurchaseOrder) RemainingBalance() float64 {
	return po.AnnualBudgetCap - po.AnnualSpend
}

// ClientProfile is the funding record of the person receiving services.
// Read-only to the pipeline.
type ClientProfile struct {
	ID                 string   `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	Email              string   `json:"email,omitempty" yaml:"email,omitempty"`
	FundingTier        string   `json:"fundingTier" yaml:"fundingTier"`
	Supplements        []string `json:"supplements,omitempty" yaml:"supplements,omitempty"`
	SchemeFlags        []string `json:"schemeFlags,omitempty" yaml:"schemeFlags,omitempty"`
	HighValueApprovals []string `json:"highValueApprovals,omitempty" yaml:"highValueApprovals,omitempty"`
	AnnualCap          float64  `json:"annualCap" yaml:"annualCap"`
	AnnualUsed         float64  `json:"annualUsed" yaml:"annualUsed"`
}

// Message is one outbound communication.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// RejectionDrafts is the two-audience message pair explaining a rejection.
// Created once per invoice and treated as an immutable cache afterwards.
type RejectionDrafts struct {
	Vendor      Message   `json:"vendor"`
	Client      Message   `json:"client"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Determination is the escalation reviewer's ruling.
type Determination string

const (
	DeterminationUphold              Determination = "UPHOLD"
	DeterminationOverrideApprove     Determination = "OVERRIDE_APPROVE"
	DeterminationRequireMoreEvidence Determination = "REQUIRE_MORE_EVIDENCE"
)

// ValidDeterminations defines allowed escalation rulings.
var ValidDeterminations = map[Determination]bool{
	DeterminationUphold:              true,
	DeterminationOverrideApprove:     true,
	DeterminationRequireMoreEvidence: true,
}

// ChiefAuditorReview is the advisory second opinion attached to an invoice.
type ChiefAuditorReview struct {
	Determination Determination `json:"determination"`
	Confidence    int           `json:"confidence"`
	FinalVerdict  string        `json:"finalVerdict"`
	Citations     []string      `json:"citations"`
	AuditLogEntry string        `json:"auditLogEntry"`
	ReviewedAt    time.Time     `json:"reviewedAt"`
}

// SpendingAnalysis is the advisory spend-velocity projection.
type SpendingAnalysis struct {
	QuarterStart          string  `json:"quarterStart"`
	QuarterEnd            string  `json:"quarterEnd"`
	AsOf                  string  `json:"asOf"`
	DaysElapsed           int     `json:"daysElapsed"`
	DaysInQuarter         int     `json:"daysInQuarter"`
	DailyBurnRate         float64 `json:"dailyBurnRate"`
	ProjectedQuarterSpend float64 `json:"projectedQuarterSpend"`
	QuarterlyCap          float64 `json:"quarterlyCap"`
	ProjectedVariance     float64 `json:"projectedVariance"`
	ExhaustionDate        string  `json:"exhaustionDate,omitempty"`
	Narrative             string  `json:"narrative,omitempty"`
}

// Trigger identifies a notification-worthy event. Closed set.
type Trigger string

const (
	TriggerAuditFailed      Trigger = "AUDIT_FAILED"
	TriggerHighRiskDetected Trigger = "HIGH_RISK_DETECTED"
	TriggerInvoiceApproved  Trigger = "INVOICE_APPROVED"
	TriggerInvoiceRejected  Trigger = "INVOICE_REJECTED"
)

// Triggers lists every trigger in declaration order.
var Triggers = []Trigger{
	TriggerAuditFailed,
	TriggerHighRiskDetected,
	TriggerInvoiceApproved,
	TriggerInvoiceRejected,
}

// IsValid reports whether t belongs to the closed trigger set.
func (t Trigger) IsValid() bool {
	for _, known := range Triggers {
		if t == known {
			return true
		}
	}
	return false
}

// NotificationRule maps one trigger to its channels and recipients.
type NotificationRule struct {
	Trigger    Trigger `json:"trigger" yaml:"trigger" mapstructure:"trigger"`
	InApp      bool    `json:"inApp" yaml:"inApp" mapstructure:"inApp"`
	Email      bool    `json:"email" yaml:"email" mapstructure:"email"`
	Recipients string  `json:"recipients" yaml:"recipients" mapstructure:"recipients"`
}

// Notification is a user-visible in-app entry.
type Notification struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	InvoiceID string    `json:"invoiceId"`
	Trigger   Trigger   `json:"trigger"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditEntry is one append-only, hash-chained audit log record.
type AuditEntry struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	InvoiceID string    `json:"invoiceId"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Ts        time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prevHash"`
}
