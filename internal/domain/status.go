package domain

// Status is the invoice lifecycle state.
type Status string

const (
	StatusReceived    Status = "RECEIVED"
	StatusExtracted   Status = "EXTRACTED"
	StatusMatched     Status = "MATCHED"
	StatusValidated   Status = "VALIDATED"
	StatusNeedsReview Status = "NEEDS_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusPosted      Status = "POSTED"
	StatusFailed      Status = "FAILED"
)

var validStatuses = map[Status]bool{
	StatusReceived:    true,
	StatusExtracted:   true,
	StatusMatched:     true,
	StatusValidated:   true,
	StatusNeedsReview: true,
	StatusApproved:    true,
	StatusPosted:      true,
	StatusFailed:      true,
}

var terminalStatuses = map[Status]bool{
	StatusPosted: true,
	StatusFailed: true,
}

// transitions lists the allowed edges of the lifecycle. Audit outcomes
// (NEEDS_REVIEW, APPROVED) are reachable from every pre-decision state so a
// first audit can land directly on its verdict.
var transitions = map[Status][]Status{
	StatusReceived:    {StatusExtracted, StatusMatched, StatusValidated, StatusNeedsReview, StatusApproved, StatusFailed},
	StatusExtracted:   {StatusMatched, StatusValidated, StatusNeedsReview, StatusApproved, StatusFailed},
	StatusMatched:     {StatusValidated, StatusNeedsReview, StatusApproved, StatusFailed},
	StatusValidated:   {StatusNeedsReview, StatusApproved, StatusFailed},
	StatusNeedsReview: {StatusNeedsReview, StatusApproved, StatusPosted, StatusFailed},
	StatusApproved:    {StatusNeedsReview, StatusApproved, StatusPosted, StatusFailed},
}

// IsValid returns true if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether the lifecycle permits moving from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
