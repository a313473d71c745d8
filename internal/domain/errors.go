package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by pipeline operations.
var (
	ErrNotFound        = errors.New("invoice not found")
	ErrAuditInFlight   = errors.New("audit already in flight for invoice")
	ErrTerminalStatus  = errors.New("invoice is in a terminal status")
	ErrNotEligible     = errors.New("invoice is not eligible for escalation")
	ErrAlreadyReviewed = errors.New("invoice already has an escalation review")
	ErrInvalidStatus   = errors.New("status transition not allowed")
)

// ErrorCode categorizes pipeline errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates no provider is configured for a request.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeTransport indicates a provider call failed on the wire.
	ErrCodeTransport ErrorCode = "TRANSPORT"

	// ErrCodeReasoning indicates the primary audit could not produce a result.
	ErrCodeReasoning ErrorCode = "REASONING_SERVICE"

	// ErrCodeEscalation indicates the second-opinion call failed.
	ErrCodeEscalation ErrorCode = "ESCALATION_SERVICE"

	// ErrCodeDispatch indicates one recipient's message was not sent.
	ErrCodeDispatch ErrorCode = "NOTIFICATION_DISPATCH"

	// ErrCodeCooldown indicates a retry was attempted before the gate opened.
	ErrCodeCooldown ErrorCode = "COOLDOWN"
)

// ConfigurationError is raised when no provider can serve a request.
// It must fail loudly at call time rather than fall back silently.
type ConfigurationError struct {
	Tier     string
	Provider string
	Message  string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s (provider=%s, tier=%s)", ErrCodeConfiguration, e.Message, e.Provider, e.Tier)
	}
	return fmt.Sprintf("%s: %s (tier=%s)", ErrCodeConfiguration, e.Message, e.Tier)
}

// TransportError wraps a failed provider round trip.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned %d: %v", ErrCodeTransport, e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCodeTransport, e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ReasoningServiceError records why the primary audit degraded. It is
// logged and converted into the synthetic AI-ERROR result, never returned
// to pipeline callers.
type ReasoningServiceError struct {
	InvoiceID string
	Err       error
}

// Error implements the error interface.
func (e *ReasoningServiceError) Error() string {
	return fmt.Sprintf("%s: deep audit failed (invoice=%s): %v", ErrCodeReasoning, e.InvoiceID, e.Err)
}

func (e *ReasoningServiceError) Unwrap() error { return e.Err }

// EscalationServiceError is surfaced to the caller of an escalation.
type EscalationServiceError struct {
	InvoiceID string
	Err       error
}

// Error implements the error interface.
func (e *EscalationServiceError) Error() string {
	return fmt.Sprintf("%s: escalation review failed (invoice=%s): %v", ErrCodeEscalation, e.InvoiceID, e.Err)
}

func (e *EscalationServiceError) Unwrap() error { return e.Err }

// NotificationDispatchError records one recipient's failed send.
type NotificationDispatchError struct {
	Trigger   Trigger
	Recipient string
	InvoiceID string
	Err       error
}

// Error implements the error interface.
func (e *NotificationDispatchError) Error() string {
	return fmt.Sprintf("%s: %s to %s (invoice=%s): %v", ErrCodeDispatch, e.Trigger, e.Recipient, e.InvoiceID, e.Err)
}

func (e *NotificationDispatchError) Unwrap() error { return e.Err }

// CooldownError is returned when an audit is retried before the cooldown
// elapsed.
type CooldownError struct {
	InvoiceID string
	Remaining time.Duration
}

// Error implements the error interface.
func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: retry for invoice %s available in %s", ErrCodeCooldown, e.InvoiceID, e.Remaining.Round(time.Second))
}

// IsConfigurationError returns true if the error is a ConfigurationError.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTransportError returns true if the error is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsEscalationError returns true if the error is an EscalationServiceError.
func IsEscalationError(err error) bool {
	var ee *EscalationServiceError
	return errors.As(err, &ee)
}

// IsCooldownError returns true if the error is a CooldownError.
func IsCooldownError(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}

// Codes for the sentinel errors, as reported by CodeOf.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeAuditInFlight   = "AUDIT_IN_FLIGHT"
	CodeTerminalStatus  = "TERMINAL_STATUS"
	CodeInvalidStatus   = "INVALID_STATUS"
	CodeAlreadyReviewed = "ALREADY_REVIEWED"
	CodeNotEligible     = "NOT_ELIGIBLE"
	CodeInternal        = "INTERNAL"
)

// CodeOf returns a stable machine-readable code for err, or "" for nil.
func CodeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAuditInFlight):
		return CodeAuditInFlight
	case errors.Is(err, ErrTerminalStatus):
		return CodeTerminalStatus
	case errors.Is(err, ErrInvalidStatus):
		return CodeInvalidStatus
	case errors.Is(err, ErrAlreadyReviewed):
		return CodeAlreadyReviewed
	case errors.Is(err, ErrNotEligible):
		return CodeNotEligible
	case IsCooldownError(err):
		return string(ErrCodeCooldown)
	case IsConfigurationError(err):
		return string(ErrCodeConfiguration)
	case IsEscalationError(err):
		return string(ErrCodeEscalation)
	case IsTransportError(err):
		return string(ErrCodeTransport)
	default:
		return CodeInternal
	}
}
