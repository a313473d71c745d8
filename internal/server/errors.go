package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/roach88/ledgerguard/internal/domain"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError maps pipeline errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var cooldown *domain.CooldownError
	if errors.As(err, &cooldown) {
		secs := int(math.Ceil(cooldown.Remaining.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
			Code:              string(domain.ErrCodeCooldown),
			Message:           err.Error(),
			RetryAfterSeconds: secs,
		}})
		return
	}

	status, code := classify(err)
	writeError(w, status, code, err.Error())
}

var statusByCode = map[string]int{
	domain.CodeNotFound:                 http.StatusNotFound,
	domain.CodeAuditInFlight:            http.StatusConflict,
	domain.CodeTerminalStatus:           http.StatusConflict,
	domain.CodeInvalidStatus:            http.StatusConflict,
	domain.CodeAlreadyReviewed:          http.StatusConflict,
	domain.CodeNotEligible:              http.StatusUnprocessableEntity,
	string(domain.ErrCodeConfiguration): http.StatusServiceUnavailable,
	string(domain.ErrCodeEscalation):    http.StatusBadGateway,
	string(domain.ErrCodeTransport):     http.StatusBadGateway,
}

func classify(err error) (int, string) {
	code := domain.CodeOf(err)
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, domain.CodeInternal
}
