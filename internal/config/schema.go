package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/ledgerguard/internal/domain"
)

//go:embed schema.cue
var schemaSource string

// ValidationError describes a settings object rejected by the schema.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid settings: %s: %s", e.Field, e.Message)
	}
	return "invalid settings: " + e.Message
}

// Validate checks settings against the embedded CUE schema plus the
// cross-field rules CUE cannot express.
func Validate(s *Settings) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile settings schema: %w", err)
	}

	// Round-trip through JSON so field names follow the json tags.
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	value := ctx.CompileBytes(data, cue.Filename("settings.json"))
	if err := value.Err(); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Settings")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}

	seen := make(map[domain.Trigger]bool)
	for i, r := range s.NotificationRules {
		if seen[r.Trigger] {
			return &ValidationError{
				Field:   fmt.Sprintf("notificationRules[%d].trigger", i),
				Message: fmt.Sprintf("duplicate rule for %s", r.Trigger),
			}
		}
		seen[r.Trigger] = true
	}
	return nil
}

// formatCUEError reports the first CUE error with its path.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	return &ValidationError{
		Field:   strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}
