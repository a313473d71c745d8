package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"bare", `{"narrative":"ok"}`},
		{"fenced", "```json\n{\"narrative\":\"ok\"}\n```"},
		{"fence without language", "```\n{\"narrative\":\"ok\"}\n```"},
		{"prose around", "Here is the result:\n{\"narrative\":\"ok\"}\nThanks."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Narrative string `json:"narrative"`
			}
			require.NoError(t, DecodeJSON(tt.in, &out))
			assert.Equal(t, "ok", out.Narrative)
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	var out map[string]any
	assert.Error(t, DecodeJSON("I cannot help with that.", &out))
	assert.Error(t, DecodeJSON(`{"broken": }`, &out))
}
