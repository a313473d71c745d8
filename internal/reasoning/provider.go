package reasoning

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/roach88/ledgerguard/internal/config"
)

// Document is a policy file passed verbatim to the provider.
type Document struct {
	Name     string
	MimeType string
	Data     []byte
}

// Request is one provider call.
type Request struct {
	Model     string
	System    string
	Prompt    string
	Documents []Document
	MaxTokens int
}

// Provider sends a request to a reasoning service and returns the raw text
// reply. Failures are returned as *domain.TransportError.
type Provider interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

const defaultMaxTokens = 4096

// Backoff controls retries of 429 and 5xx responses.
type Backoff struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// DefaultBackoff retries up to three times: 1s, 2s, 4s.
var DefaultBackoff = Backoff{MaxRetries: 3, InitialDelay: time.Second}

// NewProviders builds an adapter for every provider with an API key.
func NewProviders(s *config.Settings, httpClient *http.Client) map[string]Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	providers := make(map[string]Provider)
	for _, name := range config.ProviderOrder {
		ps, _ := s.Provider(name)
		if !ps.Configured() {
			continue
		}
		switch name {
		case config.ProviderAnthropic:
			providers[name] = NewAnthropicProvider(ps.APIKey, ps.BaseURL, httpClient, DefaultBackoff)
		default:
			providers[name] = NewOpenAIProvider(name, ps.APIKey, ps.BaseURL, httpClient, DefaultBackoff)
		}
	}
	return providers
}

// LoadDocuments reads attached policy files from disk.
func LoadDocuments(files []config.PolicyFile) ([]Document, error) {
	docs := make([]Document, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read policy file %s: %w", f.Name, err)
		}
		docs = append(docs, Document{Name: f.Name, MimeType: f.MimeType, Data: data})
	}
	return docs, nil
}
