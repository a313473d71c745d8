package reasoning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/ledgerguard/internal/domain"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider calls the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	backoff Backoff
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
	Title  string           `json:"title,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewAnthropicProvider creates a Messages API adapter. An empty baseURL uses
// the public endpoint.
func NewAnthropicProvider(apiKey, baseURL string, client *http.Client, backoff Backoff) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		backoff: backoff,
	}
}

// Invoke sends the prompt, with any documents as leading content blocks.
func (p *AnthropicProvider) Invoke(ctx context.Context, req Request) (string, error) {
	if p.apiKey == "" {
		return "", &domain.TransportError{Provider: "anthropic", Err: fmt.Errorf("API key not set")}
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var blocks []anthropicBlock
	for _, doc := range req.Documents {
		blocks = append(blocks, anthropicDocumentBlock(doc))
	}
	blocks = append(blocks, anthropicBlock{Type: "text", Text: req.Prompt})

	body, err := json.Marshal(anthropicRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", &domain.TransportError{Provider: "anthropic", Err: fmt.Errorf("marshal request: %w", err)}
	}

	respBody, err := postJSON(ctx, p.client, p.backoff, "anthropic", p.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}, body)
	if err != nil {
		return "", err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &domain.TransportError{Provider: "anthropic", Err: fmt.Errorf("decode response: %w", err)}
	}

	var text strings.Builder
	for _, c := range apiResp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return "", &domain.TransportError{Provider: "anthropic", Err: fmt.Errorf("empty response content")}
	}
	return text.String(), nil
}

// anthropicDocumentBlock encodes PDFs and images natively and inlines
// anything else as text.
func anthropicDocumentBlock(doc Document) anthropicBlock {
	switch {
	case doc.MimeType == "application/pdf":
		return anthropicBlock{
			Type:   "document",
			Title:  doc.Name,
			Source: &anthropicSource{Type: "base64", MediaType: doc.MimeType, Data: base64.StdEncoding.EncodeToString(doc.Data)},
		}
	case strings.HasPrefix(doc.MimeType, "image/"):
		return anthropicBlock{
			Type:   "image",
			Source: &anthropicSource{Type: "base64", MediaType: doc.MimeType, Data: base64.StdEncoding.EncodeToString(doc.Data)},
		}
	default:
		return anthropicBlock{Type: "text", Text: fmt.Sprintf("Policy document %q:\n%s", doc.Name, doc.Data)}
	}
}
