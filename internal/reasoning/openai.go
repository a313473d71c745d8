package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/ledgerguard/internal/domain"
)

const openaiBaseURL = "https://api.openai.com/v1"

// OpenAIProvider calls an OpenAI-compatible chat-completions endpoint. The
// live-search provider speaks the same protocol at a different base URL.
type OpenAIProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	backoff Backoff
}

type openaiRequest struct {
	Model     string          `json:"model"`
	Messages  []openaiMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIProvider creates a chat-completions adapter registered as name.
func NewOpenAIProvider(name, apiKey, baseURL string, client *http.Client, backoff Backoff) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openaiBaseURL
	}
	return &OpenAIProvider{
		name:    name,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		backoff: backoff,
	}
}

// Invoke sends the prompt. Text documents are inlined ahead of the prompt;
// binary documents are listed by name since the endpoint cannot take them.
func (p *OpenAIProvider) Invoke(ctx context.Context, req Request) (string, error) {
	if p.apiKey == "" {
		return "", &domain.TransportError{Provider: p.name, Err: fmt.Errorf("API key not set")}
	}

	var user strings.Builder
	for _, doc := range req.Documents {
		if isText(doc.MimeType) {
			fmt.Fprintf(&user, "Policy document %q:\n%s\n\n", doc.Name, doc.Data)
		} else {
			fmt.Fprintf(&user, "[Attached policy document %q (%s) not readable by this provider]\n\n", doc.Name, doc.MimeType)
		}
	}
	user.WriteString(req.Prompt)

	var messages []openaiMessage
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: user.String()})

	body, err := json.Marshal(openaiRequest{Model: req.Model, Messages: messages, MaxTokens: req.MaxTokens})
	if err != nil {
		return "", &domain.TransportError{Provider: p.name, Err: fmt.Errorf("marshal request: %w", err)}
	}

	respBody, err := postJSON(ctx, p.client, p.backoff, p.name, p.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}, body)
	if err != nil {
		return "", err
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &domain.TransportError{Provider: p.name, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		return "", &domain.TransportError{Provider: p.name, Err: fmt.Errorf("empty response content")}
	}
	return apiResp.Choices[0].Message.Content, nil
}

func isText(mime string) bool {
	return mime == "" || strings.HasPrefix(mime, "text/") || mime == "application/json" || mime == "application/yaml"
}
