package reasoning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/roach88/ledgerguard/internal/domain"
)

// postJSON POSTs body to url, retrying on transport errors, 429 and 5xx.
// Other non-2xx statuses fail immediately.
func postJSON(ctx context.Context, client *http.Client, backoff Backoff, provider, url string, headers map[string]string, body []byte) ([]byte, error) {
	attempts := backoff.MaxRetries + 1
	var lastErr error
	lastStatus := 0
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * backoff.InitialDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &domain.TransportError{Provider: provider, Err: ctx.Err()}
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, &domain.TransportError{Provider: provider, Err: fmt.Errorf("create request: %w", err)}
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			lastStatus = 0
			if ctx.Err() != nil {
				break
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			lastStatus = resp.StatusCode
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("%s", truncate(string(respBody), 512))
			lastStatus = resp.StatusCode
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return nil, &domain.TransportError{Provider: provider, StatusCode: resp.StatusCode, Err: lastErr}
		}

		return respBody, nil
	}

	return nil, &domain.TransportError{
		Provider:   provider,
		StatusCode: lastStatus,
		Err:        fmt.Errorf("max retries (%d) exceeded: %w", backoff.MaxRetries, lastErr),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
