// Package gemini implements generation.Generator against the Google
// generative-language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opencampus/sage/pkg/generation"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta/models"
	DefaultModel       = "gemini-1.5-flash"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxRetries  = 3
	DefaultMinInterval = 500 * time.Millisecond
	baseBackoff        = time.Second
)

// Config holds configuration for the Gemini client.
type Config struct {
	// APIKey is the API key (required).
	APIKey string

	// Model is the model name (default: gemini-1.5-flash).
	Model string

	// BaseURL is the API base URL, overridable for testing.
	BaseURL string

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// MaxRetries bounds retries on 429 and 5xx responses (default: 3).
	MaxRetries int

	// MinInterval is the minimum spacing between calls (default: 500ms).
	MinInterval time.Duration
}

// Client calls the generative-language API with bounded retry and
// client-owned rate limiting.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	limiter    *generation.RateLimiter
}

// New creates a new Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = DefaultMinInterval
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		limiter:    generation.NewRateLimiter(cfg.MinInterval),
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		Output string `json:"output"`
	} `json:"candidates"`
	Text  string `json:"text"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// extractors are tried in order against a parsed response; the first
// one that matches wins. The API has shipped more than one shape for
// generated text, so the probing stays here at the boundary.
var extractors = []func(*generateResponse) (string, bool){
	func(r *generateResponse) (string, bool) {
		if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
			return "", false
		}
		var b strings.Builder
		for _, p := range r.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
		return b.String(), true
	},
	func(r *generateResponse) (string, bool) {
		if len(r.Candidates) == 0 || r.Candidates[0].Output == "" {
			return "", false
		}
		return r.Candidates[0].Output, true
	},
	func(r *generateResponse) (string, bool) {
		if r.Text == "" {
			return "", false
		}
		return r.Text, true
	},
}

// Generate sends the prompt and returns the generated text. Rate-limit
// and server errors are retried with exponential backoff; once retries
// are exhausted the error wraps generation.ErrUpstreamUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		text, retryable, err := c.generateOnce(ctx, url, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}

		if attempt < c.maxRetries {
			backoff := baseBackoff << attempt
			slog.Warn("generation call failed, retrying",
				"model", c.model, "attempt", attempt+1, "backoff", backoff, "error", err)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
	}

	return "", fmt.Errorf("%w: %v", generation.ErrUpstreamUnavailable, lastErr)
}

// generateOnce performs a single API call. The second return value
// reports whether the failure is worth retrying.
func (c *Client) generateOnce(ctx context.Context, url string, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.limiter.RecordRateLimitError(baseBackoff)
		return "", true, fmt.Errorf("rate limited: %s", strings.TrimSpace(string(data)))
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("server error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	case resp.StatusCode != http.StatusOK:
		return "", false, fmt.Errorf("generation failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", false, fmt.Errorf("generation error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	for _, extract := range extractors {
		if text, ok := extract(&parsed); ok {
			return text, false, nil
		}
	}
	return "", false, fmt.Errorf("no generated text in response")
}

// ModelInfo fetches the upstream metadata for the configured model.
func (c *Client) ModelInfo(ctx context.Context) (map[string]any, error) {
	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model info failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode model info: %w", err)
	}
	return info, nil
}
