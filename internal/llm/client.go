// Package llm turns a free-text expense description into a raw proposal
// string by calling an OpenAI-compatible chat completions endpoint.
//
// The returned content is untrusted. Callers pass it to proposal.Parse and
// then to the validator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmynk/fundflow/internal/models"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderCustom = "custom"
)

var defaults = map[string]struct{ baseURL, model string }{
	ProviderOpenAI: {"https://api.openai.com/v1", "gpt-4o-mini"},
	ProviderGemini: {"https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash"},
}

// Config selects a provider and holds per-provider API keys.
type Config struct {
	Provider string
	BaseURL  string // overrides the provider default
	Model    string // overrides the provider default
	APIKeys  map[string]string
}

// ConfigError reports a provider that cannot be used as configured. It is
// returned before any network call is made.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("llm provider %q is not configured: %s", e.Provider, e.Reason)
}

// HTTPError is a non-2xx response from the provider.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm request failed with status %d", e.Status)
}

// Request is one parse call.
type Request struct {
	Prompt        string
	Fund          models.Fund
	Roster        []models.User
	CurrentUserID string
}

// Parser produces a raw proposal string from free text.
type Parser interface {
	Parse(ctx context.Context, req Request) (string, error)
}

// Recorder counts provider calls.
type Recorder interface {
	LLMRequest(provider, result string)
}

// Client is a Parser backed by a chat completions API.
type Client struct {
	cfg      Config
	http     *http.Client
	recorder Recorder
}

// NewClient creates a client. httpClient and recorder may be nil.
func NewClient(cfg Config, httpClient *http.Client, recorder Recorder) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, recorder: recorder}
}

type endpoint struct {
	url, model, key string
}

func (c *Client) resolve() (endpoint, error) {
	provider := c.cfg.Provider
	d, known := defaults[provider]
	if !known && provider != ProviderCustom {
		return endpoint{}, &ConfigError{Provider: provider, Reason: "unknown provider"}
	}
	key := c.cfg.APIKeys[provider]
	if key == "" {
		return endpoint{}, &ConfigError{Provider: provider, Reason: "missing API key"}
	}
	ep := endpoint{url: d.baseURL, model: d.model, key: key}
	if c.cfg.BaseURL != "" {
		ep.url = c.cfg.BaseURL
	}
	if c.cfg.Model != "" {
		ep.model = c.cfg.Model
	}
	if ep.url == "" || ep.model == "" {
		return endpoint{}, &ConfigError{Provider: provider, Reason: "base URL and model are required"}
	}
	ep.url = strings.TrimRight(ep.url, "/") + "/chat/completions"
	return ep, nil
}

// Check reports whether the configured provider is usable.
func (c *Client) Check() error {
	_, err := c.resolve()
	return err
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Parse implements Parser.
func (c *Client) Parse(ctx context.Context, req Request) (string, error) {
	ep, err := c.resolve()
	if err != nil {
		c.record("config_error")
		return "", err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("empty prompt")
	}

	body, err := json.Marshal(chatRequest{
		Model: ep.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(req)},
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode llm request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build llm request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+ep.key)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		c.record("error")
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		c.record("error")
		return "", fmt.Errorf("failed to read llm response: %w", err)
	}
	if res.StatusCode >= 300 {
		c.record("error")
		return "", &HTTPError{Status: res.StatusCode, Body: string(raw)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.record("error")
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		c.record("empty")
		return "", fmt.Errorf("llm returned no content")
	}
	c.record("ok")
	return out.Choices[0].Message.Content, nil
}

func (c *Client) record(result string) {
	if c.recorder != nil {
		c.recorder.LLMRequest(c.cfg.Provider, result)
	}
}
