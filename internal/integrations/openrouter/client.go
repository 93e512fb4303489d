package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rustplugin-bot/internal/domain"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "mistralai/mistral-7b-instruct"
	DefaultTimeout = 120 * time.Second
)

// chatRequest is the request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openrouter: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ResponseBody returns the (truncated) upstream response body.
func (e *HTTPStatusError) ResponseBody() string {
	return e.Body
}

// Config is the credential and identification set shared by every request.
// It is fixed for the lifetime of a Client.
type Config struct {
	APIKey string
	Model  string
	// Referer and Title are sent as the HTTP-Referer and X-Title headers
	// that OpenRouter uses to attribute traffic to an application.
	Referer string
	Title   string
}

// Client is a focused OpenAI-compatible chat completions client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        Config
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient builds a Client and checks the API key against the models
// endpoint. An invalid key fails construction.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("openrouter: api key must not be empty")
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.ValidateCredentials(ctx); err != nil {
		return nil, fmt.Errorf("openrouter: validate credentials: %w", err)
	}
	return c, nil
}

// Model returns the model every request is sent to.
func (c *Client) Model() string {
	return c.cfg.Model
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func endpointURL(baseURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + path
}

// ValidateCredentials performs an authorized GET against the models listing.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	url := endpointURL(c.baseURL, "/models")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("openrouter: create models request: %w", err)
	}
	c.setHeaders(req)

	if _, err := c.doJSONRequest(req, url); err != nil {
		return fmt.Errorf("openrouter: models request failed: %w", err)
	}
	return nil
}

// Chat sends the request and returns the first choice's content, trimmed.
func (c *Client) Chat(ctx context.Context, in domain.PromptRequest) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    in.Messages(),
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openrouter: marshal request: %w", err)
	}

	url := endpointURL(c.baseURL, "/chat/completions")

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("openrouter: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return "", fmt.Errorf("openrouter: request failed: %w", err)
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", decErr)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("openrouter: no choices in response")
	}
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
