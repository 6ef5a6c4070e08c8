// Package suggest talks to the AI backend that categorises tasks and proposes subtasks.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/taskboard/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Type selects the kind of suggestion requested from the backend
type Type string

const (
	TypeCategorizeTask   Type = "categorizeTask"
	TypeGenerateSubtasks Type = "generateSubtasks"
)

// Valid reports whether t is a known request type
func (t Type) Valid() bool {
	return t == TypeCategorizeTask || t == TypeGenerateSubtasks
}

const (
	// DefaultTimeout bounds a single backend call
	DefaultTimeout = 30 * time.Second
	// EndpointPath is appended to the configured base URL
	EndpointPath = "/api/openai"
	// maxErrorBody limits how much of an error body is read
	maxErrorBody = 64 * 1024
)

// Suggester is what the task store needs from the client
type Suggester interface {
	Suggest(ctx context.Context, t Type, prompt string) (string, error)
	ClearCache(ctx context.Context) error
}

// Request is the body posted to the backend
type Request struct {
	Type   Type   `json:"type"`
	Prompt string `json:"prompt"`
}

// Response is the chat-completion subset the client reads
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice is one completion alternative
type Choice struct {
	Message Message `json:"message"`
}

// Message holds the completion text
type Message struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// ErrorBody is the backend's error shape
type ErrorBody struct {
	Error string `json:"error"`
}

// Client calls POST {baseURL}/api/openai with a read-through cache. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCache replaces the default in-memory cache
func WithCache(cache Cache) Option {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      NewMemoryCache(DefaultCacheTTL, nil),
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("github.com/benvon/taskboard/internal/services/suggest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OAuthConfig holds the client-credentials settings for a protected backend
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// NewHTTPClient returns the HTTP client used for backend calls. When cfg carries a token
// URL the client obtains and refreshes bearer tokens with the client-credentials grant.
func NewHTTPClient(ctx context.Context, cfg OAuthConfig, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := &http.Client{Timeout: timeout}
	if cfg.TokenURL == "" {
		return base
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	hc := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	hc.Timeout = timeout
	return hc
}

// Suggest returns the trimmed completion for (t, prompt), from cache when fresh.
func (c *Client) Suggest(ctx context.Context, t Type, prompt string) (string, error) {
	key := CacheKey(t, prompt)
	if v, ok := c.cache.Get(ctx, key); ok {
		c.logger.Debug("suggestion_cache_hit", zap.String("type", string(t)))
		return v, nil
	}

	ctx, span := c.tracer.Start(ctx, "suggest.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("suggest.type", string(t)),
			attribute.Int("suggest.prompt_length", len(prompt)),
		),
	)
	defer span.End()

	start := time.Now()
	content, err := c.call(ctx, t, prompt)
	latency := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "suggestion failed")
		c.logger.Warn("suggestion_failed",
			zap.String("type", string(t)),
			zap.String("prompt_preview", logger.SanitizeUserContent(prompt)),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.Error(err),
		)
		return "", err
	}

	c.cache.Set(ctx, key, content)
	c.logger.Debug("suggestion_received",
		zap.String("type", string(t)),
		zap.Int("response_length", len(content)),
		zap.Int64("latency_ms", latency.Milliseconds()),
	)
	return content, nil
}

// ClearCache drops every cached suggestion
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

func (c *Client) call(ctx context.Context, t Type, prompt string) (string, error) {
	body, err := json.Marshal(Request{Type: t, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to encode suggestion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+EndpointPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build suggestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := "Unknown error"
		var eb ErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return "", &BackendError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &BackendError{StatusCode: resp.StatusCode, Message: "invalid response body: " + err.Error()}
	}
	if len(out.Choices) == 0 {
		return "", &BackendError{StatusCode: resp.StatusCode, Message: "no choices in response"}
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
