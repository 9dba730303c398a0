package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nutrilog/backend/internal/domain"
)

// Defaults applied by NewClient when the corresponding Config field is zero.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 150
	DefaultMaxRetries  = 2
)

// Config holds configuration for the estimator client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds a single completion call. Zero means no timeout,
	// matching the historical behavior; deployments are expected to set
	// one via config.
	Timeout    time.Duration
	MaxRetries int
}

// Client calls an OpenAI-compatible chat-completions API to estimate
// nutrition facts from free-text food descriptions.
type Client struct {
	httpClient  *http.Client
	cfg         Config
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new estimator client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Keep well under typical completion-API rate limits: 2 req/sec
	// sustained with a burst of 5.
	limiter := rate.NewLimiter(rate.Limit(2), 5)

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cfg:         cfg,
		rateLimiter: limiter,
		logger:      logger,
	}
}

// chat-completions wire types, request and response
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// Estimate asks the model for nutrition facts and returns the raw text
// of the first choice. Parsing and validation belong to the caller.
func (c *Client) Estimate(ctx context.Context, description string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: buildPrompt(description)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	reqURL := c.cfg.BaseURL + "/chat/completions"

	// Retry transient failures; 4xx other than 429 fails immediately
	var lastErr error
	maxAttempts := c.cfg.MaxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		payload, err := c.doOnce(ctx, reqURL, body)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		var rErr *retryableError
		if !errors.As(err, &rErr) || attempt == maxAttempts {
			break
		}

		backoff := exponentialBackoff(attempt)
		c.logger.Warn("estimator request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", lastErr
}

// doOnce performs a single completion round trip.
func (c *Client) doOnce(ctx context.Context, reqURL string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &retryableError{fmt.Errorf("%w: %v", domain.ErrEstimatorUnavailable, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &retryableError{fmt.Errorf("%w: read response: %v", domain.ErrEstimatorUnavailable, err)}
	}

	c.logger.Debug("estimator round trip",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		cause := fmt.Errorf("%w: status %d: %s", domain.ErrEstimatorUnavailable,
			resp.StatusCode, truncate(string(respBody), 200))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &retryableError{cause}
		}
		return "", cause
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrEstimatorUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return "", domain.ErrEmptyResponse
	}

	return completion.Choices[0].Message.Content, nil
}

// retryableError marks a failure worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// exponentialBackoff returns the delay before the given retry attempt:
// 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
