// Package openai adapts OpenAI-compatible APIs (OpenAI, Nebius and similar)
// to the embedding and suggestion ports.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/omnisearch/internal/domain"
)

// Config holds the provider settings. An empty APIKey leaves every client unavailable.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int

	// ChatModel is used by the Suggester.
	ChatModel string
	Timeout   time.Duration
	User      string
	Provider  string
	Logger    *zap.Logger
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(clientCfg)
}

// Error type labels for provider failures.
const (
	errTypeTimeout   = "timeout"
	errTypeRateLimit = "rate_limit"
	errTypeAuth      = "auth"
	errTypeAPI       = "api_error"
	errTypeEmpty     = "empty_response"
	errTypeTransport = "transport"
)

// errorType classifies a client error for metrics.
func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return errTypeTimeout
	}
	status := 0
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	default:
		return errTypeTransport
	}
	switch status {
	case http.StatusTooManyRequests:
		return errTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return errTypeAuth
	default:
		return errTypeAPI
	}
}

// parseAPIError turns a client error into a readable message. Every result
// wraps domain.ErrEmbeddingProviderError so the API maps it to 502; deadline
// errors additionally wrap domain.ErrTimeout.
func parseAPIError(kind string, err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request: %w: %w", kind, domain.ErrTimeout, wrap)
	}
	return fmt.Errorf("%s request failed: %w: %w", kind, wrap, err)
}

// extractDetail reads the "detail" field of Nebius-style error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
