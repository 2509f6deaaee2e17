// Package llm provides completion provider clients and the reply-producing
// Completer built on top of them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Provider is the interface for completion backends. Implementations return
// a *StatusError for non-success responses and ErrMalformedResponse when a
// success response lacks a reply; any other error is a transport failure.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// ProviderName identifies a provider implementation.
type ProviderName string

const (
	ProviderOpenRouter ProviderName = "openrouter"
	ProviderOpenAI     ProviderName = "openai"
	ProviderAnthropic  ProviderName = "anthropic"
)

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("completion provider api key not configured")

	// ErrMalformedResponse is returned when a success response carries no
	// usable reply.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// StatusError is a non-success response from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Options configures a provider client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Referer and AppTitle identify the application to OpenRouter.
	Referer  string
	AppTitle string

	HTTPClient *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.Timeout}
}

// NewProvider creates a provider client by name. An empty name selects
// OpenRouter.
func NewProvider(name ProviderName, opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}

	switch name {
	case ProviderOpenRouter, "":
		return NewOpenRouterClient(opts), nil
	case ProviderOpenAI:
		return NewOpenAIClient(opts), nil
	case ProviderAnthropic:
		return NewAnthropicClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", name)
	}
}
