package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chat-platform/internal/model"
	"github.com/capitalize-ai/chat-platform/pkg/logger"
	"github.com/capitalize-ai/chat-platform/pkg/metrics"
)

// Reply texts stored as the assistant message when the provider cannot
// produce one.
const (
	ReplyNotConfigured = "Error: AI service API key not configured. Please check your configuration."
	ReplyMalformed     = "Sorry, I encountered an error processing the AI response."
	replyTransportFmt  = "Sorry, I'm having trouble connecting to the AI service. Error: %s"
	replyStatusFmt     = "API Error %d: %s"
)

const (
	defaultMaxTokens = 2048
	defaultTimeout   = 30 * time.Second
)

// CompleterConfig bounds every provider call.
type CompleterConfig struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Completer turns a transcript into the next assistant reply. It never
// fails: provider problems become human-readable reply text.
type Completer struct {
	provider  Provider
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *logger.Logger
}

// NewCompleter creates a Completer. A nil provider means no API key was
// configured.
func NewCompleter(provider Provider, cfg CompleterConfig, log *logger.Logger) *Completer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Global()
	}
	return &Completer{
		provider:  provider,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
		logger:    log.With(zap.String("component", "completer")),
	}
}

// Configured reports whether a provider is available.
func (c *Completer) Configured() bool {
	return c.provider != nil
}

// Complete sends the full ordered transcript to the provider and returns the
// reply text.
func (c *Completer) Complete(ctx context.Context, transcript []*model.Message) string {
	if c.provider == nil {
		metrics.RecordCompletion("none", c.model, "not_configured", 0, 0, 0)
		return ReplyNotConfigured
	}

	messages := make([]ChatMessage, len(transcript))
	for i, msg := range transcript {
		messages[i] = ChatMessage{Role: string(msg.Role), Content: msg.Content}
	}

	// The call is bounded by its own timeout, not by the caller's deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Complete(ctx, &CompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	elapsed := time.Since(start)

	reply, outcome := replyFor(resp, err)
	tokensIn, tokensOut, modelName := 0, 0, c.model
	if resp != nil {
		tokensIn, tokensOut, modelName = resp.TokensIn, resp.TokensOut, resp.Model
	}
	metrics.RecordCompletion(c.provider.Name(), modelName, outcome, elapsed.Seconds(), tokensIn, tokensOut)

	if outcome != "success" {
		c.logger.Warn("completion failed",
			zap.String("provider", c.provider.Name()),
			zap.String("outcome", outcome),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		c.logger.Debug("completion succeeded",
			zap.String("provider", c.provider.Name()),
			zap.String("model", modelName),
			zap.Int("tokens_in", tokensIn),
			zap.Int("tokens_out", tokensOut),
			zap.Duration("elapsed", elapsed),
		)
	}
	return reply
}

func replyFor(resp *CompletionResponse, err error) (string, string) {
	if err == nil {
		if resp == nil || strings.TrimSpace(resp.Content) == "" {
			return ReplyMalformed, "malformed"
		}
		return resp.Content, "success"
	}

	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf(replyStatusFmt, statusErr.StatusCode, statusErr.Body), "status"
	case errors.Is(err, ErrMalformedResponse):
		return ReplyMalformed, "malformed"
	case errors.Is(err, ErrNotConfigured):
		return ReplyNotConfigured, "not_configured"
	default:
		return fmt.Sprintf(replyTransportFmt, err.Error()), "transport"
	}
}
