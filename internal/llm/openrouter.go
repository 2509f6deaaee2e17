package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	openRouterURL          = "https://openrouter.ai/api/v1/chat/completions"
	openRouterDefaultModel = "deepseek/deepseek-chat"
)

// OpenRouterClient talks to an OpenAI-compatible chat completions endpoint,
// OpenRouter by default.
type OpenRouterClient struct {
	client   *resty.Client
	url      string
	apiKey   string
	model    string
	referer  string
	appTitle string
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(opts Options) *OpenRouterClient {
	url := opts.BaseURL
	if url == "" {
		url = openRouterURL
	}
	model := opts.Model
	if model == "" {
		model = openRouterDefaultModel
	}

	return &OpenRouterClient{
		client:   resty.NewWithClient(opts.httpClient()),
		url:      url,
		apiKey:   opts.APIKey,
		model:    model,
		referer:  opts.Referer,
		appTitle: opts.AppTitle,
	}
}

// Name returns the provider name.
func (c *OpenRouterClient) Name() string {
	return string(ProviderOpenRouter)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends a completion request.
func (c *OpenRouterClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	r := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model:       model,
			Messages:    req.Messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			Stream:      false,
		})
	if c.referer != "" {
		r.SetHeader("HTTP-Referer", c.referer)
	}
	if c.appTitle != "" {
		r.SetHeader("X-Title", c.appTitle)
	}

	resp, err := r.Post(c.url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() || resp.StatusCode() != 200 {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var body chatResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, ErrMalformedResponse
	}
	if len(body.Choices) == 0 || body.Choices[0].Message.Content == nil {
		return nil, ErrMalformedResponse
	}

	if body.Model != "" {
		model = body.Model
	}
	return &CompletionResponse{
		Content:    *body.Choices[0].Message.Content,
		Model:      model,
		TokensIn:   body.Usage.PromptTokens,
		TokensOut:  body.Usage.CompletionTokens,
		StopReason: body.Choices[0].FinishReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
