package reviewllm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter implements Adapter over the official openai-go SDK. With a
// custom base URL it serves any OpenAI-compatible chat-completion endpoint,
// which is how DeepSeek is reached.
type OpenAIAdapter struct {
	provider string
	model    string
	client   openai.Client
}

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*openaiConfig)

type openaiConfig struct {
	provider string
	apiKey   string
	baseURL  string
	model    string
	extra    []option.RequestOption
}

// WithProviderName sets the provider identifier the adapter registers under.
// Defaults to "openai".
func WithProviderName(name string) OpenAIOption {
	return func(c *openaiConfig) {
		c.provider = name
	}
}

// WithAPIKey sets the API key for the adapter.
func WithAPIKey(key string) OpenAIOption {
	return func(c *openaiConfig) {
		c.apiKey = key
	}
}

// WithBaseURL points the adapter at an OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) {
		c.baseURL = url
	}
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(model string) OpenAIOption {
	return func(c *openaiConfig) {
		c.model = model
	}
}

// WithRequestOptions adds extra openai-go request options.
func WithRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(c *openaiConfig) {
		c.extra = append(c.extra, opts...)
	}
}

// NewOpenAIAdapter creates an adapter for an OpenAI-compatible endpoint.
// The API key is required; there is no environment fallback.
func NewOpenAIAdapter(opts ...OpenAIOption) (*OpenAIAdapter, error) {
	cfg := &openaiConfig{provider: "openai"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, &ConfigurationError{ClientError: ClientError{
			Message: fmt.Sprintf("provider %s: api key is required", cfg.provider),
		}}
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	reqOpts = append(reqOpts, cfg.extra...)

	return &OpenAIAdapter{
		provider: cfg.provider,
		model:    cfg.model,
		client:   openai.NewClient(reqOpts...),
	}, nil
}

// Name returns the provider identifier.
func (a *OpenAIAdapter) Name() string {
	return a.provider
}

// Complete sends a blocking chat completion and returns the full response.
func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = a.model
	}
	if model == "" {
		return nil, &ConfigurationError{ClientError: ClientError{
			Message: fmt.Sprintf("provider %s: no model specified", a.provider),
		}}
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{
			ClientError: ClientError{Message: "completion returned no choices"},
			Provider:    a.provider,
			Retryable:   true,
		}
	}

	choice := resp.Choices[0]
	return &Response{
		ID:           resp.ID,
		Provider:     a.provider,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}, nil
}

// translateError converts an openai-go error into the typed hierarchy.
func (a *OpenAIAdapter) translateError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return ErrorFromStatusCode(apierr.StatusCode, apierr.Error(), a.provider, nil)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortError{ClientError: ClientError{Message: "completion cancelled", Cause: err}}
	}
	return &NetworkError{ClientError: ClientError{Message: "completion transport failure", Cause: err}}
}
