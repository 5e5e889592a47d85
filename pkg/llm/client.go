// Package llm is a thin chat-completion client used for free-form
// questions the command grammar cannot answer.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// LLMClient defines the supported client behaviours.
type LLMClient interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	GetConfig() *Config
	Close() error
}

// Client talks to an OpenAI-compatible completion endpoint.
type Client struct {
	config       *Config
	openaiClient *openai.Client
	logger       Logger
	retryHandler *RetryHandler
	httpClient   *http.Client
}

// ClientOption configures optional client behaviour.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger       Logger
	retry        *RetryHandler
	httpClient   *http.Client
	openaiClient *openai.Client
}

// WithLogger injects a custom logger implementation.
func WithLogger(logger Logger) ClientOption {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

// WithRetryHandler injects a custom retry handler.
func WithRetryHandler(handler *RetryHandler) ClientOption {
	return func(opts *clientOptions) {
		opts.retry = handler
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *clientOptions) {
		opts.httpClient = client
	}
}

// WithOpenAIClient injects a pre-configured SDK client (primarily for
// testing).
func WithOpenAIClient(client *openai.Client) ClientOption {
	return func(opts *clientOptions) {
		opts.openaiClient = client
	}
}

// NewClient constructs a client from the provided configuration.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("llm: config cannot be nil")
	}

	clientCfg := cfg.Clone()
	if err := clientCfg.Validate(); err != nil {
		return nil, err
	}

	optState := clientOptions{}
	for _, opt := range opts {
		opt(&optState)
	}

	logger := optState.logger
	if logger == nil {
		logger = NewLogger(clientCfg.LogLevel)
	}

	retryHandler := optState.retry
	if retryHandler == nil {
		retryHandler = NewRetryHandler(RetryConfig{MaxRetries: clientCfg.MaxRetries})
	}

	oaClient := optState.openaiClient
	if oaClient == nil {
		oaOpts := []option.RequestOption{
			option.WithAPIKey(clientCfg.APIKey),
			option.WithBaseURL(clientCfg.BaseURL),
		}
		if clientCfg.Timeout > 0 {
			oaOpts = append(oaOpts, option.WithRequestTimeout(clientCfg.Timeout))
		}
		if optState.httpClient != nil {
			oaOpts = append(oaOpts, option.WithHTTPClient(optState.httpClient))
		}
		clientVal := openai.NewClient(oaOpts...)
		oaClient = &clientVal
	}

	return &Client{
		config:       clientCfg,
		openaiClient: oaClient,
		logger:       logger,
		retryHandler: retryHandler,
		httpClient:   optState.httpClient,
	}, nil
}

// Chat performs a single synchronous completion request.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, errors.New("llm: request cannot be nil")
	}
	params, modelID, err := c.buildChatParams(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c.logger.Info(ctx, "llm chat request", Fields{
		"model":    modelID,
		"messages": len(req.Messages),
	})

	var completion *openai.ChatCompletion
	err = c.retryHandler.Do(ctx, func() error {
		resp, callErr := c.openaiClient.Chat.Completions.New(ctx, params)
		if callErr != nil {
			c.logger.Error(ctx, callErr, Fields{"model": modelID})
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := convertCompletion(completion)
	c.logger.Info(ctx, "llm chat success", Fields{
		"model":             modelID,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     result.Usage.PromptTokens,
		"completion_tokens": result.Usage.CompletionTokens,
	})
	return result, nil
}

// GetConfig returns a copy of the active configuration.
func (c *Client) GetConfig() *Config {
	return c.config.Clone()
}

// Close releases resources associated with the client.
func (c *Client) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

func (c *Client) buildChatParams(req *ChatRequest) (openai.ChatCompletionNewParams, string, error) {
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, "", errors.New("llm: request requires at least one message")
	}

	modelAlias := strings.TrimSpace(req.Model)
	if modelAlias == "" {
		modelAlias = c.config.DefaultModel
	}

	modelCfg, ok := c.config.Model(modelAlias)
	if !ok {
		modelCfg = ModelConfig{ModelName: modelAlias}
	}
	modelID := modelCfg.ModelName
	if modelID == "" {
		modelID = modelAlias
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(modelID),
		Messages: buildMessageParams(req.Messages),
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if modelCfg.Temperature != nil {
		params.Temperature = openai.Float(*modelCfg.Temperature)
	}

	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	} else if modelCfg.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*modelCfg.MaxTokens))
	}

	if req.TopP != nil {
		params.TopP = openai.Float(*req.TopP)
	} else if modelCfg.TopP != nil {
		params.TopP = openai.Float(*modelCfg.TopP)
	}

	return params, modelID, nil
}

func buildMessageParams(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch strings.ToLower(m.Role) {
		case "system":
			result = append(result, openai.SystemMessage(m.Content))
		case "assistant":
			result = append(result, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			result = append(result, openai.UserMessage(m.Content))
		}
	}
	return result
}

func convertCompletion(resp *openai.ChatCompletion) *ChatResponse {
	if resp == nil {
		return nil
	}

	result := &ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	for _, choice := range resp.Choices {
		result.Choices = append(result.Choices, Choice{
			Index: int(choice.Index),
			Message: Message{
				Role:    string(choice.Message.Role),
				Content: choice.Message.Content,
			},
			FinishReason: choice.FinishReason,
		})
	}
	return result
}
