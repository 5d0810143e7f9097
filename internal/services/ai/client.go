package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default model to use
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second
	// DefaultMaxAnswerTokens bounds generated answers
	DefaultMaxAnswerTokens = 500
	// DefaultMaxSummaryTokens bounds generated summaries
	DefaultMaxSummaryTokens = 500

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// Client implements Provider against an OpenAI-compatible inference API
type Client struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewClient creates an inference client
func NewClient(apiKey, baseURL, model string) *Client {
	return NewClientWithLogger(apiKey, baseURL, model, nil, false)
}

// NewClientWithLogger creates an inference client with logger support
func NewClientWithLogger(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool) *Client {
	if model == "" {
		model = DefaultModel
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		client:    openai.NewClient(opts...),
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Summarize returns a summary of one document's text
func (c *Client) Summarize(ctx context.Context, filename, text string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are an assistant that summarizes documents."),
		openai.UserMessage(fmt.Sprintf("Summarize this document titled %s: %s", filename, text)),
	}

	return c.complete(ctx, "summarize", messages, DefaultMaxSummaryTokens)
}

// Answer answers a question against the combined document context
func (c *Client) Answer(ctx context.Context, question, docContext string) (string, error) {
	prompt := fmt.Sprintf(`Use the following information to answer:

Context:
%s

Question: %s

Answer:`, docContext, question)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a helpful assistant that answers questions about uploaded documents."),
		openai.UserMessage(prompt),
	}

	return c.complete(ctx, "answer", messages, DefaultMaxAnswerTokens)
}

func (c *Client) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessageParamUnion, maxTokens int64) (string, error) {
	requestID := ExtractRequestID(ctx)
	userID := ExtractUserID(ctx)

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", c.model),
			zap.Int("message_count", len(messages)),
			zap.String("user_id", userID),
			zap.String("request_id", requestID),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(c.model),
		Messages:  messages,
		MaxTokens: openai.Int(maxTokens),
		// Temperature omitted - use model default to avoid "unsupported_value" errors
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if c.logger != nil && c.debugMode {
			c.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", c.model),
				zap.Error(err),
				zap.String("user_id", userID),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", wrapAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", c.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userID),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// Ensure Client implements Provider
var _ Provider = (*Client)(nil)
