package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// errEmbeddingCountMismatch indicates the API returned fewer embedding
// vectors than requested. Retryable: transient rate-limiting behind a
// 200 status can produce partial responses.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// OpenAIClient talks to any OpenAI-compatible service for chat
// completions and embeddings, with exponential-backoff retry.
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	maxRetries     int
	initialDelay   time.Duration
	backoffFactor  float64
}

// Config holds connection settings for an OpenAI-compatible service.
type Config struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	InitialDelay   time.Duration
	BackoffFactor  float64
}

// NewOpenAIClient creates a client from configuration, applying retry
// defaults where unset.
func NewOpenAIClient(cfg Config) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &OpenAIClient{
		client:         openai.NewClientWithConfig(config),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		maxRetries:     cfg.MaxRetries,
		initialDelay:   cfg.InitialDelay,
		backoffFactor:  cfg.BackoffFactor,
	}
	if c.maxRetries == 0 {
		c.maxRetries = 3
	}
	if c.initialDelay == 0 {
		c.initialDelay = time.Second
	}
	if c.backoffFactor == 0 {
		c.backoffFactor = 2.0
	}
	return c
}

// ChatCompletion generates a chat completion for the request.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if c.chatModel == "" {
		return ChatResponse{}, ErrUnsupportedOperation
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages()))
	for i, m := range req.Messages() {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role(), Content: m.Content()}
	}

	openaiReq := openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: messages,
	}
	if req.Temperature() > 0 {
		openaiReq.Temperature = float32(req.Temperature())
	}
	if req.MaxTokens() > 0 {
		openaiReq.MaxTokens = req.MaxTokens()
	}

	var resp openai.ChatCompletionResponse
	err := c.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.CreateChatCompletion(ctx, openaiReq)
		return callErr
	})
	if err != nil {
		return ChatResponse{}, c.wrapError("chat_completion", err)
	}

	if len(resp.Choices) == 0 {
		return ChatResponse{}, NewProviderError("chat_completion", 0, "no choices in response", nil)
	}

	choice := resp.Choices[0]
	return NewChatResponse(choice.Message.Content, string(choice.FinishReason)), nil
}

// Embed generates embeddings for the given texts in one API call.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if c.embeddingModel == "" {
		return nil, ErrUnsupportedOperation
	}
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	openaiReq := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: texts,
	}

	var resp openai.EmbeddingResponse
	err := c.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = c.client.CreateEmbeddings(ctx, openaiReq)
		if callErr != nil {
			return callErr
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		return nil, c.wrapError("embedding", err)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			embeddings[i][j] = float64(v)
		}
	}
	return embeddings, nil
}

// withRetry executes fn with exponential backoff.
func (c *OpenAIClient) withRetry(ctx context.Context, fn func() error) error {
	delay := c.initialDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * c.backoffFactor)
			}
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

func (c *OpenAIClient) wrapError(operation string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewProviderError(operation, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError(operation, reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return NewProviderError(operation, 0, err.Error(), err)
}
