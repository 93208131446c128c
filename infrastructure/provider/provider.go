// Package provider implements chat and embedding access to
// OpenAI-compatible services, with retry and typed errors.
package provider

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation indicates the provider lacks the capability.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	role    string
	content string
}

// NewChatMessage creates a ChatMessage.
func NewChatMessage(role, content string) ChatMessage {
	return ChatMessage{role: role, content: content}
}

// Role returns the message role (system, user, assistant).
func (m ChatMessage) Role() string { return m.role }

// Content returns the message text.
func (m ChatMessage) Content() string { return m.content }

// ChatRequest is a provider-neutral chat completion request.
type ChatRequest struct {
	messages    []ChatMessage
	temperature float64
	maxTokens   int
}

// NewChatRequest creates a ChatRequest.
func NewChatRequest(messages []ChatMessage, temperature float64, maxTokens int) ChatRequest {
	return ChatRequest{messages: messages, temperature: temperature, maxTokens: maxTokens}
}

// Messages returns the conversation turns.
func (r ChatRequest) Messages() []ChatMessage { return r.messages }

// Temperature returns the sampling temperature.
func (r ChatRequest) Temperature() float64 { return r.temperature }

// MaxTokens returns the completion token limit, 0 meaning provider default.
func (r ChatRequest) MaxTokens() int { return r.maxTokens }

// ChatResponse is the first choice of a chat completion.
type ChatResponse struct {
	content      string
	finishReason string
}

// NewChatResponse creates a ChatResponse.
func NewChatResponse(content, finishReason string) ChatResponse {
	return ChatResponse{content: content, finishReason: finishReason}
}

// Content returns the completion text.
func (r ChatResponse) Content() string { return r.content }

// FinishReason returns why generation stopped.
func (r ChatResponse) FinishReason() string { return r.finishReason }

// ProviderError wraps an upstream provider failure with its operation
// and HTTP status, if known.
type ProviderError struct {
	operation  string
	statusCode int
	message    string
	cause      error
}

// NewProviderError creates a ProviderError.
func NewProviderError(operation string, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{operation: operation, statusCode: statusCode, message: message, cause: cause}
}

// Operation returns the failing operation name.
func (e *ProviderError) Operation() string { return e.operation }

// StatusCode returns the upstream HTTP status, or 0 if unknown.
func (e *ProviderError) StatusCode() int { return e.statusCode }

// Message returns the upstream error message.
func (e *ProviderError) Message() string { return e.message }

func (e *ProviderError) Error() string {
	if e.statusCode > 0 {
		return fmt.Sprintf("provider %s failed (status %d): %s", e.operation, e.statusCode, e.message)
	}
	return fmt.Sprintf("provider %s failed: %s", e.operation, e.message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.cause }
