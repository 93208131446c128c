// Package service provides application layer services that orchestrate
// domain operations.
package service

import (
	"context"
	"sync"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/infrastructure/provider"
	"github.com/free4inno/intenthub/internal/config"
)

// ChatClient is the LLM surface the advisor needs.
type ChatClient interface {
	ChatCompletion(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error)
}

// Components holds the rebindable backends shared across services. A
// settings update swaps members atomically; services read through the
// accessors on every call so they always see the current binding.
type Components struct {
	mu       sync.RWMutex
	index    index.VectorIndex
	embedder index.Embedder
	chat     ChatClient
	runtime  config.Runtime
}

// NewComponents creates a Components with the initial bindings. chat may
// be nil when no LLM provider is configured.
func NewComponents(idx index.VectorIndex, embedder index.Embedder, chat ChatClient, rt config.Runtime) *Components {
	return &Components{index: idx, embedder: embedder, chat: chat, runtime: rt}
}

// Index returns the current vector index.
func (c *Components) Index() index.VectorIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

// Embedder returns the current embedder.
func (c *Components) Embedder() index.Embedder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embedder
}

// Chat returns the current LLM client, nil when unconfigured.
func (c *Components) Chat() ChatClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.chat
}

// Runtime returns the current resolved runtime configuration.
func (c *Components) Runtime() config.Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runtime
}

// Rebind swaps the backends in one step. Nil members keep the current
// binding; chat is always replaced so a removed LLM config unbinds it.
func (c *Components) Rebind(idx index.VectorIndex, embedder index.Embedder, chat ChatClient, rt config.Runtime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx != nil {
		c.index = idx
	}
	if embedder != nil {
		c.embedder = embedder
	}
	c.chat = chat
	c.runtime = rt
}
