package intenthub

import (
	"log/slog"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/internal/config"
)

// clientConfig holds configuration for Client construction.
type clientConfig struct {
	appConfig  *config.AppConfig
	logger     *slog.Logger
	index      index.VectorIndex
	embedder   index.Embedder
	localIndex bool
}

// Option configures the Client.
type Option func(*clientConfig)

// WithConfig sets the process configuration. When unset the environment
// is read directly.
func WithConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.appConfig = &cfg
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithVectorIndex pins a custom vector index. A pinned index is never
// swapped on settings updates.
func WithVectorIndex(idx index.VectorIndex) Option {
	return func(c *clientConfig) {
		c.index = idx
	}
}

// WithEmbedder pins a custom embedder. A pinned embedder is never
// swapped on settings updates.
func WithEmbedder(e index.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithLocalIndex stores vectors in a SQLite database under the data
// directory instead of Qdrant. Intended for single-node deployments
// without a vector database.
func WithLocalIndex() Option {
	return func(c *clientConfig) {
		c.localIndex = true
	}
}
