// Package intenthub provides a semantic intent router: routes are named
// intent classes with example utterances, queries are classified by
// vector similarity against an index kept in sync with the route store.
//
// Basic usage:
//
//	client, err := intenthub.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	prediction, err := client.Predict.Predict(ctx, "what's the weather in Beijing")
package intenthub

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/free4inno/intenthub/application/service"
	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/infrastructure/persistence"
	"github.com/free4inno/intenthub/infrastructure/provider"
	"github.com/free4inno/intenthub/infrastructure/qdrant"
	"github.com/free4inno/intenthub/internal/auth"
	"github.com/free4inno/intenthub/internal/config"
	"github.com/free4inno/intenthub/internal/log"
)

// Client is the main entry point for the intenthub library.
//
// Access resources via struct fields:
//
//	client.Routes.List(ctx)
//	client.Predict.Predict(ctx, "book a flight")
//	client.Diagnostics.Overlap(ctx, true)
type Client struct {
	// Public resource fields (direct service access)
	Routes      *service.RouteService
	Predict     *service.PredictService
	Sync        *service.SyncService
	Diagnostics *service.DiagnosticsService
	Advisor     *service.AdvisorService
	Settings    *service.SettingsService
	Auth        *auth.Manager

	cfg      config.AppConfig
	settings *config.Settings
	store    *persistence.RouteStore
	comps    *service.Components

	// Pinned backends are never swapped on settings updates.
	indexPinned    bool
	embedderPinned bool

	logger *slog.Logger
	closed atomic.Bool
	mu     sync.Mutex
}

// New creates a Client with the given options. Configuration is read
// from the environment unless WithConfig overrides it; the settings
// overlay is loaded from the data directory.
func New(opts ...Option) (*Client, error) {
	cc := &clientConfig{}
	for _, opt := range opts {
		opt(cc)
	}

	var cfg config.AppConfig
	if cc.appConfig != nil {
		cfg = *cc.appConfig
	} else {
		env, err := config.LoadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg = env.ToAppConfig()
	}

	logger := cc.logger
	if logger == nil {
		logger = log.New(log.Format(cfg.LogFormat()), cfg.LogLevel()).Slog()
	}

	dataDir, err := config.PrepareDataDir(cfg.DataDir())
	if err != nil {
		return nil, err
	}
	cfg = cfg.Apply(config.WithDataDir(dataDir))

	settings, err := config.LoadSettings(cfg.SettingsFile())
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	rt := config.ResolveRuntime(settings)

	store, err := persistence.NewRouteStore(cfg.RoutesFile(), logger)
	if err != nil {
		return nil, fmt.Errorf("open route journal: %w", err)
	}

	c := &Client{
		cfg:            cfg,
		settings:       settings,
		store:          store,
		indexPinned:    cc.index != nil,
		embedderPinned: cc.embedder != nil,
		logger:         logger,
	}

	idx := cc.index
	if idx == nil {
		if cc.localIndex {
			idx, err = openLocalIndex(dataDir, logger)
			if err != nil {
				return nil, err
			}
			c.indexPinned = true
		} else {
			idx = buildQdrantIndex(rt, logger)
		}
	}

	embedder := cc.embedder
	if embedder == nil {
		embedder = buildEmbedder(rt)
	}

	chat, err := buildChat(rt)
	if err != nil {
		logger.Warn("LLM provider not usable, advisor disabled", slog.Any("error", err))
		chat = nil
	}

	c.comps = service.NewComponents(idx, embedder, chat, rt)

	c.Sync = service.NewSyncService(store, c.comps, logger)
	c.Routes = service.NewRouteService(store, c.Sync, logger)
	c.Predict = service.NewPredictService(store, c.comps, logger)
	c.Advisor = service.NewAdvisorService(c.comps, logger)
	c.Diagnostics = service.NewDiagnosticsService(store, c.comps, c.Advisor, logger)
	c.Settings = service.NewSettingsService(settings, c.comps, c, c.Sync, cfg.EnvMirrorFile(), logger)
	c.Auth = auth.NewManager(cfg.Username(), cfg.Password(), cfg.APIKeys())

	logger.Info("intenthub client ready",
		slog.String("data_dir", dataDir),
		slog.Int("routes", len(store.All())),
	)
	return c, nil
}

// Close marks the client closed. Backends are stateless HTTP clients;
// there is nothing to tear down beyond the flag.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return service.ErrClientClosed
	}
	c.logger.Info("intenthub client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Config returns the process configuration.
func (c *Client) Config() config.AppConfig {
	return c.cfg
}

// Components returns the swappable backend bundle.
func (c *Client) Components() *service.Components {
	return c.comps
}

// PredictKey returns the current predict-only auth key, empty when
// unset.
func (c *Client) PredictKey() string {
	return c.comps.Runtime().PredictAuthKey()
}

// Reindex runs one synchronizer pass.
func (c *Client) Reindex(ctx context.Context, forceFull bool) (service.SyncResult, error) {
	mode := service.SyncIncremental
	if forceFull {
		mode = service.SyncForcedFull
	}
	return c.Sync.Sync(ctx, mode)
}

// Health reports component readiness.
type Health struct {
	vectorIndex bool
	embedder    bool
	routesCount int
}

// VectorIndex reports whether the vector index answered a probe.
func (h Health) VectorIndex() bool { return h.vectorIndex }

// Embedder reports whether an embedding credential is configured. The
// remote endpoint is not probed.
func (h Health) Embedder() bool { return h.embedder }

// RoutesCount returns the number of stored routes.
func (h Health) RoutesCount() int { return h.routesCount }

// Health probes the vector index and reports readiness flags.
func (c *Client) Health(ctx context.Context) Health {
	_, err := c.comps.Index().Count(ctx, index.Filter{})
	return Health{
		vectorIndex: err == nil,
		embedder:    c.comps.Runtime().HuggingFaceToken() != "",
		routesCount: len(c.store.All()),
	}
}

// Rebind rebuilds the backend clients from a freshly resolved runtime
// configuration and swaps them into the component bundle. It reports
// whether the embedding dimension changed so the caller can force a
// full reindex. Pinned backends are kept as-is.
func (c *Client) Rebind(ctx context.Context, rt config.Runtime) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.comps.Runtime()

	var newIdx index.VectorIndex
	if !c.indexPinned && qdrantChanged(old, rt) {
		newIdx = buildQdrantIndex(rt, c.logger)
	}

	var newEmbedder index.Embedder
	dimensionChanged := false
	if !c.embedderPinned && embeddingChanged(old, rt) {
		newEmbedder = buildEmbedder(rt)

		newDim, err := newEmbedder.Dim(ctx)
		if err != nil {
			return false, fmt.Errorf("probe embedding dimension: %w", err)
		}
		oldDim, err := c.comps.Embedder().Dim(ctx)
		// An unreachable old backend cannot be compared; resync fully.
		dimensionChanged = err != nil || oldDim != newDim
	}

	chat, err := buildChat(rt)
	if err != nil {
		return false, err
	}

	c.comps.Rebind(newIdx, newEmbedder, chat, rt)
	c.logger.Info("backends rebound",
		slog.Bool("index_rebuilt", newIdx != nil),
		slog.Bool("embedder_rebuilt", newEmbedder != nil),
		slog.Bool("dimension_changed", dimensionChanged),
	)
	return dimensionChanged, nil
}

func qdrantChanged(old, next config.Runtime) bool {
	return old.QdrantURL() != next.QdrantURL() ||
		old.QdrantAPIKey() != next.QdrantAPIKey() ||
		old.QdrantCollection() != next.QdrantCollection()
}

func embeddingChanged(old, next config.Runtime) bool {
	return old.EmbeddingEndpointModel() != next.EmbeddingEndpointModel() ||
		old.HuggingFaceToken() != next.HuggingFaceToken() ||
		old.BatchSize() != next.BatchSize()
}

func buildQdrantIndex(rt config.Runtime, logger *slog.Logger) index.VectorIndex {
	return qdrant.NewClient(rt.QdrantURL(), rt.QdrantAPIKey(), rt.QdrantCollection(),
		qdrant.WithLogger(logger))
}

func buildEmbedder(rt config.Runtime) index.Embedder {
	client := provider.NewOpenAIClient(provider.Config{
		APIKey:         rt.HuggingFaceToken(),
		BaseURL:        rt.EmbeddingBaseURL(),
		EmbeddingModel: rt.EmbeddingEndpointModel(),
	})
	return provider.NewUnitEmbedder(client, rt.BatchSize())
}

// buildChat builds the LLM chat client, nil when no provider is
// configured.
func buildChat(rt config.Runtime) (service.ChatClient, error) {
	if !rt.LLMConfigured() {
		return nil, nil
	}
	client, err := provider.NewLLMClient(provider.LLMVariant{
		Provider:    rt.LLMProvider(),
		BaseURL:     rt.LLMBaseURL(),
		Model:       rt.LLMModel(),
		APIKey:      rt.LLMAPIKey(),
		Temperature: rt.LLMTemperature(),
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func openLocalIndex(dataDir string, logger *slog.Logger) (index.VectorIndex, error) {
	db, err := persistence.OpenSQLite(filepath.Join(dataDir, "vectors.db"))
	if err != nil {
		return nil, err
	}
	return persistence.NewSQLiteIndex(db, logger)
}
