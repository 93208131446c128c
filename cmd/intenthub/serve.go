package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/free4inno/intenthub"
	"github.com/free4inno/intenthub/infrastructure/api"
	"github.com/free4inno/intenthub/internal/config"
	"github.com/free4inno/intenthub/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile    string
		host       string
		port       int
		localIndex bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                Server host to bind to (default: 0.0.0.0)
  PORT                Server port to listen on (default: 8080)
  DATA_DIR            Data directory (default: ~/.intenthub)
  LOG_LEVEL           Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT          Log format: pretty, json (default: pretty)
  AUTH_ENABLED        Enforce API authentication (default: true)
  API_KEYS            Comma-separated list of static API keys
  DEFAULT_USERNAME    Dashboard login username (default: admin)
  DEFAULT_PASSWORD    Dashboard login password (default: 123456)

Runtime keys (also adjustable at runtime via POST /settings):
  QDRANT_URL, QDRANT_API_KEY, QDRANT_COLLECTION
  EMBEDDING_MODEL_NAME, EMBEDDING_DEVICE, HUGGINGFACE_ACCESS_TOKEN, HUGGINGFACE_PROVIDER
  LLM_PROVIDER, LLM_API_KEY, LLM_BASE_URL, LLM_MODEL, LLM_TEMPERATURE
  UTTERANCE_GENERATION_PROMPT, AGENT_REPAIR_PROMPT
  REGION_THRESHOLD_SIGNIFICANT, INSTANCE_THRESHOLD_AMBIGUOUS, BATCH_SIZE
  DEFAULT_ROUTE_ID, DEFAULT_ROUTE_NAME, PREDICT_AUTH_KEY`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port, localIndex)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")
	cmd.Flags().BoolVar(&localIndex, "local-index", false, "Store vectors in SQLite instead of Qdrant")

	return cmd
}

func runServe(envFile, host string, port int, localIndex bool) error {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = applyServeOverrides(cfg, host, port)

	logger := log.New(log.Format(cfg.LogFormat()), cfg.LogLevel()).Slog()

	opts := []intenthub.Option{
		intenthub.WithConfig(cfg),
		intenthub.WithLogger(logger),
	}
	if localIndex {
		opts = append(opts, intenthub.WithLocalIndex())
	}

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(context.Background(), slog.LevelInfo, "starting intenthub", attrs...)

	client, err := intenthub.New(opts...)
	if err != nil {
		return fmt.Errorf("create intenthub client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close intenthub client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down server")
		if err := apiServer.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := apiServer.ListenAndServe(cfg.Addr()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
