package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/free4inno/intenthub"
	apimiddleware "github.com/free4inno/intenthub/infrastructure/api/middleware"
	v1 "github.com/free4inno/intenthub/infrastructure/api/v1"
)

// APIServer provides the HTTP API backed by an intenthub Client.
// Administrative endpoints require a valid API key when auth is enabled;
// /predict accepts the dedicated predict key as well; login and health
// stay open.
type APIServer struct {
	client *intenthub.Client
	server *Server
	router chi.Router
	logger *slog.Logger
}

// NewAPIServer creates an APIServer wired to the given Client.
func NewAPIServer(client *intenthub.Client) *APIServer {
	return &APIServer{
		client: client,
		logger: client.Logger(),
	}
}

// mountRoutes wires all v1 routes on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client
	enabled := c.Config().AuthEnabled()

	authRouter := v1.NewAuthRouter(c)
	predictRouter := v1.NewPredictRouter(c)
	routesRouter := v1.NewRoutesRouter(c)
	diagRouter := v1.NewDiagnosticsRouter(c)
	systemRouter := v1.NewSystemRouter(c)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-KEY"},
		MaxAge:         300,
	}))
	router.Use(apimiddleware.Logging(a.logger))
	router.Use(chimiddleware.Timeout(60 * time.Second))

	// Open endpoints.
	router.Mount("/auth", authRouter.Routes())
	router.Mount("/health", systemRouter.HealthRoutes())

	// The predict surface accepts the predict key or any admin key. The
	// key is read per request so a settings update applies immediately.
	router.Group(func(r chi.Router) {
		r.Use(apimiddleware.PredictAuth(c.Auth, c.PredictKey, enabled, a.logger))
		r.Mount("/predict", predictRouter.Routes())
	})

	// Administrative endpoints.
	router.Group(func(r chi.Router) {
		r.Use(apimiddleware.RequireKey(c.Auth, enabled, a.logger))
		r.Mount("/routes", routesRouter.Routes())
		r.Mount("/reindex", systemRouter.ReindexRoutes())
		r.Mount("/diagnostics", diagRouter.Routes())
		r.Mount("/settings", systemRouter.SettingsRoutes())
	})
}

// Handler returns the fully mounted router.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.router = chi.NewRouter()
		a.mountRoutes(a.router)
	}
	return a.router
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server

	server.Router().Mount("/", a.Handler())
	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
