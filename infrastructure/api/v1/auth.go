// Package v1 implements the HTTP API surface.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/free4inno/intenthub"
	"github.com/free4inno/intenthub/infrastructure/api/middleware"
	"github.com/free4inno/intenthub/infrastructure/api/v1/dto"
)

// AuthRouter handles the login endpoint.
type AuthRouter struct {
	client *intenthub.Client
	logger *slog.Logger
}

// NewAuthRouter creates an AuthRouter.
func NewAuthRouter(client *intenthub.Client) *AuthRouter {
	return &AuthRouter{client: client, logger: client.Logger()}
}

// Routes returns the chi router for auth endpoints.
func (r *AuthRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/login", r.Login)
	return router
}

// Login handles POST /auth/login.
func (r *AuthRouter) Login(w http.ResponseWriter, req *http.Request) {
	var body dto.LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	key, err := r.client.Auth.Login(body.Username, body.Password)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAuthenticationError("invalid credentials"), r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.LoginResponse{APIKey: key})
}
