package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free4inno/intenthub"
	"github.com/free4inno/intenthub/infrastructure/api/v1/dto"
	infraindex "github.com/free4inno/intenthub/infrastructure/index"
	"github.com/free4inno/intenthub/internal/config"
)

// hashEmbedder returns one deterministic unit vector per text, so equal
// texts score 1.0 and distinct texts score near zero.
type hashEmbedder struct {
	dim int
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *hashEmbedder) Dim(_ context.Context) (int, error) { return e.dim, nil }

func (e *hashEmbedder) vector(text string) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()

	v := make([]float64, e.dim)
	var norm float64
	for i := range v {
		state = state*6364136223846793005 + 1442695040888963407
		v[i] = float64(int64(state>>11))/float64(1<<52) - 1
		norm += v[i] * v[i]
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] /= norm
	}
	return v
}

func newTestHandler(t *testing.T, opts ...config.AppConfigOption) http.Handler {
	t.Helper()

	base := []config.AppConfigOption{
		config.WithDataDir(t.TempDir()),
		config.WithAuthEnabled(false),
	}
	cfg := config.NewAppConfigWithOptions(append(base, opts...)...)

	client, err := intenthub.New(
		intenthub.WithConfig(cfg),
		intenthub.WithVectorIndex(infraindex.NewMemory()),
		intenthub.WithEmbedder(&hashEmbedder{dim: 32}),
		intenthub.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewAPIServer(client).Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	health := decode[dto.HealthResponse](t, w)
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.VectorIndex)
	assert.Equal(t, 0, health.RoutesCount)
}

func TestCreateAndPredict(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPost, "/routes", dto.RouteRequest{
		Name:           "weather",
		Utterances:     []string{"how is the weather in Beijing", "tomorrow's forecast"},
		ScoreThreshold: 0.6,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode[dto.RouteResponse](t, w)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "weather", created.Name)

	w = doJSON(t, handler, http.MethodPost, "/predict", dto.PredictRequest{
		Text: "how is the weather in Beijing",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ranked := decode[[]dto.PredictionResponse](t, w)
	require.NotEmpty(t, ranked)
	assert.Equal(t, "weather", ranked[0].Name)
	require.NotNil(t, ranked[0].Score)
	assert.GreaterOrEqual(t, *ranked[0].Score, 0.6)
}

func TestPredictFallback(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPost, "/predict", dto.PredictRequest{
		Text: "convert 10 USD to EUR",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	ranked := decode[[]dto.PredictionResponse](t, w)
	require.Len(t, ranked, 1)
	assert.Equal(t, 0, ranked[0].ID)
	assert.Equal(t, "none", ranked[0].Name)
	assert.Nil(t, ranked[0].Score)
}

func TestPredictEmptyText(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPost, "/predict", dto.PredictRequest{Text: "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateMissingRoute(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPut, "/routes/99", dto.RouteRequest{
		Name:       "ghost",
		Utterances: []string{"anything"},
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRouteAndReindex(t *testing.T) {
	handler := newTestHandler(t)

	for _, name := range []string{"alpha", "beta"} {
		w := doJSON(t, handler, http.MethodPost, "/routes", dto.RouteRequest{
			Name:       name,
			Utterances: []string{name + " one", name + " two"},
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, handler, http.MethodDelete, "/routes/1", nil, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/reindex", dto.ReindexRequest{}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[dto.ReindexResponse](t, w)
	assert.Equal(t, 1, result.RoutesCount)
	assert.Equal(t, 2, result.TotalPoints)
	assert.Equal(t, "incremental", result.Mode)
}

func TestRouteSearch(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPost, "/routes", dto.RouteRequest{
		Name:       "billing",
		Utterances: []string{"show my invoice"},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/routes/search?q=invoice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.RouteListResponse](t, w)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "billing", list.Routes[0].Name)

	w = doJSON(t, handler, http.MethodGet, "/routes/search?q=nomatch", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[dto.RouteListResponse](t, w).Total)
}

func TestSettingsRoundTrip(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodGet, "/settings", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[dto.SettingsResponse](t, w)
	assert.Equal(t, "32", view.Settings[config.KeyBatchSize])

	w = doJSON(t, handler, http.MethodPost, "/settings", map[string]string{
		config.KeyBatchSize: "16",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[dto.SettingsResponse](t, w)
	assert.Equal(t, "16", view.Settings[config.KeyBatchSize])

	w = doJSON(t, handler, http.MethodPost, "/settings", map[string]string{
		"NOT_A_KEY": "x",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthProtectsAdminEndpoints(t *testing.T) {
	handler := newTestHandler(t,
		config.WithAuthEnabled(true),
		config.WithAPIKeys([]string{"static-key"}),
	)

	w := doJSON(t, handler, http.MethodGet, "/routes", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/routes", nil, map[string]string{"X-API-KEY": "static-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays open.
	w = doJSON(t, handler, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginIssuesUsableKey(t *testing.T) {
	handler := newTestHandler(t, config.WithAuthEnabled(true))

	w := doJSON(t, handler, http.MethodPost, "/auth/login", dto.LoginRequest{
		Username: config.DefaultUsername,
		Password: config.DefaultPassword,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	login := decode[dto.LoginResponse](t, w)
	require.NotEmpty(t, login.APIKey)

	w = doJSON(t, handler, http.MethodGet, "/routes", nil, map[string]string{
		"Authorization": "Bearer " + login.APIKey,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/auth/login", dto.LoginRequest{
		Username: config.DefaultUsername,
		Password: "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPredictAcceptsAdminKeyWhenAuthEnabled(t *testing.T) {
	handler := newTestHandler(t,
		config.WithAuthEnabled(true),
		config.WithAPIKeys([]string{"static-key"}),
	)

	w := doJSON(t, handler, http.MethodPost, "/predict", dto.PredictRequest{Text: "anything"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/predict", dto.PredictRequest{Text: "anything"},
		map[string]string{"X-API-KEY": "static-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorBodyShape(t *testing.T) {
	handler := newTestHandler(t)

	w := doJSON(t, handler, http.MethodPut, "/routes/42", dto.RouteRequest{
		Name:       "ghost",
		Utterances: []string{"x"},
	}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, fmt.Sprintf("route %d not found", 42), body.Error)
}
