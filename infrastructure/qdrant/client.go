// Package qdrant implements the vector index against Qdrant's REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/free4inno/intenthub/domain/index"
)

const (
	defaultTimeout = 30 * time.Second
	scrollPageSize = 512

	payloadRouteID           = "route_id"
	payloadRouteName         = "route_name"
	payloadUtterance         = "utterance"
	payloadNegative          = "is_negative"
	payloadNegativeThreshold = "negative_threshold"
)

// Client talks to a Qdrant collection over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option is a functional option for Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(q *Client) { q.httpClient = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(q *Client) { q.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Client) { q.logger = l }
}

// NewClient creates a Client for the given collection.
func NewClient(baseURL, apiKey, collection string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collection returns the collection name the client is bound to.
func (c *Client) Collection() string { return c.collection }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: qdrant request: %w", index.ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %w", index.ErrUnavailable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read qdrant response: %w", index.ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant %s %s: status %d: %s", index.ErrUnavailable, method, path, resp.StatusCode, truncate(string(data), 200))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: decode qdrant response: %w", index.ErrUnavailable, err)
		}
	}
	return nil
}

var errNotFound = fmt.Errorf("qdrant: not found")

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// EnsureReady creates the collection with cosine distance if missing.
func (c *Client) EnsureReady(ctx context.Context, dimension int) error {
	err := c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil, nil)
	if err == nil {
		return nil
	}
	if err != errNotFound {
		return err
	}

	c.logger.Info("creating qdrant collection", "collection", c.collection, "dimension", dimension)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return c.do(ctx, http.MethodPut, "/collections/"+c.collection, body, nil)
}

func payloadToMap(p index.Payload) map[string]any {
	m := map[string]any{
		payloadRouteID:   p.RouteID(),
		payloadRouteName: p.RouteName(),
		payloadUtterance: p.Utterance(),
	}
	if p.Negative() {
		m[payloadNegative] = true
		m[payloadNegativeThreshold] = p.NegativeThreshold()
	}
	return m
}

func payloadFromMap(m map[string]any) index.Payload {
	routeID := 0
	if v, ok := m[payloadRouteID].(float64); ok {
		routeID = int(v)
	}
	routeName, _ := m[payloadRouteName].(string)
	utterance, _ := m[payloadUtterance].(string)
	if negative, _ := m[payloadNegative].(bool); negative {
		threshold, _ := m[payloadNegativeThreshold].(float64)
		return index.NewNegativePayload(routeID, routeName, utterance, threshold)
	}
	return index.NewPayload(routeID, routeName, utterance)
}

func filterToJSON(f index.Filter) map[string]any {
	var must, mustNot []map[string]any

	if routeID, ok := f.RouteID(); ok {
		must = append(must, map[string]any{
			"key":   payloadRouteID,
			"match": map[string]any{"value": routeID},
		})
	}
	if negative, ok := f.Negative(); ok {
		cond := map[string]any{
			"key":   payloadNegative,
			"match": map[string]any{"value": true},
		}
		if negative {
			must = append(must, cond)
		} else {
			// Positive points omit the flag entirely, so match the
			// absence of is_negative=true rather than a false value.
			mustNot = append(mustNot, cond)
		}
	}

	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}
	out := map[string]any{}
	if len(must) > 0 {
		out["must"] = must
	}
	if len(mustNot) > 0 {
		out["must_not"] = mustNot
	}
	return out
}

// Upsert writes points and waits for them to be applied.
func (c *Client) Upsert(ctx context.Context, points []index.Point) error {
	if len(points) == 0 {
		return nil
	}

	type qdrantPoint struct {
		ID      string         `json:"id"`
		Vector  []float64      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	qps := make([]qdrantPoint, len(points))
	for i, p := range points {
		qps[i] = qdrantPoint{
			ID:      p.ID(),
			Vector:  p.Vector(),
			Payload: payloadToMap(p.Payload()),
		}
	}

	return c.do(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", c.collection),
		map[string]any{"points": qps}, nil)
}

// DeleteByIDs removes the given points.
func (c *Client) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection),
		map[string]any{"points": ids}, nil)
}

// DeleteByRoute removes every point whose payload carries routeID.
func (c *Client) DeleteByRoute(ctx context.Context, routeID int) error {
	return c.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", c.collection),
		map[string]any{"filter": filterToJSON(index.FilterRoute(routeID))}, nil)
}

// Search returns up to k matches ordered by descending score.
func (c *Client) Search(ctx context.Context, vector []float64, k int, filter index.Filter) ([]index.Match, error) {
	if k <= 0 {
		return []index.Match{}, nil
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := filterToJSON(filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", c.collection), body, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]index.Match, len(resp.Result))
	for i, r := range resp.Result {
		matches[i] = index.NewMatch(r.ID, r.Score, payloadFromMap(r.Payload))
	}
	return matches, nil
}

// Scroll pages through every point matching the filter.
func (c *Client) Scroll(ctx context.Context, filter index.Filter) ([]index.StoredPoint, error) {
	var out []index.StoredPoint
	var offset any

	for {
		body := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if f := filterToJSON(filter); f != nil {
			body["filter"] = f
		}
		if offset != nil {
			body["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					ID      string         `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		err := c.do(ctx, http.MethodPost,
			fmt.Sprintf("/collections/%s/points/scroll", c.collection), body, &resp)
		if err != nil {
			return nil, err
		}

		for _, p := range resp.Result.Points {
			out = append(out, index.NewStoredPoint(p.ID, payloadFromMap(p.Payload)))
		}

		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			return out, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

// IDsByRoute returns the ids of all points belonging to the route.
func (c *Client) IDsByRoute(ctx context.Context, routeID int) ([]string, error) {
	stored, err := c.Scroll(ctx, index.FilterRoute(routeID))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(stored))
	for i, s := range stored {
		ids[i] = s.ID()
	}
	return ids, nil
}

// Count returns the exact number of points matching the filter.
func (c *Client) Count(ctx context.Context, filter index.Filter) (int, error) {
	body := map[string]any{"exact": true}
	if f := filterToJSON(filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", c.collection), body, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

var _ index.VectorIndex = (*Client)(nil)
