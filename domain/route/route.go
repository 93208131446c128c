// Package route defines the authoritative intent-route model.
package route

import (
	"fmt"
	"strings"
)

// Default acceptance thresholds applied when a route omits them.
const (
	DefaultScoreThreshold    = 0.75
	DefaultNegativeThreshold = 0.95
)

// Fallback identity returned when no stored route is admitted.
// The fallback is a value, never a stored row.
const (
	FallbackID   = 0
	FallbackName = "none"
)

// Route is a named intent class with example utterances and optional
// negative counter-examples. The zero id is reserved for the fallback
// and is only valid transiently, when requesting auto-assignment.
type Route struct {
	id                int
	name              string
	description       string
	utterances        []string
	negativeSamples   []string
	scoreThreshold    float64
	negativeThreshold float64
}

// New validates and builds a Route. Utterances and negative samples are
// trimmed, deduplicated order-preserving, and must be disjoint.
func New(id int, name, description string, utterances, negativeSamples []string, scoreThreshold, negativeThreshold float64) (Route, error) {
	if id < 0 {
		return Route{}, NewValidationError(fmt.Sprintf("route id must be non-negative, got %d", id))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Route{}, NewValidationError("route name must not be empty")
	}

	cleanUtterances, err := cleanTexts(utterances, "utterance")
	if err != nil {
		return Route{}, err
	}
	if len(cleanUtterances) == 0 {
		return Route{}, NewValidationError("route must have at least one utterance")
	}

	cleanNegatives, err := cleanTexts(negativeSamples, "negative sample")
	if err != nil {
		return Route{}, err
	}

	seen := make(map[string]struct{}, len(cleanUtterances))
	for _, u := range cleanUtterances {
		seen[u] = struct{}{}
	}
	for _, n := range cleanNegatives {
		if _, dup := seen[n]; dup {
			return Route{}, NewValidationError(fmt.Sprintf("negative sample %q is also an utterance", n))
		}
	}

	if scoreThreshold == 0 {
		scoreThreshold = DefaultScoreThreshold
	}
	if scoreThreshold < 0 || scoreThreshold > 1 {
		return Route{}, NewValidationError(fmt.Sprintf("score_threshold must be in [0, 1], got %g", scoreThreshold))
	}
	if negativeThreshold == 0 {
		negativeThreshold = DefaultNegativeThreshold
	}
	if negativeThreshold < 0.8 || negativeThreshold > 1 {
		return Route{}, NewValidationError(fmt.Sprintf("negative_threshold must be in [0.8, 1], got %g", negativeThreshold))
	}

	return Route{
		id:                id,
		name:              name,
		description:       strings.TrimSpace(description),
		utterances:        cleanUtterances,
		negativeSamples:   cleanNegatives,
		scoreThreshold:    scoreThreshold,
		negativeThreshold: negativeThreshold,
	}, nil
}

func cleanTexts(texts []string, label string) ([]string, error) {
	out := make([]string, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, NewValidationError(fmt.Sprintf("empty %s is not allowed", label))
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// ID returns the route id.
func (r Route) ID() int { return r.id }

// Name returns the human label.
func (r Route) Name() string { return r.name }

// Description returns the free-text description.
func (r Route) Description() string { return r.description }

// Utterances returns a copy of the example utterances, order preserved.
func (r Route) Utterances() []string {
	out := make([]string, len(r.utterances))
	copy(out, r.utterances)
	return out
}

// NegativeSamples returns a copy of the negative counter-examples.
func (r Route) NegativeSamples() []string {
	out := make([]string, len(r.negativeSamples))
	copy(out, r.negativeSamples)
	return out
}

// ScoreThreshold returns the minimum similarity for admission.
func (r Route) ScoreThreshold() float64 { return r.scoreThreshold }

// NegativeThreshold returns the veto similarity for negative samples.
func (r Route) NegativeThreshold() float64 { return r.negativeThreshold }

// WithID returns a copy of the route with the given id.
func (r Route) WithID(id int) Route {
	r.id = id
	return r
}

// WithUtterances returns a validated copy with the utterance list replaced.
// Negative samples, thresholds, and identity are untouched.
func (r Route) WithUtterances(utterances []string) (Route, error) {
	return New(r.id, r.name, r.description, utterances, r.negativeSamples, r.scoreThreshold, r.negativeThreshold)
}

// WithNegativeSamples returns a validated copy with the negative list
// replaced. A zero threshold keeps the current one.
func (r Route) WithNegativeSamples(samples []string, threshold float64) (Route, error) {
	if threshold == 0 {
		threshold = r.negativeThreshold
	}
	return New(r.id, r.name, r.description, r.utterances, samples, r.scoreThreshold, threshold)
}

// Matches reports whether the query is a literal substring of the name,
// description, or any utterance. Case-sensitive.
func (r Route) Matches(query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(r.name, query) || strings.Contains(r.description, query) {
		return true
	}
	for _, u := range r.utterances {
		if strings.Contains(u, query) {
			return true
		}
	}
	return false
}
