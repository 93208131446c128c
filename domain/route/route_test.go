package route

import (
	"errors"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	r, err := New(1, "weather", "weather queries",
		[]string{"how is the weather", "tomorrow's forecast"},
		[]string{"book a flight"}, 0.6, 0.85)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if r.ID() != 1 {
		t.Errorf("ID() = %d, want 1", r.ID())
	}
	if r.Name() != "weather" {
		t.Errorf("Name() = %q, want weather", r.Name())
	}
	if len(r.Utterances()) != 2 {
		t.Errorf("Utterances() len = %d, want 2", len(r.Utterances()))
	}
	if r.ScoreThreshold() != 0.6 {
		t.Errorf("ScoreThreshold() = %v, want 0.6", r.ScoreThreshold())
	}
}

func TestNew_Defaults(t *testing.T) {
	r, err := New(1, "weather", "", []string{"how is the weather"}, nil, 0, 0)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if r.ScoreThreshold() != DefaultScoreThreshold {
		t.Errorf("ScoreThreshold() = %v, want %v", r.ScoreThreshold(), DefaultScoreThreshold)
	}
	if r.NegativeThreshold() != DefaultNegativeThreshold {
		t.Errorf("NegativeThreshold() = %v, want %v", r.NegativeThreshold(), DefaultNegativeThreshold)
	}
}

func TestNew_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		id         int
		routeName  string
		utterances []string
		negatives  []string
		score      float64
		negative   float64
	}{
		{"negative id", -1, "x", []string{"a"}, nil, 0.5, 0.9},
		{"empty name", 1, "  ", []string{"a"}, nil, 0.5, 0.9},
		{"no utterances", 1, "x", nil, nil, 0.5, 0.9},
		{"empty utterance", 1, "x", []string{"a", "  "}, nil, 0.5, 0.9},
		{"score above one", 1, "x", []string{"a"}, nil, 1.2, 0.9},
		{"negative threshold too low", 1, "x", []string{"a"}, nil, 0.5, 0.5},
		{"overlap with negatives", 1, "x", []string{"a", "b"}, []string{"b"}, 0.5, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.routeName, "", tt.utterances, tt.negatives, tt.score, tt.negative)
			if err == nil {
				t.Fatal("New() should have failed")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error should match ErrValidation, got %v", err)
			}
		})
	}
}

func TestNew_DeduplicatesPreservingOrder(t *testing.T) {
	r, err := New(1, "x", "", []string{"b", "a", "b", "a"}, nil, 0.5, 0.9)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	got := r.Utterances()
	want := []string{"b", "a"}
	if len(got) != len(want) {
		t.Fatalf("Utterances() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Utterances()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRoute_WithUtterances(t *testing.T) {
	r, err := New(1, "x", "", []string{"a"}, []string{"n"}, 0.5, 0.9)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	updated, err := r.WithUtterances([]string{"c", "d"})
	if err != nil {
		t.Fatalf("WithUtterances() error: %v", err)
	}
	if len(updated.Utterances()) != 2 {
		t.Errorf("Utterances() len = %d, want 2", len(updated.Utterances()))
	}
	if len(updated.NegativeSamples()) != 1 {
		t.Error("WithUtterances must not touch negative samples")
	}

	// Replacing utterances with an existing negative must fail.
	if _, err := r.WithUtterances([]string{"n"}); err == nil {
		t.Error("WithUtterances should reject overlap with negatives")
	}
}

func TestRoute_WithNegativeSamples(t *testing.T) {
	r, err := New(1, "x", "", []string{"a"}, nil, 0.5, 0.9)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	updated, err := r.WithNegativeSamples([]string{"no"}, 0.88)
	if err != nil {
		t.Fatalf("WithNegativeSamples() error: %v", err)
	}
	if updated.NegativeThreshold() != 0.88 {
		t.Errorf("NegativeThreshold() = %v, want 0.88", updated.NegativeThreshold())
	}

	// Zero threshold keeps the current one.
	kept, err := updated.WithNegativeSamples([]string{"other"}, 0)
	if err != nil {
		t.Fatalf("WithNegativeSamples() error: %v", err)
	}
	if kept.NegativeThreshold() != 0.88 {
		t.Errorf("NegativeThreshold() = %v, want 0.88", kept.NegativeThreshold())
	}
}

func TestRoute_Matches(t *testing.T) {
	r, err := New(1, "weather", "forecast intents", []string{"how is the weather in Beijing"}, nil, 0.5, 0.9)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"weather", true},
		{"forecast", true},
		{"Beijing", true},
		{"beijing", false}, // case-sensitive
		{"trains", false},
		{"", true},
	}

	for _, tt := range tests {
		if got := r.Matches(tt.query); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError(7)

	if err.ID() != 7 {
		t.Errorf("ID() = %d, want 7", err.ID())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
}
