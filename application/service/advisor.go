package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/free4inno/intenthub/domain/route"
	"github.com/free4inno/intenthub/infrastructure/provider"
)

// Prompt rendering limits.
const (
	maxPromptUtterances = 10
	maxPromptConflicts  = 5
)

// formatInstructions tells the model the exact output shape for
// utterance generation.
const formatInstructions = "Respond with a JSON array of strings and nothing else."

// RepairSuggestion is the advisor's proposal for untangling two
// overlapping routes.
type RepairSuggestion struct {
	newUtterances         []string
	negativeSamples       []string
	conflictingUtterances []string
	rationalization       string
}

// NewUtterances returns the proposed replacement utterances.
func (s RepairSuggestion) NewUtterances() []string {
	out := make([]string, len(s.newUtterances))
	copy(out, s.newUtterances)
	return out
}

// NegativeSamples returns proposed counter-examples.
func (s RepairSuggestion) NegativeSamples() []string {
	out := make([]string, len(s.negativeSamples))
	copy(out, s.negativeSamples)
	return out
}

// ConflictingUtterances returns the utterances the model judged to be the
// source of the overlap.
func (s RepairSuggestion) ConflictingUtterances() []string {
	out := make([]string, len(s.conflictingUtterances))
	copy(out, s.conflictingUtterances)
	return out
}

// Rationalization returns the model's explanation.
func (s RepairSuggestion) Rationalization() string { return s.rationalization }

// AdvisorService drives the LLM-backed flows: utterance generation and
// overlap repair. LLM failures never block route mutations; callers
// surface them to the user and move on.
type AdvisorService struct {
	comps  *Components
	logger *slog.Logger
}

// NewAdvisorService creates an AdvisorService.
func NewAdvisorService(comps *Components, logger *slog.Logger) *AdvisorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisorService{comps: comps, logger: logger}
}

// GenerateUtterances asks the LLM for count new utterances for a route.
// Proposals already present in the reference set are dropped
// (case-insensitive, trimmed) and the result is capped at count.
func (a *AdvisorService) GenerateUtterances(ctx context.Context, name, description string, reference []string, count int) ([]string, error) {
	if count <= 0 {
		return nil, Validation("count must be positive")
	}
	chat := a.comps.Chat()
	if chat == nil {
		return nil, Validation("no LLM provider configured")
	}

	rt := a.comps.Runtime()
	prompt := renderTemplate(rt.GenerationPrompt(), map[string]string{
		"name":                 name,
		"description":          description,
		"reference_utterances": bulletList(reference),
		"count":                fmt.Sprintf("%d", count),
		"format_instructions":  formatInstructions,
	})

	content, err := a.complete(ctx, chat, rt.LLMTemperature(), prompt)
	if err != nil {
		return nil, err
	}

	var proposals []string
	if err := json.Unmarshal([]byte(extractJSON(content, '[', ']')), &proposals); err != nil {
		return nil, WrapError(KindBackend, "llm returned malformed utterance list", err)
	}

	seen := map[string]bool{}
	for _, u := range reference {
		seen[normalizeUtterance(u)] = true
	}
	var out []string
	for _, u := range proposals {
		u = strings.TrimSpace(u)
		key := normalizeUtterance(u)
		if u == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
		if len(out) == count {
			break
		}
	}

	a.logger.InfoContext(ctx, "generated utterances",
		slog.String("route_name", name),
		slog.Int("requested", count),
		slog.Int("accepted", len(out)),
	)
	return out, nil
}

// SuggestRepair asks the LLM how to rewrite routeA's utterances so they
// stop colliding with routeB.
func (a *AdvisorService) SuggestRepair(ctx context.Context, routeA, routeB route.Route, conflicts []InstanceConflict) (RepairSuggestion, error) {
	chat := a.comps.Chat()
	if chat == nil {
		return RepairSuggestion{}, Validation("no LLM provider configured")
	}

	rt := a.comps.Runtime()
	prompt := renderTemplate(rt.RepairPrompt(), map[string]string{
		"name_a":       routeA.Name(),
		"desc_a":       routeA.Description(),
		"utterances_a": bulletList(head(routeA.Utterances(), maxPromptUtterances)),
		"name_b":       routeB.Name(),
		"desc_b":       routeB.Description(),
		"conflicts":    conflictList(head(conflicts, maxPromptConflicts)),
	})

	content, err := a.complete(ctx, chat, rt.LLMTemperature(), prompt)
	if err != nil {
		return RepairSuggestion{}, err
	}

	var parsed struct {
		NewUtterances         []string `json:"new_utterances"`
		NegativeSamples       []string `json:"negative_samples"`
		ConflictingUtterances []string `json:"conflicting_utterances"`
		Rationalization       string   `json:"rationalization"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content, '{', '}')), &parsed); err != nil {
		return RepairSuggestion{}, WrapError(KindBackend, "llm returned malformed repair suggestion", err)
	}
	if len(parsed.NewUtterances) == 0 {
		return RepairSuggestion{}, NewError(KindBackend, "llm suggested no utterances")
	}

	return RepairSuggestion{
		newUtterances:         parsed.NewUtterances,
		negativeSamples:       parsed.NegativeSamples,
		conflictingUtterances: parsed.ConflictingUtterances,
		rationalization:       parsed.Rationalization,
	}, nil
}

func (a *AdvisorService) complete(ctx context.Context, chat ChatClient, temperature float64, prompt string) (string, error) {
	resp, err := chat.ChatCompletion(ctx, provider.NewChatRequest([]provider.ChatMessage{
		provider.NewChatMessage("user", prompt),
	}, temperature, 0))
	if err != nil {
		return "", Backend("llm", err)
	}
	content := strings.TrimSpace(resp.Content())
	if content == "" {
		return "", NewError(KindBackend, "llm returned an empty response")
	}
	return content, nil
}

// renderTemplate substitutes {key} placeholders. Unknown placeholders are
// left intact so a broken custom prompt stays visible.
func renderTemplate(tmpl string, vars map[string]string) string {
	out := tmpl
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{"+key+"}", val)
	}
	return out
}

// extractJSON returns the first balanced open..closing region, tolerating
// markdown fences and prose around the payload.
func extractJSON(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return s
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

func normalizeUtterance(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return strings.TrimRight(b.String(), "\n")
}

func conflictList(conflicts []InstanceConflict) string {
	var b strings.Builder
	for _, c := range conflicts {
		fmt.Fprintf(&b, "- %q vs %q (similarity %.2f)\n", c.UtteranceA(), c.UtteranceB(), c.Score())
	}
	return strings.TrimRight(b.String(), "\n")
}

func head[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
