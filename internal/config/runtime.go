package config

import (
	"os"
	"strconv"
)

// Built-in defaults for the runtime-adjustable keys.
const (
	DefaultQdrantURL        = "http://localhost:6333"
	DefaultQdrantCollection = "intent_hub_routes"

	DefaultEmbeddingModel   = "Qwen/Qwen3-Embedding-0.6B"
	DefaultEmbeddingBaseURL = "https://router.huggingface.co/v1"

	DefaultLLMTemperature = 0.7

	DefaultRegionThreshold   = 0.85
	DefaultInstanceThreshold = 0.92

	DefaultBatchSize = 32

	DefaultRouteID   = 0
	DefaultRouteName = "none"
)

// DefaultGenerationPrompt is the built-in template for utterance
// generation. Placeholders are substituted by the advisor.
const DefaultGenerationPrompt = `You are helping to expand an intent route for a semantic router.

Route name: {name}
Route description: {description}

Reference utterances:
{reference_utterances}

Generate {count} new utterances that a user might say to trigger this route.
{format_instructions}`

// DefaultRepairPrompt is the built-in template for overlap repair
// suggestions.
const DefaultRepairPrompt = `Two intent routes in a semantic router overlap and confuse the classifier.

Route A: {name_a}
Description: {desc_a}
Utterances:
{utterances_a}

Route B: {name_b}
Description: {desc_b}

Conflicting utterance pairs:
{conflicts}

Rewrite route A's utterances so they no longer collide with route B.
Respond with a JSON object with keys "new_utterances", "negative_samples",
"conflicting_utterances" and "rationalization".`

// Runtime is the resolved view of the runtime-adjustable configuration.
// Each field is resolved as environment variable > settings file >
// built-in default at construction; callers re-resolve after a settings
// update.
type Runtime struct {
	qdrantURL        string
	qdrantAPIKey     string
	qdrantCollection string

	embeddingModel      string
	embeddingDevice     string
	huggingFaceToken    string
	huggingFaceProvider string

	llmProvider    string
	llmAPIKey      string
	llmBaseURL     string
	llmModel       string
	llmTemperature float64

	generationPrompt string
	repairPrompt     string

	regionThreshold   float64
	instanceThreshold float64

	batchSize         int
	fallbackRouteID   int
	fallbackRouteName string
	predictAuthKey    string
}

// ResolveRuntime builds a Runtime from the current environment and the
// given settings overlay. A nil overlay resolves env > default only.
func ResolveRuntime(s *Settings) Runtime {
	return Runtime{
		qdrantURL:        resolve(s, KeyQdrantURL, DefaultQdrantURL),
		qdrantAPIKey:     resolve(s, KeyQdrantAPIKey, ""),
		qdrantCollection: resolve(s, KeyQdrantCollection, DefaultQdrantCollection),

		embeddingModel:      resolve(s, KeyEmbeddingModel, DefaultEmbeddingModel),
		embeddingDevice:     resolve(s, KeyEmbeddingDevice, ""),
		huggingFaceToken:    resolve(s, KeyHuggingFaceToken, ""),
		huggingFaceProvider: resolve(s, KeyHuggingFaceProvider, ""),

		llmProvider:    resolve(s, KeyLLMProvider, ""),
		llmAPIKey:      resolve(s, KeyLLMAPIKey, ""),
		llmBaseURL:     resolve(s, KeyLLMBaseURL, ""),
		llmModel:       resolve(s, KeyLLMModel, ""),
		llmTemperature: resolveFloat(s, KeyLLMTemperature, DefaultLLMTemperature),

		generationPrompt: resolve(s, KeyGenerationPrompt, DefaultGenerationPrompt),
		repairPrompt:     resolve(s, KeyRepairPrompt, DefaultRepairPrompt),

		regionThreshold:   resolveFloat(s, KeyRegionThreshold, DefaultRegionThreshold),
		instanceThreshold: resolveFloat(s, KeyInstanceThreshold, DefaultInstanceThreshold),

		batchSize:         resolveInt(s, KeyBatchSize, DefaultBatchSize),
		fallbackRouteID:   resolveInt(s, KeyDefaultRouteID, DefaultRouteID),
		fallbackRouteName: resolve(s, KeyDefaultRouteName, DefaultRouteName),
		predictAuthKey:    resolve(s, KeyPredictAuthKey, ""),
	}
}

// QdrantURL returns the Qdrant base URL.
func (r Runtime) QdrantURL() string { return r.qdrantURL }

// QdrantAPIKey returns the Qdrant API key, empty when unauthenticated.
func (r Runtime) QdrantAPIKey() string { return r.qdrantAPIKey }

// QdrantCollection returns the Qdrant collection name.
func (r Runtime) QdrantCollection() string { return r.qdrantCollection }

// EmbeddingModel returns the embedding model identifier.
func (r Runtime) EmbeddingModel() string { return r.embeddingModel }

// EmbeddingDevice returns the requested embedding device hint. It is
// recognized for compatibility with local deployments; the hosted
// embedding endpoint ignores it.
func (r Runtime) EmbeddingDevice() string { return r.embeddingDevice }

// HuggingFaceToken returns the Hugging Face access token.
func (r Runtime) HuggingFaceToken() string { return r.huggingFaceToken }

// HuggingFaceProvider returns the inference provider routed through the
// Hugging Face endpoint, empty for automatic selection.
func (r Runtime) HuggingFaceProvider() string { return r.huggingFaceProvider }

// EmbeddingBaseURL returns the OpenAI-compatible embedding endpoint.
func (r Runtime) EmbeddingBaseURL() string { return DefaultEmbeddingBaseURL }

// EmbeddingEndpointModel returns the model string sent to the embedding
// endpoint, with the provider suffix when one is pinned.
func (r Runtime) EmbeddingEndpointModel() string {
	if r.huggingFaceProvider == "" {
		return r.embeddingModel
	}
	return r.embeddingModel + ":" + r.huggingFaceProvider
}

// LLMProvider returns the configured LLM provider name.
func (r Runtime) LLMProvider() string { return r.llmProvider }

// LLMAPIKey returns the LLM API key.
func (r Runtime) LLMAPIKey() string { return r.llmAPIKey }

// LLMBaseURL returns the LLM base URL override, empty for the provider
// default.
func (r Runtime) LLMBaseURL() string { return r.llmBaseURL }

// LLMModel returns the LLM model override, empty for the provider default.
func (r Runtime) LLMModel() string { return r.llmModel }

// LLMTemperature returns the sampling temperature.
func (r Runtime) LLMTemperature() float64 { return r.llmTemperature }

// LLMConfigured reports whether an LLM provider is usable.
func (r Runtime) LLMConfigured() bool {
	return r.llmProvider != "" && r.llmAPIKey != ""
}

// GenerationPrompt returns the utterance-generation prompt template.
func (r Runtime) GenerationPrompt() string { return r.generationPrompt }

// RepairPrompt returns the overlap-repair prompt template.
func (r Runtime) RepairPrompt() string { return r.repairPrompt }

// RegionThreshold returns the significant region-overlap threshold.
func (r Runtime) RegionThreshold() float64 { return r.regionThreshold }

// InstanceThreshold returns the ambiguous instance-conflict threshold.
func (r Runtime) InstanceThreshold() float64 { return r.instanceThreshold }

// BatchSize returns the embedding sync batch size.
func (r Runtime) BatchSize() int { return r.batchSize }

// FallbackRouteID returns the id returned when no route matches.
func (r Runtime) FallbackRouteID() int { return r.fallbackRouteID }

// FallbackRouteName returns the name returned when no route matches.
func (r Runtime) FallbackRouteName() string { return r.fallbackRouteName }

// PredictAuthKey returns the predict-only auth key, empty when unset.
func (r Runtime) PredictAuthKey() string { return r.predictAuthKey }

// defaultValues maps each recognized key to its built-in default as a
// string. Keys without a default resolve to the empty string.
var defaultValues = map[string]string{
	KeyQdrantURL:         DefaultQdrantURL,
	KeyQdrantCollection:  DefaultQdrantCollection,
	KeyEmbeddingModel:    DefaultEmbeddingModel,
	KeyLLMTemperature:    "0.7",
	KeyGenerationPrompt:  DefaultGenerationPrompt,
	KeyRepairPrompt:      DefaultRepairPrompt,
	KeyRegionThreshold:   "0.85",
	KeyInstanceThreshold: "0.92",
	KeyBatchSize:         "32",
	KeyDefaultRouteID:    "0",
	KeyDefaultRouteName:  DefaultRouteName,
}

// ResolveEffective returns the effective string value of every
// recognized key under the precedence env > settings file > default,
// masking secrets.
func ResolveEffective(s *Settings) map[string]string {
	out := make(map[string]string, len(RecognizedKeys))
	for _, key := range RecognizedKeys {
		v := resolve(s, key, defaultValues[key])
		if v != "" && IsSecretKey(key) {
			v = "******"
		}
		out[key] = v
	}
	return out
}

// resolve applies the precedence env > settings file > default.
func resolve(s *Settings, key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if s != nil {
		if v, ok := s.Get(key); ok && v != "" {
			return v
		}
	}
	return fallback
}

func resolveFloat(s *Settings, key string, fallback float64) float64 {
	raw := resolve(s, key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func resolveInt(s *Settings, key string, fallback int) int {
	raw := resolve(s, key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
