package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Recognized runtime settings keys. The settings file may only contain
// these; anything else is rejected on update.
const (
	KeyQdrantURL        = "QDRANT_URL"
	KeyQdrantAPIKey     = "QDRANT_API_KEY"
	KeyQdrantCollection = "QDRANT_COLLECTION"

	KeyEmbeddingModel      = "EMBEDDING_MODEL_NAME"
	KeyEmbeddingDevice     = "EMBEDDING_DEVICE"
	KeyHuggingFaceToken    = "HUGGINGFACE_ACCESS_TOKEN"
	KeyHuggingFaceProvider = "HUGGINGFACE_PROVIDER"

	KeyLLMProvider    = "LLM_PROVIDER"
	KeyLLMAPIKey      = "LLM_API_KEY"
	KeyLLMBaseURL     = "LLM_BASE_URL"
	KeyLLMModel       = "LLM_MODEL"
	KeyLLMTemperature = "LLM_TEMPERATURE"

	KeyGenerationPrompt = "UTTERANCE_GENERATION_PROMPT"
	KeyRepairPrompt     = "AGENT_REPAIR_PROMPT"

	KeyRegionThreshold   = "REGION_THRESHOLD_SIGNIFICANT"
	KeyInstanceThreshold = "INSTANCE_THRESHOLD_AMBIGUOUS"

	KeyBatchSize        = "BATCH_SIZE"
	KeyDefaultRouteID   = "DEFAULT_ROUTE_ID"
	KeyDefaultRouteName = "DEFAULT_ROUTE_NAME"
	KeyPredictAuthKey   = "PREDICT_AUTH_KEY"
)

// RecognizedKeys lists every settings key the overlay accepts, in a
// stable order used for file output.
var RecognizedKeys = []string{
	KeyQdrantURL,
	KeyQdrantAPIKey,
	KeyQdrantCollection,
	KeyEmbeddingModel,
	KeyEmbeddingDevice,
	KeyHuggingFaceToken,
	KeyHuggingFaceProvider,
	KeyLLMProvider,
	KeyLLMAPIKey,
	KeyLLMBaseURL,
	KeyLLMModel,
	KeyLLMTemperature,
	KeyGenerationPrompt,
	KeyRepairPrompt,
	KeyRegionThreshold,
	KeyInstanceThreshold,
	KeyBatchSize,
	KeyDefaultRouteID,
	KeyDefaultRouteName,
	KeyPredictAuthKey,
}

// secretKeys are masked in read-back views.
var secretKeys = map[string]bool{
	KeyQdrantAPIKey:     true,
	KeyHuggingFaceToken: true,
	KeyLLMAPIKey:        true,
	KeyPredictAuthKey:   true,
}

// IsRecognizedKey reports whether key is a settings key the overlay accepts.
func IsRecognizedKey(key string) bool {
	for _, k := range RecognizedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// IsSecretKey reports whether a key's value must be masked when exposed.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Settings is the persisted runtime-settings overlay. Values here sit
// between environment variables and built-in defaults in resolution
// order. All methods are safe for concurrent use.
type Settings struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// LoadSettings reads the settings file at path. A missing file yields an
// empty overlay; a corrupt file or an unrecognized key is an error.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	for key := range values {
		if !IsRecognizedKey(key) {
			return nil, fmt.Errorf("settings file %s: unrecognized key %q", path, key)
		}
	}
	s.values = values
	return s, nil
}

// Path returns the settings file path.
func (s *Settings) Path() string { return s.path }

// Get returns the stored value for key and whether it is present.
func (s *Settings) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Values returns a copy of the stored overlay.
func (s *Settings) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Update merges the given values into the overlay and persists the file.
// An empty value removes the key. Unrecognized keys fail the whole update
// and nothing is written.
func (s *Settings) Update(values map[string]string) error {
	for key := range values {
		if !IsRecognizedKey(key) {
			return fmt.Errorf("unrecognized settings key %q", key)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.values)+len(values))
	for k, v := range s.values {
		next[k] = v
	}
	for k, v := range values {
		if v == "" {
			delete(next, k)
			continue
		}
		next[k] = v
	}

	if err := writeSettingsFile(s.path, next); err != nil {
		return err
	}
	s.values = next
	return nil
}

// ExportEnvMirror writes the overlay as KEY=VALUE lines so a restart can
// source the last-saved settings.
func (s *Settings) ExportEnvMirror(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, s.values[k])
	}
	return atomicWrite(path, []byte(b.String()))
}

func writeSettingsFile(path string, values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return atomicWrite(path, append(data, '\n'))
}

// atomicWrite writes via a temp file and rename so readers never observe
// a partial file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
