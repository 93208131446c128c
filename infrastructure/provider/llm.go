package provider

import (
	"fmt"
	"time"
)

// LLM provider names accepted by the settings surface.
const (
	ProviderDeepSeek   = "deepseek"
	ProviderOpenRouter = "openrouter"
	ProviderDoubao     = "doubao"
	ProviderQwen       = "qwen"
	ProviderGemini     = "gemini"
)

// SupportedProviders lists the accepted LLM provider names.
var SupportedProviders = []string{
	ProviderDeepSeek,
	ProviderOpenRouter,
	ProviderDoubao,
	ProviderQwen,
	ProviderGemini,
}

// providerDefaults carries the per-provider base URL and model applied
// when the variant leaves them empty. Gemini is reached through its
// OpenAI-compatible endpoint.
var providerDefaults = map[string]struct {
	baseURL string
	model   string
}{
	ProviderDeepSeek:   {"https://api.deepseek.com", "deepseek-chat"},
	ProviderOpenRouter: {"https://openrouter.ai/api/v1", "openai/gpt-3.5-turbo"},
	ProviderDoubao:     {"https://ark.cn-beijing.volces.com/api/v3", ""},
	ProviderQwen:       {"https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-turbo"},
	ProviderGemini:     {"https://generativelanguage.googleapis.com/v1beta/openai", "gemini-pro"},
}

// LLMVariant is the tagged provider variant dispatched by NewLLMClient.
type LLMVariant struct {
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

// Normalize applies per-provider defaults and validates the variant.
func (v LLMVariant) Normalize() (LLMVariant, error) {
	defaults, ok := providerDefaults[v.Provider]
	if !ok {
		return LLMVariant{}, fmt.Errorf("unsupported LLM provider %q, supported: %v", v.Provider, SupportedProviders)
	}
	if v.APIKey == "" {
		return LLMVariant{}, fmt.Errorf("provider %s requires an API key", v.Provider)
	}
	if v.BaseURL == "" {
		v.BaseURL = defaults.baseURL
	}
	if v.Model == "" {
		v.Model = defaults.model
	}
	if v.Model == "" {
		return LLMVariant{}, fmt.Errorf("provider %s requires an explicit model", v.Provider)
	}
	if v.Temperature == 0 {
		v.Temperature = 0.7
	}
	if v.Timeout == 0 {
		v.Timeout = 60 * time.Second
	}
	return v, nil
}

// NewLLMClient builds a chat client for the variant. All supported
// providers speak the OpenAI chat protocol, so the dispatch reduces to
// base URL and model selection.
func NewLLMClient(v LLMVariant) (*OpenAIClient, error) {
	v, err := v.Normalize()
	if err != nil {
		return nil, err
	}
	return NewOpenAIClient(Config{
		APIKey:    v.APIKey,
		BaseURL:   v.BaseURL,
		ChatModel: v.Model,
		Timeout:   v.Timeout,
	}), nil
}
