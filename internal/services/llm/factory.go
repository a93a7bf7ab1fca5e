package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/referolabs/refero/internal/common"
	"github.com/referolabs/refero/internal/interfaces"
	"github.com/referolabs/refero/internal/models"
)

// Factory builds provider clients for individual requests. Credentials
// supplied in the request take precedence over configured ones; the
// environment is never consulted here.
type Factory struct {
	config *common.Config
	logger arbor.ILogger
}

// NewFactory creates a client factory
func NewFactory(config *common.Config, logger arbor.ILogger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// DetectProvider infers the provider from a model name prefix.
// Returns an empty string when the model name is not recognizable.
func DetectProvider(model string) common.LLMProvider {
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gpt-"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "chatgpt"):
		return common.LLMProviderOpenAI
	case strings.HasPrefix(lower, "claude"):
		return common.LLMProviderClaude
	case strings.HasPrefix(lower, "gemini"):
		return common.LLMProviderGemini
	default:
		return ""
	}
}

// ClientFor builds a client for the request's model settings.
// Resolution order: explicit provider, model name prefix, configured
// default. Returns *models.ConfigurationError when the resolved
// provider has no usable credentials.
func (f *Factory) ClientFor(ctx context.Context, mc models.ModelConfig) (interfaces.LLMClient, error) {
	provider := f.resolveProvider(mc)
	timeout := f.config.LLMTimeout()
	retry := NewDefaultRetryConfig(f.config.LLM.MaxRetries)

	switch provider {
	case "azure":
		key := firstNonEmpty(mc.AzureKey, f.config.OpenAI.AzureKey)
		base := firstNonEmpty(mc.AzureBase, f.config.OpenAI.AzureBase)
		if key == "" || base == "" {
			return nil, &models.ConfigurationError{Reason: "Azure OpenAI requires both azure_key and azure_base"}
		}
		return NewOpenAIClient(key, base, firstNonEmpty(mc.Model, f.config.OpenAI.Model), f.temperature(mc, f.config.OpenAI.Temperature), timeout, parseInterval(f.config.OpenAI.RateLimit, time.Second), retry, f.logger)

	case string(common.LLMProviderOpenAI):
		key := firstNonEmpty(mc.OpenAIKey, f.config.OpenAI.APIKey)
		if key == "" {
			return nil, &models.ConfigurationError{Reason: "no OpenAI API key provided (openai_key in the request or openai.api_key in config)"}
		}
		return NewOpenAIClient(key, "", firstNonEmpty(mc.Model, f.config.OpenAI.Model), f.temperature(mc, f.config.OpenAI.Temperature), timeout, parseInterval(f.config.OpenAI.RateLimit, time.Second), retry, f.logger)

	case string(common.LLMProviderClaude):
		key := firstNonEmpty(mc.AnthropicKey, f.config.Claude.APIKey)
		if key == "" {
			return nil, &models.ConfigurationError{Reason: "no Anthropic API key provided (anthropic_key in the request or claude.api_key in config)"}
		}
		return NewClaudeClient(key, firstNonEmpty(mc.Model, f.config.Claude.Model), f.config.Claude.MaxTokens, f.temperature(mc, f.config.Claude.Temperature), timeout, parseInterval(f.config.Claude.RateLimit, time.Second), retry, f.logger)

	case string(common.LLMProviderGemini):
		key := firstNonEmpty(mc.GeminiKey, f.config.Gemini.APIKey)
		if key == "" {
			return nil, &models.ConfigurationError{Reason: "no Gemini API key provided (gemini_key in the request or gemini.api_key in config)"}
		}
		return NewGeminiClient(ctx, key, firstNonEmpty(mc.Model, f.config.Gemini.Model), f.temperature(mc, f.config.Gemini.Temperature), timeout, parseInterval(f.config.Gemini.RateLimit, 4*time.Second), retry, f.logger)

	default:
		return nil, &models.ConfigurationError{Reason: "unknown LLM provider '" + provider + "'"}
	}
}

func (f *Factory) resolveProvider(mc models.ModelConfig) string {
	if mc.Provider != "" {
		return strings.ToLower(mc.Provider)
	}
	// Azure credentials without an explicit provider mean Azure
	if mc.AzureKey != "" && mc.AzureBase != "" {
		return "azure"
	}
	if detected := DetectProvider(mc.Model); detected != "" {
		return string(detected)
	}
	// Per-provider keys in the request disambiguate when no model is named
	switch {
	case mc.OpenAIKey != "":
		return string(common.LLMProviderOpenAI)
	case mc.AnthropicKey != "":
		return string(common.LLMProviderClaude)
	case mc.GeminiKey != "":
		return string(common.LLMProviderGemini)
	}
	return string(f.config.LLM.DefaultProvider)
}

func (f *Factory) temperature(mc models.ModelConfig, fallback float32) float32 {
	if mc.Temperature > 0 {
		return mc.Temperature
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseInterval(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}
