package genai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/compeng-bot/compeng-bot-go/internal/config"
)

// CreateIntentParser builds the parser chain for cfg. Every model of the
// first configured provider comes first, then the next provider's models.
// Returns nil when no provider has an API key.
func CreateIntentParser(ctx context.Context, cfg LLMConfig, metrics MetricsRecorder) (*FallbackIntentParser, error) {
	if !cfg.HasAnyProvider() {
		slog.InfoContext(ctx, "no LLM provider configured for intent parsing")
		return nil, nil //nolint:nilnil // NLU disabled
	}

	var parsers []IntentParser

	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.GetProviderConfig(provider)
		models := pc.IntentModels
		if len(models) == 0 {
			models = defaultModels(provider)
		}

		for _, m := range models {
			var (
				p   IntentParser
				err error
			)
			switch {
			case provider == ProviderGemini:
				var gp *geminiIntentParser
				gp, err = newGeminiIntentParser(ctx, pc.APIKey, m, pc.Endpoint)
				if gp != nil {
					p = gp
				}
			case provider.IsOpenAICompatible():
				var op *openaiIntentParser
				op, err = newOpenAIIntentParser(ctx, provider, pc.APIKey, m, pc.Endpoint)
				if op != nil {
					p = op
				}
			default:
				err = fmt.Errorf("unsupported provider %q", provider)
			}
			if err != nil {
				slog.WarnContext(ctx, "failed to create intent parser", "provider", provider, "model", m, "error", err)
				continue
			}
			if p != nil {
				parsers = append(parsers, p)
			}
		}
	}

	if len(parsers) == 0 {
		slog.WarnContext(ctx, "no intent parser could be created")
		return nil, nil //nolint:nilnil // NLU disabled
	}

	slog.InfoContext(ctx, "intent parser configured",
		"primary", parsers[0].Provider(),
		"chain_size", len(parsers))

	return NewFallbackIntentParser(cfg.RetryConfig, metrics, parsers...), nil
}

func defaultModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiIntentModels
	case ProviderGroq:
		return DefaultGroqIntentModels
	default:
		return nil
	}
}

// DefaultLLMConfig returns a default LLM configuration without API keys.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers: slices.Clone(DefaultProviders),
		Gemini: ProviderConfig{
			IntentModels: DefaultGeminiIntentModels,
		},
		Groq: ProviderConfig{
			IntentModels: DefaultGroqIntentModels,
		},
		RetryConfig: DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// ConfigFromApp maps the application config onto an LLMConfig.
func ConfigFromApp(cfg *config.Config) LLMConfig {
	llm := DefaultLLMConfig()
	llm.Providers = llm.Providers[:0]
	for _, p := range cfg.LLMProviders {
		llm.Providers = append(llm.Providers, Provider(p))
	}
	llm.Gemini.APIKey = cfg.GeminiAPIKey
	llm.Groq.APIKey = cfg.GroqAPIKey
	if len(cfg.GeminiIntentModels) > 0 {
		llm.Gemini.IntentModels = cfg.GeminiIntentModels
	}
	if len(cfg.GroqIntentModels) > 0 {
		llm.Groq.IntentModels = cfg.GroqIntentModels
	}
	return llm
}
