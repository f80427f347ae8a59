// Package genai turns free text into fulfillment queries using LLM function
// calling.
//
// Gemini is served through google.golang.org/genai. Groq is served through
// github.com/openai/openai-go/v3 against its OpenAI-compatible endpoint.
// Parsers are chained in the configured provider order; each one is retried
// with backoff before the next one is tried.
package genai

import (
	"context"
	"time"

	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini represents Google's Gemini API.
	ProviderGemini Provider = "gemini"
	// ProviderGroq represents Groq's OpenAI-compatible API.
	ProviderGroq Provider = "groq"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

// IsOpenAICompatible returns true if the provider uses OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// IntentParser classifies free text into an intent.
// Implementations force function calling so every answer is a function call.
type IntentParser interface {
	// Parse analyzes user input and returns the called function.
	Parse(ctx context.Context, text string) (*ParseResult, error)
	// IsEnabled returns true if the parser is properly initialized.
	IsEnabled() bool
	// Close releases any resources held by the parser.
	Close() error
	// Provider returns the provider type for metrics.
	Provider() Provider
}

// ParseResult is the outcome of intent parsing.
type ParseResult struct {
	// Intent is the fulfillment intent name. Empty for direct replies.
	Intent string

	// Params holds the extracted parameter values keyed by fulfillment
	// parameter name (courses or lecturers).
	Params map[string][]string

	// Reply is the model's own answer when it called direct_reply.
	Reply string

	// FunctionName is the raw function name from the model.
	FunctionName string
}

// IsDirectReply reports whether the model answered instead of classifying.
func (r *ParseResult) IsDirectReply() bool {
	return r != nil && r.Intent == ""
}

// Query converts the result into a dispatcher query.
func (r *ParseResult) Query() fulfillment.Query {
	params := make(map[string]fulfillment.StringList, len(r.Params))
	for k, v := range r.Params {
		params[k] = fulfillment.StringList(v)
	}
	return fulfillment.Query{Intent: r.Intent, Params: params}
}

// MetricsRecorder records parser outcomes per provider.
type MetricsRecorder interface {
	RecordNLU(provider, status string)
}

// RetryConfig defines retry behavior for LLM API calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per parser (including initial).
	MaxAttempts int

	// InitialDelay is the base delay before first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	APIKey string

	// IntentModels is the ordered model chain. The first model is primary.
	IntentModels []string

	// Endpoint overrides the provider base URL. Used by tests.
	Endpoint string
}

// LLMConfig holds configuration for all LLM providers.
type LLMConfig struct {
	// Providers is the ordered list of providers to try.
	Providers []Provider

	Gemini ProviderConfig
	Groq   ProviderConfig

	RetryConfig RetryConfig
}

// Default model chains.
var (
	DefaultGeminiIntentModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqIntentModels   = []string{"meta-llama/llama-4-maverick-17b-128e-instruct", "llama-3.3-70b-versatile"}

	DefaultProviders = []Provider{ProviderGemini, ProviderGroq}
)

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// HasAnyProvider returns true if at least one provider is configured.
func (c *LLMConfig) HasAnyProvider() bool {
	return len(c.ConfiguredProviders()) > 0
}

// HasProvider returns true if the specified provider has an API key.
func (c *LLMConfig) HasProvider(p Provider) bool {
	pc := c.GetProviderConfig(p)
	return pc != nil && pc.APIKey != ""
}

// GetProviderConfig returns the configuration for a specific provider.
func (c *LLMConfig) GetProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	default:
		return nil
	}
}

// ConfiguredProviders returns the providers with API keys, in the order
// specified by c.Providers.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	result := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.HasProvider(p) {
			result = append(result, p)
		}
	}
	return result
}
