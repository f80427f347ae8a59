package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"google.golang.org/genai"
)

// openaiIntentParser parses intents through an OpenAI-compatible API.
type openaiIntentParser struct {
	client     openai.Client
	model      string
	tools      []openai.ChatCompletionToolUnionParam
	systemInst string
	provider   Provider
}

// newOpenAIIntentParser creates an OpenAI-compatible intent parser.
// Returns nil if apiKey is empty. endpoint overrides the provider base URL.
func newOpenAIIntentParser(_ context.Context, provider Provider, apiKey, model, endpoint string) (*openaiIntentParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // NLU disabled when no API key
	}

	baseURL := endpoint
	if baseURL == "" {
		var ok bool
		baseURL, ok = ProviderEndpoint[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}

	if model == "" {
		switch provider {
		case ProviderGroq:
			model = DefaultGroqIntentModels[0]
		default:
			return nil, fmt.Errorf("no default model for provider: %s", provider)
		}
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &openaiIntentParser{
		client:     client,
		model:      model,
		tools:      buildOpenAITools(),
		systemInst: IntentParserSystemPrompt,
		provider:   provider,
	}, nil
}

// buildOpenAITools converts the function declarations to OpenAI tool format.
func buildOpenAITools() []openai.ChatCompletionToolUnionParam {
	funcDecls := BuildIntentFunctions()
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(funcDecls))

	for _, fd := range funcDecls {
		params := openai.FunctionParameters(schemaToJSON(fd.Parameters))
		result = append(result, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        fd.Name,
			Description: openai.String(fd.Description),
			Parameters:  params,
		}))
	}
	return result
}

// schemaToJSON renders a genai schema as JSON Schema. genai types are
// uppercase ("STRING") while JSON Schema expects lowercase.
func schemaToJSON(s *genai.Schema) map[string]any {
	out := map[string]any{
		"type": strings.ToLower(string(s.Type)),
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Items != nil {
		out["items"] = schemaToJSON(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = schemaToJSON(prop)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// Parse classifies text. Required tool choice forces a function call.
func (p *openaiIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil {
		return nil, errors.New("intent parser is nil")
	}

	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.systemInst),
			openai.UserMessage(text),
		},
		Tools: p.tools,
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(openai.ChatCompletionToolChoiceOptionAutoRequired)),
		},
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(256),
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "intent parsing API call failed",
			"provider", p.provider,
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, WrapError(fmt.Errorf("chat completion failed: %w", err), p.provider, apiErr.StatusCode)
		}
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	parsed, err := p.parseResult(resp)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "intent parsing completed",
		"provider", p.provider,
		"model", p.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", duration.Milliseconds(),
		"function_name", parsed.FunctionName)
	return parsed, nil
}

func (p *openaiIntentParser) parseResult(resp *openai.ChatCompletion) (*ParseResult, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, errors.New("no tool call in response (expected with required mode)")
	}

	tc := choice.Message.ToolCalls[0]
	if tc.Type != "function" {
		return nil, fmt.Errorf("unexpected tool type: %s", tc.Type)
	}

	var args map[string]any
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to parse function arguments: %w", err)
		}
	}
	return newParseResult(tc.Function.Name, args)
}

// IsEnabled returns true if the intent parser is enabled.
func (p *openaiIntentParser) IsEnabled() bool {
	return p != nil
}

// Provider returns the provider type for this parser.
func (p *openaiIntentParser) Provider() Provider {
	if p == nil {
		return ""
	}
	return p.provider
}

// Close is a no-op; the openai client needs no cleanup.
func (p *openaiIntentParser) Close() error {
	return nil
}
