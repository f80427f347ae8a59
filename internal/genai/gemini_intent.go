package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// geminiIntentParser parses intents using Gemini function calling.
type geminiIntentParser struct {
	client     *genai.Client
	model      string
	tools      []*genai.Tool
	systemInst string
}

// newGeminiIntentParser creates a Gemini-based intent parser.
// Returns nil if apiKey is empty.
func newGeminiIntentParser(ctx context.Context, apiKey, model, endpoint string) (*geminiIntentParser, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // NLU disabled when no API key
	}

	if model == "" {
		model = DefaultGeminiIntentModels[0]
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiIntentParser{
		client: client,
		model:  model,
		tools: []*genai.Tool{{
			FunctionDeclarations: BuildIntentFunctions(),
		}},
		systemInst: IntentParserSystemPrompt,
	}, nil
}

// Parse classifies text. ANY mode forces the model to call a function.
func (p *geminiIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if p == nil {
		return nil, errors.New("intent parser is nil")
	}

	config := &genai.GenerateContentConfig{
		Tools:             p.tools,
		SystemInstruction: genai.NewContentFromText(p.systemInst, genai.RoleUser),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAny,
			},
		},
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	}

	start := time.Now()
	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(text), config)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "intent parsing API call failed",
			"provider", ProviderGemini,
			"model", p.model,
			"input_length", len(text),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, apiErr.Code)
		}
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	parsed, err := p.parseResult(result)
	if err != nil {
		return nil, err
	}

	if result.UsageMetadata != nil {
		slog.DebugContext(ctx, "intent parsing completed",
			"provider", ProviderGemini,
			"model", p.model,
			"input_tokens", result.UsageMetadata.PromptTokenCount,
			"output_tokens", result.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds(),
			"function_name", parsed.FunctionName)
	}
	return parsed, nil
}

func (p *geminiIntentParser) parseResult(result *genai.GenerateContentResponse) (*ParseResult, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, errors.New("empty response from model")
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, errors.New("no content in response")
	}

	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			return newParseResult(part.FunctionCall.Name, part.FunctionCall.Args)
		}
	}

	return nil, errors.New("no function call in response (expected with ANY mode)")
}

// IsEnabled returns true if the intent parser is enabled.
func (p *geminiIntentParser) IsEnabled() bool {
	return p != nil && p.client != nil
}

// Provider returns the provider type for this parser.
func (p *geminiIntentParser) Provider() Provider {
	return ProviderGemini
}

// Close is a no-op; genai.Client holds no resources that need release.
func (p *geminiIntentParser) Close() error {
	return nil
}
