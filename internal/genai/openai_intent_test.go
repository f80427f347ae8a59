package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
)

func chatCompletionJSON(funcName, args string) string {
	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role":    "assistant",
				"content": nil,
				"tool_calls": []any{map[string]any{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      funcName,
						"arguments": args,
					},
				}},
			},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestNewOpenAIIntentParser(t *testing.T) {
	t.Parallel()

	p, err := newOpenAIIntentParser(context.Background(), ProviderGroq, "", "", "")
	if err != nil || p != nil {
		t.Errorf("empty key: parser=%v err=%v, want nil/nil", p, err)
	}

	p, err = newOpenAIIntentParser(context.Background(), ProviderGroq, "key", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != DefaultGroqIntentModels[0] || p.Provider() != ProviderGroq || !p.IsEnabled() {
		t.Errorf("unexpected parser: model=%s provider=%s", p.model, p.Provider())
	}

	if _, err := newOpenAIIntentParser(context.Background(), ProviderGemini, "key", "m", ""); err == nil {
		t.Error("expected error for provider without OpenAI endpoint")
	}
}

func TestBuildOpenAITools_ArrayItems(t *testing.T) {
	t.Parallel()

	tools := buildOpenAITools()
	if len(tools) != len(BuildIntentFunctions()) {
		t.Fatalf("got %d tools", len(tools))
	}

	schema := schemaToJSON(BuildIntentFunctions()[0].Parameters)
	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	props := schema["properties"].(map[string]any)
	courses := props[fulfillment.ParamCourses].(map[string]any)
	if courses["type"] != "array" {
		t.Errorf("courses type = %v", courses["type"])
	}
	items, ok := courses["items"].(map[string]any)
	if !ok || items["type"] != "string" {
		t.Errorf("courses items = %v", courses["items"])
	}
}

func TestOpenAIIntentParser_Parse(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionJSON(FuncLecturerCourses, `{"lecturers":["JDS","AMK"]}`)))
	}))
	defer srv.Close()

	p, err := newOpenAIIntentParser(context.Background(), ProviderGroq, "key", "test-model", srv.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := p.Parse(context.Background(), "what do JDS and AMK teach")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Intent != fulfillment.IntentLecturerCourses {
		t.Errorf("Intent = %q", result.Intent)
	}
	if got := result.Params[fulfillment.ParamLecturers]; !slices.Equal(got, []string{"JDS", "AMK"}) {
		t.Errorf("lecturers = %v", got)
	}
	if gotBody["tool_choice"] != "required" {
		t.Errorf("tool_choice = %v, want required", gotBody["tool_choice"])
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
}

func TestOpenAIIntentParser_ParseAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := newOpenAIIntentParser(context.Background(), ProviderGroq, "key", "test-model", srv.URL+"/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Parse(context.Background(), "hello")
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *LLMError, got %v", err)
	}
	if llmErr.StatusCode != http.StatusUnauthorized || llmErr.Provider != ProviderGroq {
		t.Errorf("unexpected LLMError: %+v", llmErr)
	}
	if ClassifyError(err) != ActionFallback {
		t.Errorf("ClassifyError = %v, want fallback", ClassifyError(err))
	}
}

func TestOpenAIIntentParser_NoToolCall(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	p, _ := newOpenAIIntentParser(context.Background(), ProviderGroq, "key", "m", srv.URL+"/")
	if _, err := p.Parse(context.Background(), "hello"); err == nil {
		t.Error("expected error when model returns no tool call")
	}
}
