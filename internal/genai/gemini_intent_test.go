package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
	"google.golang.org/genai"
)

func TestNewGeminiIntentParser_EmptyKey(t *testing.T) {
	t.Parallel()
	p, err := newGeminiIntentParser(context.Background(), "", "", "")
	if err != nil || p != nil {
		t.Errorf("parser=%v err=%v, want nil/nil", p, err)
	}
	if p.IsEnabled() {
		t.Error("nil parser should be disabled")
	}
}

func TestGeminiIntentParser_ParseResult(t *testing.T) {
	t.Parallel()
	p := &geminiIntentParser{}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "thinking"},
					{FunctionCall: &genai.FunctionCall{
						Name: FuncCourseOutline,
						Args: map[string]any{"courses": []any{"cp l 211"}},
					}},
				},
			},
		}},
	}

	result, err := p.parseResult(resp)
	if err != nil {
		t.Fatalf("parseResult() error = %v", err)
	}
	if result.Intent != fulfillment.IntentCourseOutline {
		t.Errorf("Intent = %q", result.Intent)
	}
	if got := result.Params["courses"]; !slices.Equal(got, []string{"cp l 211"}) {
		t.Errorf("courses = %v", got)
	}

	for name, bad := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"no parts":      {Candidates: []*genai.Candidate{{Content: &genai.Content{}}}},
		"text only":     {Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "hi"}}}}}},
	} {
		if _, err := p.parseResult(bad); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestGeminiIntentParser_Parse(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "generateContent") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {
					"role": "model",
					"parts": [{"functionCall": {"name": "direct_reply", "args": {"message": "Hello!"}}}]
				}
			}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 3, "totalTokenCount": 13}
		}`))
	}))
	defer srv.Close()

	p, err := newGeminiIntentParser(context.Background(), "key", "test-model", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := p.Parse(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !result.IsDirectReply() || result.Reply != "Hello!" {
		t.Errorf("result = %+v", result)
	}
	if _, ok := gotBody["tools"]; !ok {
		t.Error("request should declare tools")
	}
}
