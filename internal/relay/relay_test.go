package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
	"github.com/compeng-bot/compeng-bot-go/internal/genai"
	"github.com/compeng-bot/compeng-bot-go/internal/logger"
	"github.com/compeng-bot/compeng-bot-go/internal/ratelimit"
	"github.com/compeng-bot/compeng-bot-go/internal/resolver"
	"github.com/compeng-bot/compeng-bot-go/internal/table"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeParser struct {
	result *genai.ParseResult
	err    error
	got    string
}

func (f *fakeParser) Parse(_ context.Context, text string) (*genai.ParseResult, error) {
	f.got = text
	return f.result, f.err
}
func (f *fakeParser) IsEnabled() bool          { return true }
func (f *fakeParser) Close() error             { return nil }
func (f *fakeParser) Provider() genai.Provider { return "fake" }

type recorder struct {
	statuses []string
}

func (r *recorder) RecordChannelRequest(channel, status string) {
	r.statuses = append(r.statuses, channel+"/"+status)
}

func dispatcher() *fulfillment.Dispatcher {
	src := table.NewStaticSource(map[string][][]string{
		table.UGCourses: {
			{"course_code", "title", "outline"},
			{"CPENG511", "Robotics", ""},
		},
		table.CourseLecturers: {
			{"course_code", "lecturer_abbrev"},
			{"CPENG511", "JD"},
			{"EEENG301", "ZZZ"},
		},
		table.LecturerInfo: {
			{"abbrev", "name"},
			{"JD", "Jane Doe"},
		},
	})
	return fulfillment.NewDispatcher(resolver.New(src), nil, nil)
}

func newRouter(p genai.IntentParser, limiter *ratelimit.KeyedLimiter, rec *recorder) *gin.Engine {
	var m MetricsRecorder
	if rec != nil {
		m = rec
	}
	h := NewHandler(p, dispatcher(), limiter, m, logger.NewWithWriter("error", io.Discard))
	r := gin.New()
	g := r.Group("/relay", CORS([]string{"*"}))
	g.POST("", h.Handle)
	g.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/relay", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://example.org")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandle_Success(t *testing.T) {
	t.Parallel()
	p := &fakeParser{result: &genai.ParseResult{
		Intent: fulfillment.IntentCourseTitle,
		Params: map[string][]string{fulfillment.ParamCourses: {"cpeng 511"}},
	}}
	rec := &recorder{}

	w := post(newRouter(p, nil, rec), `{"project_id":"p","text":"  what is cpeng 511  ","lang":"en"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "CPENG511:\tRobotics", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "what is cpeng 511", p.got)
	assert.Equal(t, []string{"relay/success"}, rec.statuses)
}

func TestHandle_DirectReply(t *testing.T) {
	t.Parallel()
	p := &fakeParser{result: &genai.ParseResult{Reply: "Hello!", FunctionName: genai.FuncDirectReply}}

	w := post(newRouter(p, nil, nil), `{"text":"hi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello!", w.Body.String())
}

func TestHandle_MissingParameterAnsweredInBand(t *testing.T) {
	t.Parallel()
	p := &fakeParser{result: &genai.ParseResult{
		Intent: fulfillment.IntentLecturerCourses,
		Params: map[string][]string{fulfillment.ParamLecturers: {}},
	}}

	w := post(newRouter(p, nil, nil), `{"text":"what does teach"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fulfillment.NoLecturerSpecified, w.Body.String())
}

func TestHandle_LookupErrorUsesUserMessage(t *testing.T) {
	t.Parallel()
	p := &fakeParser{result: &genai.ParseResult{
		Intent: fulfillment.IntentCourseLecturers,
		Params: map[string][]string{fulfillment.ParamCourses: {"EEENG301"}},
	}}

	w := post(newRouter(p, nil, nil), `{"text":"who teaches EEENG301"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "ZZZ")
}

func TestHandle_UnknownLecturerAnsweredInBand(t *testing.T) {
	t.Parallel()
	p := &fakeParser{result: &genai.ParseResult{
		Intent: fulfillment.IntentLecturerCourses,
		Params: map[string][]string{fulfillment.ParamLecturers: {"JD", "ZZZ"}},
	}}

	w := post(newRouter(p, nil, nil), `{"text":"what do JD and ZZZ teach"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jane Doe:\nCPENG511\nZZZ:\nLecturer not found for abbreviation ZZZ", w.Body.String())
}

func TestHandle_ParseFailure(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	p := &fakeParser{err: errors.New("all providers down")}

	w := post(newRouter(p, nil, rec), `{"text":"hello"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, genai.ParseFailedText, w.Body.String())
	assert.Equal(t, []string{"relay/error"}, rec.statuses)
}

func TestHandle_Disabled(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	var none *genai.FallbackIntentParser

	w := post(newRouter(none, nil, rec), `{"text":"hello"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, DisabledText, w.Body.String())
	assert.Equal(t, []string{"relay/disabled"}, rec.statuses)
}

func TestHandle_BadInput(t *testing.T) {
	t.Parallel()
	p := &fakeParser{result: &genai.ParseResult{Reply: "x"}}
	rec := &recorder{}
	r := newRouter(p, nil, rec)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"text":`, MalformedText},
		{"empty text", `{"text":"   "}`, EmptyTextText},
		{"too long", `{"text":"` + strings.Repeat("é", MaxTextRunes+1) + `"}`, TooLongText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(r, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}

	w := post(r, `{"text":"`+strings.Repeat("é", MaxTextRunes)+`"}`)
	assert.Equal(t, http.StatusOK, w.Code, "exactly the limit is accepted")
	assert.Equal(t, []string{"relay/bad_request", "relay/bad_request", "relay/bad_request", "relay/success"}, rec.statuses)
}

func TestHandle_WithoutMetricsRecorder(t *testing.T) {
	t.Parallel()
	p := &fakeParser{result: &genai.ParseResult{Reply: "x"}}
	h := NewHandler(p, dispatcher(), nil, nil, logger.NewWithWriter("error", io.Discard))
	r := gin.New()
	r.POST("/relay", h.Handle)

	assert.Equal(t, http.StatusBadRequest, post(r, `{"text":"   "}`).Code)
	assert.Equal(t, http.StatusOK, post(r, `{"text":"hi"}`).Code)
}

func TestHandle_RateLimited(t *testing.T) {
	t.Parallel()
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Name: Channel, Burst: 1, RefillRate: 0.001})
	defer limiter.Stop()
	rec := &recorder{}
	p := &fakeParser{result: &genai.ParseResult{Reply: "ok"}}
	r := newRouter(p, limiter, rec)

	assert.Equal(t, http.StatusOK, post(r, `{"text":"one"}`).Code)
	w := post(r, `{"text":"two"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, RateLimitedText, w.Body.String())
	assert.Equal(t, []string{"relay/success", "relay/rate_limited"}, rec.statuses)
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()
	r := newRouter(&fakeParser{}, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/relay", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	t.Parallel()
	r := gin.New()
	r.Use(CORS([]string{"https://bot.example.org"}))
	r.POST("/relay", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodPost, "/relay", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
