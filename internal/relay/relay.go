// Package relay serves the browser chat widget. It takes free text, asks the
// intent parser what the user wants and answers with plain fulfillment text.
package relay

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/compeng-bot/compeng-bot-go/internal/ctxutil"
	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
	"github.com/compeng-bot/compeng-bot-go/internal/genai"
	"github.com/compeng-bot/compeng-bot-go/internal/logger"
	"github.com/compeng-bot/compeng-bot-go/internal/ratelimit"
	"github.com/compeng-bot/compeng-bot-go/internal/sentry"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Channel is the metrics and log label for this endpoint.
const Channel = "relay"

// MaxTextRunes caps the length of one relayed message.
const MaxTextRunes = 1000

const maxBodyBytes = 64 << 10

// Response texts.
const (
	DisabledText    = "Free-text questions are not available right now."
	RateLimitedText = "Too many requests. Please wait a moment and try again."
	EmptyTextText   = "Please type a question."
	TooLongText     = "That message is too long. Please keep it under 1000 characters."
	MalformedText   = "malformed request body"
)

// Request is the widget payload. ProjectID and Lang are accepted for
// compatibility and only logged.
type Request struct {
	ProjectID string `json:"project_id"`
	Text      string `json:"text"`
	Lang      string `json:"lang"`
}

// MetricsRecorder records per-channel request outcomes.
type MetricsRecorder interface {
	RecordChannelRequest(channel, status string)
}

// Handler handles relay requests.
type Handler struct {
	parser     genai.IntentParser
	dispatcher genai.Dispatcher
	limiter    *ratelimit.KeyedLimiter
	metrics    MetricsRecorder
	logger     *logger.Logger
}

// NewHandler creates a relay handler. parser may be nil, in which case every
// request is answered with 503. limiter and metrics may be nil.
func NewHandler(parser genai.IntentParser, d genai.Dispatcher, limiter *ratelimit.KeyedLimiter, m MetricsRecorder, log *logger.Logger) *Handler {
	return &Handler{
		parser:     parser,
		dispatcher: d,
		limiter:    limiter,
		metrics:    m,
		logger:     log.WithModule("relay"),
	}
}

// Handle is the Gin handler for POST /relay.
func (h *Handler) Handle(c *gin.Context) {
	start := time.Now()

	if h.parser == nil || !h.parser.IsEnabled() {
		h.record("disabled")
		c.String(http.StatusServiceUnavailable, DisabledText)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		h.logger.WithField("client_ip", c.ClientIP()).
			WarnContext(c.Request.Context(), "Relay rate limit exceeded")
		h.record("rate_limited")
		c.String(http.StatusTooManyRequests, RateLimitedText)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).WarnContext(c.Request.Context(), "Malformed relay request")
		h.record("bad_request")
		c.String(http.StatusBadRequest, MalformedText)
		return
	}

	text := strings.TrimSpace(req.Text)
	switch {
	case text == "":
		h.record("bad_request")
		c.String(http.StatusBadRequest, EmptyTextText)
		return
	case utf8.RuneCountInString(text) > MaxTextRunes:
		h.record("bad_request")
		c.String(http.StatusBadRequest, TooLongText)
		return
	}

	session := uuid.NewString()
	ctx := ctxutil.WithChannel(c.Request.Context(), Channel)
	ctx = ctxutil.WithSessionID(ctx, session)
	log := h.logger.WithFields(map[string]any{
		"session_id": session,
		"project_id": req.ProjectID,
		"lang":       req.Lang,
	})

	reply, intent, err := genai.Answer(ctx, h.parser, h.dispatcher, text)
	switch {
	case err == nil:
		log.WithField("intent", intent).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			DebugContext(ctx, "Relay request answered")
		h.record("success")
		c.String(http.StatusOK, reply)

	case domerrors.IsUnrecognizedIntent(err):
		h.record("fallback")
		c.String(http.StatusOK, fulfillment.FallbackText)

	default:
		status := http.StatusInternalServerError
		if errors.Is(err, genai.ErrParseFailed) {
			status = http.StatusServiceUnavailable
		}
		log.WithError(err).
			WithField("intent", intent).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			ErrorContext(ctx, "Relay request failed")
		if !errors.Is(err, context.Canceled) {
			sentry.CaptureExceptionWithContext(ctx, err, map[string]string{
				"channel": Channel,
				"intent":  intent,
			})
		}
		h.record("error")
		c.String(status, domerrors.GetUserMessage(err, fulfillment.ErrorText))
	}
}

func (h *Handler) record(status string) {
	if h.metrics != nil {
		h.metrics.RecordChannelRequest(Channel, status)
	}
}

// CORS returns the relay's CORS middleware. A "*" entry (or an empty list)
// allows every origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
