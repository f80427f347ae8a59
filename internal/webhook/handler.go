// Package webhook serves the fulfillment endpoint called by the
// conversational platform once an intent has been matched.
package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/compeng-bot/compeng-bot-go/internal/ctxutil"
	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
	"github.com/compeng-bot/compeng-bot-go/internal/logger"
	"github.com/compeng-bot/compeng-bot-go/internal/sentry"
	"github.com/gin-gonic/gin"
)

// Channel is the metrics and log label for this endpoint.
const Channel = "webhook"

// maxBodyBytes caps the request body.
const maxBodyBytes = 1 << 20

// Dispatcher runs a fulfillment query.
type Dispatcher interface {
	Dispatch(ctx context.Context, q fulfillment.Query) (string, error)
}

// MetricsRecorder records per-channel request outcomes.
type MetricsRecorder interface {
	RecordChannelRequest(channel, status string)
}

// Handler handles fulfillment webhook requests.
type Handler struct {
	dispatcher Dispatcher
	metrics    MetricsRecorder
	logger     *logger.Logger
}

// NewHandler creates a new webhook handler. metrics may be nil.
func NewHandler(d Dispatcher, m MetricsRecorder, log *logger.Logger) *Handler {
	return &Handler{
		dispatcher: d,
		metrics:    m,
		logger:     log.WithModule("webhook"),
	}
}

// Handle is the Gin handler for POST /webhook.
func (h *Handler) Handle(c *gin.Context) {
	start := time.Now()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req fulfillment.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).WarnContext(c.Request.Context(), "Malformed fulfillment request")
		h.record("bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	query := req.Query()
	ctx := ctxutil.WithChannel(c.Request.Context(), Channel)
	ctx = ctxutil.WithIntent(ctx, query.Intent)
	if req.Session != "" {
		ctx = ctxutil.WithSessionID(ctx, req.Session)
	}

	text, err := h.dispatcher.Dispatch(ctx, query)
	switch {
	case err == nil:
		h.record("success")
		c.JSON(http.StatusOK, fulfillment.WebhookResponse{FulfillmentText: text})

	case domerrors.IsUnrecognizedIntent(err):
		h.logger.WithField("intent", query.Intent).InfoContext(ctx, "Unrecognized intent; answering with fallback")
		h.record("fallback")
		c.JSON(http.StatusOK, fulfillment.WebhookResponse{FulfillmentText: fulfillment.FallbackText})

	default:
		h.logger.WithError(err).
			WithField("structural", domerrors.IsStructural(err)).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			ErrorContext(ctx, "Fulfillment request failed")
		if !errors.Is(err, context.Canceled) {
			sentry.CaptureExceptionWithContext(ctx, err, map[string]string{
				"channel": Channel,
				"intent":  query.Intent,
			})
		}
		h.record("error")
		c.JSON(http.StatusInternalServerError, fulfillment.WebhookResponse{
			FulfillmentText: domerrors.GetUserMessage(err, fulfillment.ErrorText),
		})
	}
}

func (h *Handler) record(status string) {
	if h.metrics != nil {
		h.metrics.RecordChannelRequest(Channel, status)
	}
}
