// Package line serves the LINE Messaging API channel. Text messages are
// classified by the intent parser, fulfilled and answered with one reply.
package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/compeng-bot/compeng-bot-go/internal/config"
	"github.com/compeng-bot/compeng-bot-go/internal/ctxutil"
	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/fulfillment"
	"github.com/compeng-bot/compeng-bot-go/internal/genai"
	"github.com/compeng-bot/compeng-bot-go/internal/lineutil"
	"github.com/compeng-bot/compeng-bot-go/internal/logger"
	"github.com/compeng-bot/compeng-bot-go/internal/ratelimit"
	"github.com/compeng-bot/compeng-bot-go/internal/sentry"
	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Channel is the metrics and log label for this endpoint.
const Channel = "line"

// statusParseError marks replies to questions the intent parser could not
// classify; they carry a quick reply that resends the question.
const (
	statusParseError = "parse_error"
	retryLabel       = "Try again"
)

// Limits applied to each webhook delivery.
const (
	maxEventsPerWebhook = 100
	minReplyTokenLength = 10
	maxTextRunes        = 1000
)

// Replier sends reply messages. *messaging_api.MessagingApiAPI satisfies it.
type Replier interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// MetricsRecorder records per-channel request outcomes.
type MetricsRecorder interface {
	RecordChannelRequest(channel, status string)
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string
	Parser        genai.IntentParser
	Dispatcher    genai.Dispatcher
	Metrics       MetricsRecorder
	Logger        *logger.Logger

	// GlobalRateRPS caps outgoing reply calls across all users.
	GlobalRateRPS float64

	// Replier overrides the messaging client built from ChannelToken.
	Replier Replier
}

// Handler handles LINE webhook deliveries.
type Handler struct {
	channelSecret string
	client        Replier
	parser        genai.IntentParser
	dispatcher    genai.Dispatcher
	metrics       MetricsRecorder
	logger        *logger.Logger
	rateLimiter   *ratelimit.Limiter
	wg            sync.WaitGroup
}

// NewHandler creates a LINE handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	client := cfg.Replier
	if client == nil {
		api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
		if err != nil {
			return nil, fmt.Errorf("create messaging API client: %w", err)
		}
		client = api
	}

	rps := cfg.GlobalRateRPS
	if rps <= 0 {
		rps = 100
	}

	return &Handler{
		channelSecret: cfg.ChannelSecret,
		client:        client,
		parser:        cfg.Parser,
		dispatcher:    cfg.Dispatcher,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger.WithModule("line"),
		rateLimiter:   ratelimit.New(rps, rps),
	}, nil
}

// Handle is the Gin handler for POST /line/callback. It acknowledges the
// delivery right away and processes events in the background.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.WarnContext(c.Request.Context(), "Invalid LINE webhook signature")
			h.record("bad_signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).ErrorContext(c.Request.Context(), "Failed to parse LINE webhook request")
			h.record("bad_request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).
			WarnContext(c.Request.Context(), "Too many events in webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}
	events = append([]webhook.EventInterface(nil), events...)
	base := ctxutil.PreserveTracing(c.Request.Context())

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in LINE event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(base, event)
		}
	})
}

func (h *Handler) processEvent(base context.Context, event webhook.EventInterface) {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		h.logger.WithField("event_type", fmt.Sprintf("%T", event)).Debug("Ignoring non-message event")
		return
	}
	msg, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		return
	}

	text := msg.Text
	if _, personal := e.Source.(webhook.UserSource); !personal {
		if !isBotMentioned(msg) {
			return
		}
		text = stripBotMentions(text, msg.Mention)
	}
	text = strings.TrimSpace(text)
	if text == "" || len(e.ReplyToken) < minReplyTokenLength {
		return
	}

	ctx, cancel := context.WithTimeout(base, config.LineProcessing)
	defer cancel()
	ctx = ctxutil.WithChannel(ctx, Channel)
	log := h.logger
	if requestID, ok := ctxutil.GetRequestID(ctx); ok {
		log = log.WithField("http_request_id", requestID)
	}
	if e.WebhookEventId != "" {
		ctx = ctxutil.WithRequestID(ctx, e.WebhookEventId)
		log = log.WithRequestID(e.WebhookEventId)
	}

	start := time.Now()
	reply, status := h.answer(ctx, log, text)

	out := lineutil.NewTextMessage(reply)
	if status == statusParseError {
		out.QuickReply = lineutil.NewQuickReply(lineutil.NewMessageAction(retryLabel, text))
	}

	if err := h.rateLimiter.Wait(ctx); err != nil {
		log.WithError(err).WarnContext(ctx, "Reply abandoned while waiting for rate limiter")
		h.record("reply_error")
		return
	}

	_, err := h.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: e.ReplyToken,
		Messages:   []messaging_api.MessageInterface{out},
	})
	if err != nil {
		if strings.Contains(err.Error(), "Invalid reply token") {
			log.WithError(err).DebugContext(ctx, "Reply token already used or expired")
		} else {
			log.WithError(err).ErrorContext(ctx, "Failed to send LINE reply")
		}
		h.record("reply_error")
		return
	}

	h.record(status)
	log.WithField("status", status).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		InfoContext(ctx, "LINE event processed")
}

// answer returns the reply text and a metrics status. Failures are turned
// into user-facing text so the user always gets a reply.
func (h *Handler) answer(ctx context.Context, log *logger.Logger, text string) (string, string) {
	if h.parser == nil || !h.parser.IsEnabled() {
		return fulfillment.FallbackText, "disabled"
	}
	text = lineutil.TruncateRunes(text, maxTextRunes)

	reply, intent, err := genai.Answer(ctx, h.parser, h.dispatcher, text)
	switch {
	case err == nil:
		return reply, "success"
	case domerrors.IsUnrecognizedIntent(err):
		return fulfillment.FallbackText, "fallback"
	default:
		log.WithError(err).WithField("intent", intent).ErrorContext(ctx, "LINE fulfillment failed")
		if !errors.Is(err, context.Canceled) {
			sentry.CaptureExceptionWithContext(ctx, err, map[string]string{
				"channel": Channel,
				"intent":  intent,
			})
		}
		status := "error"
		if errors.Is(err, genai.ErrParseFailed) {
			status = statusParseError
		}
		return domerrors.GetUserMessage(err, fulfillment.ErrorText), status
	}
}

func (h *Handler) record(status string) {
	if h.metrics != nil {
		h.metrics.RecordChannelRequest(Channel, status)
	}
}

// Shutdown waits for in-flight event processing, or until ctx is done.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
