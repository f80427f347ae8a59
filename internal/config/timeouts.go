// Package config provides centralized timeout constants for the application.
//
// Dialogflow ES waits at most 5 seconds for a fulfillment webhook (10s with
// the extended limit); the server timeouts below leave headroom for the three
// sequential table fetches a lecturer query may need.
package config

import "time"

// HTTP server timeouts
const (
	// WebhookHTTPRead is the HTTP server read timeout. Inbound payloads are small JSON bodies.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	// Covers table fetches (with retries) plus an NLU call on the relay path.
	WebhookHTTPWrite = 45 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second
)

// Table fetch timeouts
const (
	// TableFetch bounds one table fetch attempt (Sheets/object/SQLite round trip).
	TableFetch = 15 * time.Second

	// TableFetchRetryInitial is the initial delay before retrying a failed fetch.
	// Uses exponential backoff: 500ms -> 1s -> 2s
	TableFetchRetryInitial = 500 * time.Millisecond
)

// Request handling timeouts
const (
	// ReadinessCheckTimeout bounds the concurrent table probe behind /readyz.
	ReadinessCheckTimeout = 10 * time.Second

	// NLUParse bounds a single free-text intent classification call.
	NLUParse = 15 * time.Second

	// LineProcessing bounds processing of one LINE event after the webhook is acknowledged.
	LineProcessing = 30 * time.Second
)

// Background job intervals
const (
	// RateLimiterCleanupInterval is how often idle per-client rate limiters are removed.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second

	// SentryFlush is how long shutdown waits for buffered Sentry events.
	SentryFlush = 2 * time.Second
)
