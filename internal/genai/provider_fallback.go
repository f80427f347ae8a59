package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoParser is returned when the chain has no parser to try.
var ErrNoParser = errors.New("intent parser not configured")

// FallbackIntentParser tries a chain of parsers in order. Each parser is
// retried with backoff on transient errors before the next one is tried.
type FallbackIntentParser struct {
	parsers     []IntentParser
	retryConfig RetryConfig
	metrics     MetricsRecorder
}

// NewFallbackIntentParser creates a parser chain. metrics may be nil.
func NewFallbackIntentParser(cfg RetryConfig, metrics MetricsRecorder, parsers ...IntentParser) *FallbackIntentParser {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	chain := make([]IntentParser, 0, len(parsers))
	for _, p := range parsers {
		if p != nil && p.IsEnabled() {
			chain = append(chain, p)
		}
	}
	return &FallbackIntentParser{
		parsers:     chain,
		retryConfig: cfg,
		metrics:     metrics,
	}
}

// Parse returns the first successful parse in chain order.
func (f *FallbackIntentParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if f == nil || len(f.parsers) == 0 {
		return nil, ErrNoParser
	}

	start := time.Now()
	var lastErr error
	for i, parser := range f.parsers {
		result, err := f.parseWithRetry(ctx, parser, text)
		if err == nil {
			f.record(parser.Provider(), "success")
			if i > 0 {
				slog.InfoContext(ctx, "intent parsed by fallback parser",
					"provider", parser.Provider(),
					"position", i,
					"duration", time.Since(start))
			}
			return result, nil
		}

		lastErr = err
		f.record(parser.Provider(), classifyErrorType(err))
		action := ClassifyError(err)
		slog.WarnContext(ctx, "intent parser failed",
			"provider", parser.Provider(),
			"position", i,
			"action", action,
			"error", err)

		if action == ActionFail || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all intent parsers failed: %w", lastErr)
}

func (f *FallbackIntentParser) parseWithRetry(ctx context.Context, parser IntentParser, text string) (*ParseResult, error) {
	var lastErr error

	for attempt := range f.retryConfig.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := parser.Parse(ctx, text)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry || attempt == f.retryConfig.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, f.retryConfig.InitialDelay, f.retryConfig.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return nil, fmt.Errorf("timeout during retry: %w", lastErr)
		}

		slog.DebugContext(ctx, "retrying intent parse",
			"provider", parser.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (f *FallbackIntentParser) record(provider Provider, status string) {
	if f.metrics != nil {
		f.metrics.RecordNLU(string(provider), status)
	}
}

// IsEnabled returns true if at least one parser is in the chain.
func (f *FallbackIntentParser) IsEnabled() bool {
	return f != nil && len(f.parsers) > 0
}

// Provider returns the primary provider type.
func (f *FallbackIntentParser) Provider() Provider {
	if f == nil || len(f.parsers) == 0 {
		return ""
	}
	return f.parsers[0].Provider()
}

// Len returns the number of parsers in the chain.
func (f *FallbackIntentParser) Len() int {
	if f == nil {
		return 0
	}
	return len(f.parsers)
}

// Close closes every parser in the chain.
func (f *FallbackIntentParser) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.parsers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
