package table

import (
	"context"
	"errors"
	"time"

	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/logger"
)

// MetricsRecorder records table fetch outcomes.
type MetricsRecorder interface {
	RecordTableFetch(table, status string, duration float64)
}

type instrumentedSource struct {
	src     Source
	metrics MetricsRecorder
	logger  *logger.Logger
}

// WithMetrics wraps src so every fetch is counted, timed and logged.
// Either recorder or log may be nil.
func WithMetrics(src Source, recorder MetricsRecorder, log *logger.Logger) Source {
	if log != nil {
		log = log.WithModule("table")
	}
	return &instrumentedSource{src: src, metrics: recorder, logger: log}
}

func (s *instrumentedSource) Fetch(ctx context.Context, name string) (*Table, error) {
	start := time.Now()
	tbl, err := s.src.Fetch(ctx, name)
	duration := time.Since(start)

	status := fetchStatus(err)
	if s.metrics != nil {
		s.metrics.RecordTableFetch(name, status, duration.Seconds())
	}

	if s.logger != nil {
		entry := s.logger.WithField("table", name).WithField("duration_ms", duration.Milliseconds())
		if err != nil {
			entry.WithError(err).WarnContext(ctx, "Table fetch failed")
		} else {
			entry.WithField("rows", tbl.Len()).DebugContext(ctx, "Table fetched")
		}
	}

	return tbl, err
}

func fetchStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domerrors.ErrEmptySource):
		return "empty"
	case errors.Is(err, domerrors.ErrUnknownTable):
		return "unknown"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
