// Package fulfillment maps intents to resolver operations and renders the
// results as fulfillment text.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/compeng-bot/compeng-bot-go/internal/ctxutil"
	domerrors "github.com/compeng-bot/compeng-bot-go/internal/errors"
	"github.com/compeng-bot/compeng-bot-go/internal/logger"
	"github.com/compeng-bot/compeng-bot-go/internal/resolver"
)

// Recognized intent names.
const (
	IntentCourseTitle     = "course-title"
	IntentCourseOutline   = "course-outline"
	IntentCourseLecturers = "course-lecturers"
	IntentLecturerCourses = "lecturer-courses"
)

// Parameter names.
const (
	ParamCourses   = "courses"
	ParamLecturers = "lecturers"
)

// Response texts.
const (
	NoCoursesSpecified  = "No courses specified"
	NoLecturerSpecified = "No lecturer is specified"
	FallbackText        = "Sorry, I can't help with that yet. Try asking about a course title, outline or lecturers."
	ErrorText           = "Sorry, course information is unavailable right now. Please try again later."
)

// Intents returns the recognized intent names.
func Intents() []string {
	return []string{IntentCourseTitle, IntentCourseOutline, IntentCourseLecturers, IntentLecturerCourses}
}

// Query is an intent plus its parameters.
type Query struct {
	Intent string
	Params map[string]StringList
}

// Resolver is the lookup surface the dispatcher needs.
type Resolver interface {
	ResolveTitles(ctx context.Context, codes []string) ([]resolver.Entry, error)
	ResolveOutlines(ctx context.Context, codes []string) ([]resolver.Entry, error)
	ResolveCourseLecturers(ctx context.Context, codes []string) ([]resolver.ListEntry, error)
	ResolveLecturerCourses(ctx context.Context, abbrevs []string) ([]resolver.ListEntry, error)
}

// MetricsRecorder records dispatch outcomes.
type MetricsRecorder interface {
	RecordFulfillment(intent, status string, duration float64)
}

type operation struct {
	param   string
	missing string
	run     func(ctx context.Context, values []string) (string, error)
}

// Dispatcher routes queries to resolver operations.
type Dispatcher struct {
	ops     map[string]operation
	metrics MetricsRecorder
	logger  *logger.Logger
}

// NewDispatcher creates a dispatcher. metrics and log may be nil.
func NewDispatcher(r Resolver, metrics MetricsRecorder, log *logger.Logger) *Dispatcher {
	if log != nil {
		log = log.WithModule("fulfillment")
	}
	d := &Dispatcher{metrics: metrics, logger: log}
	d.ops = map[string]operation{
		IntentCourseTitle: {
			param:   ParamCourses,
			missing: NoCoursesSpecified,
			run: func(ctx context.Context, codes []string) (string, error) {
				entries, err := r.ResolveTitles(ctx, codes)
				if err != nil {
					return "", err
				}
				return FormatTitles(entries), nil
			},
		},
		IntentCourseOutline: {
			param:   ParamCourses,
			missing: NoCoursesSpecified,
			run: func(ctx context.Context, codes []string) (string, error) {
				entries, err := r.ResolveOutlines(ctx, codes)
				if err != nil {
					return "", err
				}
				return FormatOutlines(entries), nil
			},
		},
		IntentCourseLecturers: {
			param:   ParamCourses,
			missing: NoCoursesSpecified,
			run: func(ctx context.Context, codes []string) (string, error) {
				entries, err := r.ResolveCourseLecturers(ctx, codes)
				if err != nil {
					return "", err
				}
				return FormatCourseLecturers(entries), nil
			},
		},
		IntentLecturerCourses: {
			param:   ParamLecturers,
			missing: NoLecturerSpecified,
			run: func(ctx context.Context, abbrevs []string) (string, error) {
				entries, err := r.ResolveLecturerCourses(ctx, abbrevs)
				if err != nil {
					return "", err
				}
				return FormatLecturerCourses(entries), nil
			},
		},
	}
	return d
}

// Dispatch runs the operation registered for q.Intent.
// A missing parameter is answered in-band without touching the resolver.
// An unknown intent returns an error wrapping ErrUnrecognizedIntent.
// Resolver failures are returned wrapped with a user-facing message.
func (d *Dispatcher) Dispatch(ctx context.Context, q Query) (string, error) {
	start := time.Now()
	ctx = ctxutil.WithIntent(ctx, q.Intent)

	op, ok := d.ops[q.Intent]
	if !ok {
		d.record("unknown", "unrecognized", start)
		return "", fmt.Errorf("%w: %q", domerrors.ErrUnrecognizedIntent, q.Intent)
	}

	values := q.Params[op.param].Values()
	if len(values) == 0 {
		d.record(q.Intent, "missing_param", start)
		return op.missing, nil
	}

	text, err := op.run(ctx, values)
	if err != nil {
		d.record(q.Intent, "error", start)
		if d.logger != nil {
			d.logger.WithError(err).WithField("param_count", len(values)).ErrorContext(ctx, "Fulfillment failed")
		}
		return "", domerrors.NewWrapper("fulfillment", q.Intent).Wrap(err, userMessage(err))
	}

	d.record(q.Intent, "success", start)
	if d.logger != nil {
		d.logger.WithField("param_count", len(values)).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			DebugContext(ctx, "Fulfillment completed")
	}
	return text, nil
}

func (d *Dispatcher) record(intent, status string, start time.Time) {
	if d.metrics != nil {
		d.metrics.RecordFulfillment(intent, status, time.Since(start).Seconds())
	}
}

func userMessage(err error) string {
	var lookupErr *domerrors.LookupError
	if errors.As(err, &lookupErr) {
		return fmt.Sprintf("Sorry, lecturer not found for abbreviation %s.", lookupErr.Abbrev)
	}
	return ErrorText
}
