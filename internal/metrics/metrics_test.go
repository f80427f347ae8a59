package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m.FulfillmentRequestsTotal == nil || m.FulfillmentDurationSeconds == nil {
		t.Error("fulfillment metrics are nil")
	}
	if m.TableFetchTotal == nil || m.TableFetchDurationSeconds == nil {
		t.Error("table fetch metrics are nil")
	}
	if m.NLURequestsTotal == nil || m.ChannelRequestsTotal == nil {
		t.Error("channel metrics are nil")
	}
	if m.RateLimiterDropped == nil || m.RateLimiterClients == nil {
		t.Error("rate limiter metrics are nil")
	}
}

func TestRecordFulfillment(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordFulfillment("course-title", "success", 0.2)
	m.RecordFulfillment("course-title", "success", 0.3)
	m.RecordFulfillment("lecturer-courses", "error", 1.0)

	if got := testutil.ToFloat64(m.FulfillmentRequestsTotal.WithLabelValues("course-title", "success")); got != 2 {
		t.Errorf("course-title success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FulfillmentRequestsTotal.WithLabelValues("lecturer-courses", "error")); got != 1 {
		t.Errorf("lecturer-courses error = %v, want 1", got)
	}
}

func TestRecordTableFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordTableFetch("ug_courses", "success", 0.1)
	m.RecordTableFetch("ug_courses", "empty", 0.1)

	if got := testutil.ToFloat64(m.TableFetchTotal.WithLabelValues("ug_courses", "empty")); got != 1 {
		t.Errorf("ug_courses empty = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.TableFetchDurationSeconds); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestRecordChannelAndLimiter(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordChannelRequest("relay", "success")
	m.RecordNLU("gemini", "success")
	m.RecordRateLimiterDrop("relay")
	m.SetRateLimiterClients(4)

	if got := testutil.ToFloat64(m.ChannelRequestsTotal.WithLabelValues("relay", "success")); got != 1 {
		t.Errorf("relay success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.NLURequestsTotal.WithLabelValues("gemini", "success")); got != 1 {
		t.Errorf("nlu gemini = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues("relay")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RateLimiterClients); got != 4 {
		t.Errorf("clients = %v, want 4", got)
	}
}
