package config

import (
	"testing"
	"time"
)

// TestTimeoutOrdering verifies the timeout constants stay mutually consistent.
func TestTimeoutOrdering(t *testing.T) {
	tests := []struct {
		name  string
		small time.Duration
		large time.Duration
	}{
		{"fetch fits in write timeout", TableFetch, WebhookHTTPWrite},
		{"nlu fits in write timeout", NLUParse, WebhookHTTPWrite},
		{"retry delay below fetch timeout", TableFetchRetryInitial, TableFetch},
		{"readiness below write timeout", ReadinessCheckTimeout, WebhookHTTPWrite},
		{"read below idle", WebhookHTTPRead, WebhookHTTPIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.small >= tt.large {
				t.Errorf("%v should be smaller than %v", tt.small, tt.large)
			}
		})
	}
}
