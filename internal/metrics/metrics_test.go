package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if trackerCyclesTotal == nil || trackerFetchAttemptsTotal == nil ||
		trackerChangesTotal == nil || trackerAlertsTotal == nil || trackerCycleSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCycleCountsBySite(t *testing.T) {
	Init()

	before := testutil.ToFloat64(trackerCyclesTotal.WithLabelValues("cycle-metrics.test", "changed"))
	ObserveCycle("https://cycle-metrics.test/product", "changed", 250*time.Millisecond)
	after := testutil.ToFloat64(trackerCyclesTotal.WithLabelValues("cycle-metrics.test", "changed"))

	if after != before+1 {
		t.Errorf("cycle counter = %f, want %f", after, before+1)
	}
}

func TestObserveCounters(t *testing.T) {
	Init()

	ObserveFetchAttempt("https://counter-metrics.test/p")
	ObserveChange("https://counter-metrics.test/p")
	ObserveAlert("https://counter-metrics.test/p")

	if got := testutil.ToFloat64(trackerFetchAttemptsTotal.WithLabelValues("counter-metrics.test")); got < 1 {
		t.Errorf("fetch attempts = %f, want >= 1", got)
	}
	if got := testutil.ToFloat64(trackerChangesTotal.WithLabelValues("counter-metrics.test")); got < 1 {
		t.Errorf("changes = %f, want >= 1", got)
	}
	if got := testutil.ToFloat64(trackerAlertsTotal.WithLabelValues("counter-metrics.test")); got < 1 {
		t.Errorf("alerts = %f, want >= 1", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
