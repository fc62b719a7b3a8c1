package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/tracker"
)

func newTestFetcher(cfg Config, transport http.RoundTripper) *Fetcher {
	f := New(cfg, zap.NewNop())
	f.SetTransport(transport)
	f.sleep = func(time.Duration) {}
	return f
}

func TestFetchSuccess(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.test/product",
		httpmock.NewStringResponder(http.StatusOK, "<html><title>Widget</title></html>"))

	f := newTestFetcher(Config{RetryCount: 3}, transport)

	res, err := f.Fetch(context.Background(), tracker.FetchRequest{URL: "https://example.test/product"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.Body != "<html><title>Widget</title></html>" {
		t.Errorf("Body = %q", res.Body)
	}
	if res.FinalHost != "example.test" {
		t.Errorf("FinalHost = %q, want example.test", res.FinalHost)
	}
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotAccept, gotCustom string
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.test/",
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			gotAccept = req.Header.Get("Accept-Language")
			gotCustom = req.Header.Get("X-Extra")
			return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
		})

	f := newTestFetcher(Config{RetryCount: 1}, transport)

	_, err := f.Fetch(context.Background(), tracker.FetchRequest{
		URL:       "https://example.test/",
		UserAgent: "pinned-agent/1.0",
		Headers:   map[string]string{"X-Extra": "yes"},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotUA != "pinned-agent/1.0" {
		t.Errorf("User-Agent = %q, want pinned override", gotUA)
	}
	if gotAccept == "" {
		t.Error("Accept-Language header missing")
	}
	if gotCustom != "yes" {
		t.Errorf("X-Extra = %q, want yes", gotCustom)
	}
}

func TestFetchRetriesTransientStatuses(t *testing.T) {
	var calls atomic.Int32
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.test/flaky",
		func(*http.Request) (*http.Response, error) {
			if calls.Add(1) < 3 {
				return httpmock.NewStringResponse(http.StatusServiceUnavailable, "down"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, "recovered"), nil
		})

	var delays []time.Duration
	f := New(Config{RetryCount: 4, BackoffBase: 100 * time.Millisecond}, zap.NewNop())
	f.SetTransport(transport)
	f.sleep = func(d time.Duration) { delays = append(delays, d) }

	res, err := f.Fetch(context.Background(), tracker.FetchRequest{URL: "https://example.test/flaky"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200 after retries", res.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestFetchReturnsLastTransientResponse(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.test/blocked",
		httpmock.NewStringResponder(http.StatusTooManyRequests, "slow down"))

	f := newTestFetcher(Config{RetryCount: 3}, transport)

	res, err := f.Fetch(context.Background(), tracker.FetchRequest{URL: "https://example.test/blocked"})
	if err != nil {
		t.Fatalf("Fetch() error = %v, want last response without error", err)
	}
	if res.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", res.StatusCode)
	}
	if res.Body != "slow down" {
		t.Errorf("Body = %q", res.Body)
	}
}

func TestFetchNetworkErrorAfterExhaustion(t *testing.T) {
	var calls atomic.Int32
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://unreachable.test/",
		func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("connection refused")
		})

	f := newTestFetcher(Config{RetryCount: 3}, transport)

	_, err := f.Fetch(context.Background(), tracker.FetchRequest{URL: "https://unreachable.test/"})
	var netErr *tracker.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Fetch() error = %v, want *tracker.NetworkError", err)
	}
	if netErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", netErr.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("transport calls = %d, want 3", got)
	}
}

func TestFetchNonTransientStatusReturnsImmediately(t *testing.T) {
	var calls atomic.Int32
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.test/gone",
		func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return httpmock.NewStringResponse(http.StatusNotFound, "gone"), nil
		})

	f := newTestFetcher(Config{RetryCount: 5}, transport)

	res, err := f.Fetch(context.Background(), tracker.FetchRequest{URL: "https://example.test/gone"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", res.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("transport calls = %d, want 1 for non-transient status", got)
	}
}

func TestFetchRecoversAmazonInterstitial(t *testing.T) {
	const interstitial = `<html><title>Robot Check</title>
<p>To discuss automated access to Amazon data please contact us.</p></html>`
	const productPage = `<html><span id="productTitle">Widget Deluxe</span></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://www.amazon.com/dp/B00TEST",
		httpmock.NewStringResponder(http.StatusOK, interstitial))
	transport.RegisterResponder("GET", "https://m.amazon.com/dp/B00TEST",
		httpmock.NewStringResponder(http.StatusOK, productPage))

	f := newTestFetcher(Config{RetryCount: 1}, transport)

	res, err := f.Fetch(context.Background(), tracker.FetchRequest{URL: "https://www.amazon.com/dp/B00TEST"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Body != productPage {
		t.Errorf("Body = %q, want mobile page body", res.Body)
	}
	if res.FinalHost != "m.amazon.com" {
		t.Errorf("FinalHost = %q, want m.amazon.com", res.FinalHost)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.test/",
		httpmock.NewStringResponder(http.StatusOK, "ok"))

	f := newTestFetcher(Config{RetryCount: 3}, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, tracker.FetchRequest{URL: "https://example.test/"})
	var netErr *tracker.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Fetch() error = %v, want *tracker.NetworkError", err)
	}
}

func TestAttemptUserAgentSelection(t *testing.T) {
	f := New(Config{RetryCount: 1, DefaultUserAgent: "configured/1.0"}, zap.NewNop())
	f.pickUA = func() string { return "rotated/1.0" }

	if got := f.attemptUserAgent(tracker.FetchRequest{UserAgent: "pinned/1.0"}); got != "pinned/1.0" {
		t.Errorf("override: got %q", got)
	}

	f.cfg.RotateUserAgents = false
	if got := f.attemptUserAgent(tracker.FetchRequest{}); got != "configured/1.0" {
		t.Errorf("rotation off: got %q, want configured default", got)
	}

	f.cfg.RotateUserAgents = true
	if got := f.attemptUserAgent(tracker.FetchRequest{}); got != "rotated/1.0" {
		t.Errorf("rotation on: got %q, want pooled agent", got)
	}
}
