// Package fetch implements the resilient page fetcher: retries with
// exponential backoff, user-agent rotation, proxy support, encoding
// correction and anti-bot interstitial recovery.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/metrics"
	"github.com/aromano/pricewatch/internal/tracker"
)

// Config holds the fetcher knobs. Values come from the immutable service
// configuration, never from ambient process state.
type Config struct {
	Timeout     time.Duration
	RetryCount  int
	BackoffBase time.Duration

	// DefaultUserAgent is used on every attempt when rotation is
	// disabled and no per-call override is given.
	DefaultUserAgent string
	RotateUserAgents bool

	// Proxy applies to both http and https requests unless overridden
	// per call.
	Proxy string
}

// Fetcher performs HTTP GETs through a colly collector.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
	logger    *zap.Logger

	// sleep and pickUA are swappable in tests.
	sleep  func(time.Duration)
	pickUA func() string
}

// New builds a Fetcher with pooled transport defaults.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.RetryCount < 1 {
		cfg.RetryCount = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 700 * time.Millisecond
	}
	return &Fetcher{
		cfg: cfg,
		transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		},
		logger: logger,
		sleep:  time.Sleep,
		pickUA: randomUserAgent,
	}
}

// SetTransport swaps the underlying RoundTripper (tests).
func (f *Fetcher) SetTransport(rt http.RoundTripper) {
	f.transport = rt
}

// Fetch retrieves the URL with up to RetryCount sequential attempts.
// It returns the first non-transient response, the last response when
// every attempt was transient, or a *tracker.NetworkError when no
// response was obtained at all.
func (f *Fetcher) Fetch(ctx context.Context, req tracker.FetchRequest) (tracker.FetchResult, error) {
	var (
		lastErr error
		lastRes tracker.FetchResult
		haveRes bool
	)

	for attempt := 1; attempt <= f.cfg.RetryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			break
		}

		metrics.ObserveFetchAttempt(req.URL)
		res, transient, err := f.attempt(ctx, req)
		switch {
		case err == nil && !transient:
			return res, nil
		case err == nil:
			lastRes, haveRes = res, true
			lastErr = fmt.Errorf("transient status %d", res.StatusCode)
			f.logger.Warn("transient response",
				zap.String("url", req.URL),
				zap.Int("status", res.StatusCode),
				zap.Int("attempt", attempt),
				zap.Int("attempts", f.cfg.RetryCount),
			)
		default:
			lastErr = err
			f.logger.Warn("fetch attempt failed",
				zap.String("url", req.URL),
				zap.Int("attempt", attempt),
				zap.Int("attempts", f.cfg.RetryCount),
				zap.Error(err),
			)
		}

		if attempt < f.cfg.RetryCount {
			delay := f.cfg.BackoffBase * time.Duration(1<<(attempt-1))
			f.sleep(delay)
		}
	}

	if haveRes {
		return lastRes, nil
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return tracker.FetchResult{}, &tracker.NetworkError{
		URL:      req.URL,
		Attempts: f.cfg.RetryCount,
		Err:      lastErr,
	}
}

// attempt performs one GET and classifies the outcome. transient covers
// 403/429 anti-bot blocks and 5xx server errors.
func (f *Fetcher) attempt(ctx context.Context, req tracker.FetchRequest) (tracker.FetchResult, bool, error) {
	raw, err := f.doGet(req.URL, f.attemptUserAgent(req), req)
	if err != nil {
		return tracker.FetchResult{}, true, err
	}
	if err := ctx.Err(); err != nil {
		return tracker.FetchResult{}, false, err
	}

	if raw.statusCode == http.StatusOK && isAmazonHost(raw.finalHost) && hasInterstitialMarker(string(raw.body)) {
		recovered, rerr := f.recoverInterstitial(req, raw)
		if rerr != nil {
			return tracker.FetchResult{}, true, fmt.Errorf("interstitial recovery: %w", rerr)
		}
		raw = recovered
	}

	body, encName := decodeBody(raw.body, raw.contentType)
	res := tracker.FetchResult{
		StatusCode: raw.statusCode,
		Body:       body,
		FinalHost:  raw.finalHost,
		Encoding:   encName,
	}
	transient := raw.statusCode == http.StatusForbidden ||
		raw.statusCode == http.StatusTooManyRequests ||
		raw.statusCode >= 500
	return res, transient, nil
}

// recoverInterstitial re-issues the request once against the m. mobile
// subdomain with a freshly rotated user agent.
func (f *Fetcher) recoverInterstitial(req tracker.FetchRequest, original rawResponse) (rawResponse, error) {
	mobileURL, ok := mobileVariant("https://" + original.finalHost + original.finalPath)
	if !ok {
		return original, nil
	}
	f.logger.Info("anti-bot interstitial detected, retrying mobile host",
		zap.String("url", req.URL),
		zap.String("mobile_url", mobileURL),
	)
	return f.doGet(mobileURL, f.pickUA(), req)
}

func (f *Fetcher) attemptUserAgent(req tracker.FetchRequest) string {
	if req.UserAgent != "" {
		return req.UserAgent
	}
	if !f.cfg.RotateUserAgents && f.cfg.DefaultUserAgent != "" {
		return f.cfg.DefaultUserAgent
	}
	return f.pickUA()
}

type rawResponse struct {
	statusCode  int
	body        []byte
	contentType string
	finalHost   string
	finalPath   string
}

type collyResult struct {
	raw rawResponse
	err error
}

// doGet issues a single GET through a fresh collector clone. Non-2xx
// responses are delivered as results, not errors, so classification is an
// explicit branch for the caller.
func (f *Fetcher) doGet(rawURL, userAgent string, req tracker.FetchRequest) (rawResponse, error) {
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(f.cfg.Timeout)
	if f.transport != nil {
		c.WithTransport(f.transport)
	}
	if proxy := f.proxyFor(req); proxy != "" {
		if err := c.SetProxy(proxy); err != nil {
			return rawResponse{}, fmt.Errorf("set proxy: %w", err)
		}
	}

	resultCh := make(chan collyResult, 1)
	var once sync.Once
	send := func(res collyResult) {
		once.Do(func() { resultCh <- res })
	}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", userAgent)
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		if r.Headers.Get("Referer") == "" {
			r.Headers.Set("Referer", "https://www.google.com/")
		}
		for k, v := range req.Headers {
			r.Headers.Set(k, v)
		}
	})

	c.OnResponse(func(r *colly.Response) {
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		send(collyResult{raw: rawResponse{
			statusCode:  r.StatusCode,
			body:        append([]byte(nil), r.Body...),
			contentType: contentType,
			finalHost:   r.Request.URL.Host,
			finalPath:   r.Request.URL.RequestURI(),
		}})
	})

	c.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown transport error")
		}
		send(collyResult{err: err})
	})

	if err := c.Visit(rawURL); err != nil {
		return rawResponse{}, err
	}
	c.Wait()

	select {
	case res := <-resultCh:
		return res.raw, res.err
	default:
		return rawResponse{}, errors.New("fetch produced no result")
	}
}

func (f *Fetcher) proxyFor(req tracker.FetchRequest) string {
	if req.Proxy != "" {
		return req.Proxy
	}
	return f.cfg.Proxy
}
