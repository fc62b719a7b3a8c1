// Package tracker defines core types shared across subsystems.
package tracker

import (
	"context"
	"time"
)

// FetchRequest captures everything needed to fetch a product page.
type FetchRequest struct {
	URL string

	// Headers are merged over the default browser-like header set.
	Headers map[string]string

	// UserAgent pins every attempt to a fixed value instead of rotating.
	UserAgent string

	// Proxy overrides the configured proxy for this call. Applied to both
	// http and https requests.
	Proxy string
}

// FetchResult is the outcome of a fetch call. It carries the first
// non-transient response, or the last response when every attempt was
// classified transient.
type FetchResult struct {
	StatusCode int
	Body       string
	FinalHost  string
	Encoding   string
}

// ProductSnapshot is one fetched-and-parsed observation of a tracked
// product. Optional fields are nil when the parser found nothing; nil is
// never conflated with an empty string. Instances are immutable once
// built.
type ProductSnapshot struct {
	Title        *string   `json:"title,omitempty"`
	Price        *string   `json:"price,omitempty"`
	Availability *string   `json:"availability,omitempty"`
	ASIN         *string   `json:"asin,omitempty"`
	SKU          *string   `json:"sku,omitempty"`
	SourceURL    string    `json:"source_url"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// DiffResult reports whether a snapshot pair differs significantly.
type DiffResult struct {
	Changed bool
	Summary string
}

// CycleLog is the append-only record written after every tracking cycle.
type CycleLog struct {
	CycleID   string    `json:"cycle_id"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Persisted bool      `json:"persisted"`
	Alerted   bool      `json:"alerted"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// CycleReport is returned by a single tracking cycle.
type CycleReport struct {
	CycleID  string
	Snapshot ProductSnapshot
	Diff     DiffResult
	Alerted  bool
}

// Fetcher retrieves a page with retry and recovery behavior.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, error)
}

// Parser turns a page body into a partial snapshot. Unmatched fields stay
// nil; parsing never fails.
type Parser interface {
	Parse(body string, sourceURL string) ProductSnapshot
}

// SnapshotStore persists snapshots keyed by source URL.
type SnapshotStore interface {
	// GetLastByURL returns the most recent snapshot for the URL, or nil
	// when the URL has never been observed.
	GetLastByURL(ctx context.Context, sourceURL string) (*ProductSnapshot, error)
	Append(ctx context.Context, snap ProductSnapshot) error
}

// LogStore appends cycle log records.
type LogStore interface {
	AppendLog(ctx context.Context, entry CycleLog) error
}

// Notifier delivers a rendered alert message.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Archiver stores a raw page body and returns its location.
type Archiver interface {
	Save(ctx context.Context, sourceURL string, body []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// StringPtr returns a pointer to s, or nil when s is empty. Parsers use
// it to keep absence distinct from the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringOrEmpty dereferences an optional field for display.
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
