// Package track orchestrates tracking cycles: fetch, parse, diff,
// persist, alert, archive, log.
package track

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/diff"
	"github.com/aromano/pricewatch/internal/metrics"
	"github.com/aromano/pricewatch/internal/tracker"
)

// Cycle outcome labels recorded in cycle logs and metrics.
const (
	StatusChanged   = "changed"
	StatusUnchanged = "unchanged"
	StatusError     = "error"
)

// Options control what a cycle does beyond fetch+diff.
type Options struct {
	Diff diff.Options

	// Persist appends the new snapshot to the store.
	Persist bool

	// Notify sends an alert when a change is detected. NotifyAlways sends
	// one even for unchanged cycles.
	Notify       bool
	NotifyAlways bool

	// TargetDelay spaces out consecutive targets in RunList.
	TargetDelay time.Duration
}

// Runner executes tracking cycles against configured collaborators.
// Notifier, LogStore and Archiver are optional; a nil value disables that
// step.
type Runner struct {
	fetcher  tracker.Fetcher
	parser   tracker.Parser
	store    tracker.SnapshotStore
	logs     tracker.LogStore
	notifier tracker.Notifier
	archiver tracker.Archiver
	clock    tracker.Clock
	logger   *zap.Logger
	opts     Options

	newID func() string
	sleep func(time.Duration)
}

// NewRunner wires a Runner. fetcher, parser and store are required.
func NewRunner(
	fetcher tracker.Fetcher,
	parser tracker.Parser,
	store tracker.SnapshotStore,
	logger *zap.Logger,
	opts Options,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher: fetcher,
		parser:  parser,
		store:   store,
		clock:   tracker.SystemClock{},
		logger:  logger,
		opts:    opts,
		newID:   uuid.NewString,
		sleep:   time.Sleep,
	}
}

// WithLogStore enables cycle logging.
func (r *Runner) WithLogStore(logs tracker.LogStore) *Runner {
	r.logs = logs
	return r
}

// WithNotifier enables alert delivery.
func (r *Runner) WithNotifier(n tracker.Notifier) *Runner {
	r.notifier = n
	return r
}

// WithArchiver enables raw-body archiving of changed pages.
func (r *Runner) WithArchiver(a tracker.Archiver) *Runner {
	r.archiver = a
	return r
}

// WithClock swaps the time source (tests).
func (r *Runner) WithClock(c tracker.Clock) *Runner {
	r.clock = c
	return r
}

// RunCycle executes one tracking cycle for a single URL. Fetch and store
// read/write failures abort the cycle; alert, archive and cycle-log
// failures are logged and swallowed.
func (r *Runner) RunCycle(ctx context.Context, url string) (tracker.CycleReport, error) {
	cycleID := r.newID()
	start := time.Now()

	res, err := r.fetcher.Fetch(ctx, tracker.FetchRequest{URL: url})
	if err != nil {
		r.finishCycle(ctx, cycleID, url, StatusError, tracker.ProductSnapshot{}, tracker.DiffResult{}, false, false, err, start)
		return tracker.CycleReport{CycleID: cycleID}, err
	}

	snap := r.parser.Parse(res.Body, url)
	snap.SourceURL = url
	snap.FetchedAt = r.clock.Now()

	prev, err := r.store.GetLastByURL(ctx, url)
	if err != nil {
		err = fmt.Errorf("load previous snapshot: %w", err)
		r.finishCycle(ctx, cycleID, url, StatusError, snap, tracker.DiffResult{}, false, false, err, start)
		return tracker.CycleReport{CycleID: cycleID, Snapshot: snap}, err
	}

	d := diff.Diff(prev, snap, r.opts.Diff)

	persisted := false
	if r.opts.Persist {
		if err := r.store.Append(ctx, snap); err != nil {
			err = fmt.Errorf("persist snapshot: %w", err)
			r.finishCycle(ctx, cycleID, url, StatusError, snap, d, false, false, err, start)
			return tracker.CycleReport{CycleID: cycleID, Snapshot: snap, Diff: d}, err
		}
		persisted = true
	}

	alerted := false
	if r.notifier != nil && r.opts.Notify && (d.Changed || r.opts.NotifyAlways) {
		msg := renderAlert(snap, d)
		if sendErr := r.notifier.Send(ctx, msg); sendErr != nil {
			r.logger.Warn("alert delivery failed",
				zap.String("cycle_id", cycleID),
				zap.String("url", url),
				zap.Error(sendErr),
			)
		} else {
			alerted = true
			metrics.ObserveAlert(url)
		}
	}

	if r.archiver != nil && d.Changed {
		if loc, archErr := r.archiver.Save(ctx, url, []byte(res.Body)); archErr != nil {
			r.logger.Warn("archive failed",
				zap.String("cycle_id", cycleID),
				zap.String("url", url),
				zap.Error(archErr),
			)
		} else {
			r.logger.Debug("archived page body",
				zap.String("cycle_id", cycleID),
				zap.String("location", loc),
			)
		}
	}

	status := StatusUnchanged
	if d.Changed {
		status = StatusChanged
		metrics.ObserveChange(url)
	}
	r.finishCycle(ctx, cycleID, url, status, snap, d, persisted, alerted, nil, start)

	return tracker.CycleReport{
		CycleID:  cycleID,
		Snapshot: snap,
		Diff:     d,
		Alerted:  alerted,
	}, nil
}

// RunList runs a cycle per target. One target failing never stops the
// rest; errors are logged and the loop moves on.
func (r *Runner) RunList(ctx context.Context, urls []string) []tracker.CycleReport {
	reports := make([]tracker.CycleReport, 0, len(urls))
	for i, url := range urls {
		if ctx.Err() != nil {
			break
		}
		report, err := r.RunCycle(ctx, url)
		if err != nil {
			r.logger.Error("cycle failed",
				zap.String("url", url),
				zap.Error(err),
			)
		}
		reports = append(reports, report)
		if r.opts.TargetDelay > 0 && i < len(urls)-1 {
			r.sleep(r.opts.TargetDelay)
		}
	}
	return reports
}

// Digest renders a plain-text summary of the latest stored snapshot for
// each target.
func (r *Runner) Digest(ctx context.Context, urls []string) (string, error) {
	var b strings.Builder
	b.WriteString("Tracked products:\n")
	for _, url := range urls {
		snap, err := r.store.GetLastByURL(ctx, url)
		if err != nil {
			return "", fmt.Errorf("load snapshot for %s: %w", url, err)
		}
		if snap == nil {
			fmt.Fprintf(&b, "- %s: no observations yet\n", url)
			continue
		}
		title := tracker.StringOrEmpty(snap.Title)
		if title == "" {
			title = url
		}
		fmt.Fprintf(&b, "- %s: price=%s availability=%s (as of %s)\n",
			title,
			valueOrDash(snap.Price),
			valueOrDash(snap.Availability),
			snap.FetchedAt.Format(time.RFC3339),
		)
	}
	return b.String(), nil
}

func (r *Runner) finishCycle(
	ctx context.Context,
	cycleID, url, status string,
	snap tracker.ProductSnapshot,
	d tracker.DiffResult,
	persisted, alerted bool,
	cycleErr error,
	start time.Time,
) {
	metrics.ObserveCycle(url, status, time.Since(start))

	entry := tracker.CycleLog{
		CycleID:   cycleID,
		URL:       url,
		Status:    status,
		Title:     tracker.StringOrEmpty(snap.Title),
		Summary:   d.Summary,
		Persisted: persisted,
		Alerted:   alerted,
		At:        r.clock.Now(),
	}
	if cycleErr != nil {
		entry.Error = cycleErr.Error()
	}

	if r.logs != nil {
		if err := r.logs.AppendLog(ctx, entry); err != nil {
			r.logger.Warn("cycle log append failed",
				zap.String("cycle_id", cycleID),
				zap.Error(err),
			)
		}
	}

	r.logger.Info("cycle finished",
		zap.String("cycle_id", cycleID),
		zap.String("url", url),
		zap.String("status", status),
		zap.String("summary", d.Summary),
		zap.Bool("persisted", persisted),
		zap.Bool("alerted", alerted),
	)
}

func renderAlert(snap tracker.ProductSnapshot, d tracker.DiffResult) string {
	title := tracker.StringOrEmpty(snap.Title)
	if title == "" {
		title = snap.SourceURL
	}
	return fmt.Sprintf("%s\n%s\n%s", title, d.Summary, snap.SourceURL)
}

func valueOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
