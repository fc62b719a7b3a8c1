// Package diff implements the threshold-based change detector for
// product snapshots.
package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aromano/pricewatch/internal/tracker"
)

// Options control which field deltas count as significant.
type Options struct {
	// PriceThresholdPct suppresses price deltas below this percentage.
	// Zero means any nonzero delta counts.
	PriceThresholdPct float64

	// AlertOnAvailability enables availability comparison.
	AlertOnAvailability bool
}

// Diff compares two snapshots of the same tracked product. A nil prev
// marks the first observation: the baseline is reported but never counts
// as a change.
func Diff(prev *tracker.ProductSnapshot, curr tracker.ProductSnapshot, opts Options) tracker.DiffResult {
	if prev == nil {
		summary := fmt.Sprintf("Initial snapshot. price=%s, availability=%s",
			tracker.StringOrEmpty(curr.Price),
			tracker.StringOrEmpty(curr.Availability),
		)
		return tracker.DiffResult{Changed: false, Summary: summary}
	}

	var changes []string
	belowThreshold := false

	prevVal, prevOK := NormalizePrice(prev.Price)
	currVal, currOK := NormalizePrice(curr.Price)
	switch {
	case !prevOK && !currOK:
		// No price on either side.
	case prevOK != currOK:
		// Field appeared or disappeared; always significant.
		changes = append(changes, fmt.Sprintf("price: %s → %s",
			tracker.StringOrEmpty(prev.Price), tracker.StringOrEmpty(curr.Price)))
	case prevVal != currVal:
		delta := deltaPct(prevVal, currVal)
		if delta >= opts.PriceThresholdPct {
			changes = append(changes, fmt.Sprintf("price: %s → %s (Δ%.2f%%)",
				tracker.StringOrEmpty(prev.Price), tracker.StringOrEmpty(curr.Price), delta))
		} else {
			belowThreshold = true
		}
	}

	if opts.AlertOnAvailability {
		prevAvail := strings.TrimSpace(tracker.StringOrEmpty(prev.Availability))
		currAvail := strings.TrimSpace(tracker.StringOrEmpty(curr.Availability))
		if prevAvail != currAvail {
			changes = append(changes, fmt.Sprintf("availability: %s → %s", prevAvail, currAvail))
		}
	}

	if len(changes) == 0 {
		if belowThreshold {
			return tracker.DiffResult{
				Changed: false,
				Summary: fmt.Sprintf("No changes (price delta below %s%%)",
					strconv.FormatFloat(opts.PriceThresholdPct, 'f', -1, 64)),
			}
		}
		return tracker.DiffResult{Changed: false, Summary: "No changes"}
	}

	return tracker.DiffResult{Changed: true, Summary: strings.Join(changes, "; ")}
}

// deltaPct returns the percent change between two prices. A zero previous
// price is defined as a 100% delta.
func deltaPct(prev, curr float64) float64 {
	if prev == 0 {
		return 100
	}
	d := (curr - prev) / prev * 100
	if d < 0 {
		d = -d
	}
	return d
}

// NormalizePrice extracts a numeric value from a raw display string such
// as "£1,234.56" or "1.234,56 €". It keeps only digits, commas and dots.
// When both separators appear, the rightmost one is the decimal point; a
// lone comma is the decimal point. A string that yields no numeric value
// is absent, never zero.
func NormalizePrice(raw *string) (float64, bool) {
	if raw == nil {
		return 0, false
	}

	var b strings.Builder
	for _, r := range *raw {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndexByte(s, ',')
	lastDot := strings.LastIndexByte(s, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
