// Package archive stores raw page bodies captured when a tracked page
// changes, so a diff can be replayed or audited later.
package archive

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// objectPath builds a stable, filesystem-safe path for an archived body:
// <host>/<yyyy>/<mm>/<dd>/<unix-nanos>.html
func objectPath(sourceURL string, at time.Time) string {
	host := "unknown"
	if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
		host = sanitize(u.Host)
	}
	return fmt.Sprintf("%s/%s/%d.html", host, at.UTC().Format("2006/01/02"), at.UTC().UnixNano())
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
