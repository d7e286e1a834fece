package challenge

import (
	"sort"
	"time"

	"github.com/univio-api/internal/domain"
)

// rateWindow rejects an issue when limit issuances already fall inside span.
type rateWindow struct {
	name  string
	span  time.Duration
	limit int
}

var rateWindows = []rateWindow{
	{name: "30s", span: 30 * time.Second, limit: 2},
	{name: "60m", span: 60 * time.Minute, limit: 5},
}

// HistoryRetention is how long issuance timestamps are kept: the longest window.
const HistoryRetention = 60 * time.Minute

// checkRate returns a *domain.RateLimitError for the most restrictive
// violated window, or nil. When several windows are violated the caller must
// wait for the latest of them.
func checkRate(issuances []time.Time, now time.Time) (*domain.RateLimitError, string) {
	var worst *domain.RateLimitError
	var worstName string
	for _, w := range rateWindows {
		cutoff := now.Add(-w.span)
		var inWindow []time.Time
		for _, t := range issuances {
			if t.After(cutoff) {
				inWindow = append(inWindow, t)
			}
		}
		if len(inWindow) < w.limit {
			continue
		}
		sort.Slice(inWindow, func(i, j int) bool { return inWindow[i].Before(inWindow[j]) })
		// The window frees up once enough of the oldest entries age out.
		pivot := inWindow[len(inWindow)-w.limit]
		retry := pivot.Add(w.span).Sub(now)
		if worst == nil || retry > worst.RetryAfter {
			worst = &domain.RateLimitError{Window: w.span, RetryAfter: retry}
			worstName = w.name
		}
	}
	return worst, worstName
}
