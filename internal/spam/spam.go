// internal/spam/spam.go
//
// FormPlant – Spam subsystem: honeypot and rate limiting.
//
// Context
//   Two cheap gates run before validation.  The honeypot is an invisible
//   input real users never fill; bots do.  The rate limiter bounds
//   submissions per client IP per form over a sliding window.  The window
//   check-and-record happens inside one lock so concurrent abusive
//   submissions cannot undercount.
//
//------------------------------------------------------------------------------

package spam

import (
	"fmt"
	"sync"
	"time"

	"github.com/yanizio/formplant/internal/form"
)

// HoneypotField is the input name the invisible trap posts under.
const HoneypotField = "form_plant_hp"

// Window defaults applied when a form enables rate limiting without tuning
// it.
const (
	DefaultWindowMinutes = 5
	DefaultWindowCount   = 3
)

// Guard holds the in-process rate-limit windows.  One Guard serves every
// form; entries expire lazily as they slide out of their window.
type Guard struct {
	mu   sync.Mutex
	hits map[string][]time.Time

	// now is swapped in tests.
	now func() time.Time
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{hits: make(map[string][]time.Time), now: time.Now}
}

// Check applies the form's spam settings to one incoming submission.  A
// non-empty message means the submission is rejected.  A passing rate-limit
// check records the hit atomically with the check itself.
func (g *Guard) Check(fm *form.Form, values form.Values, ip string) (string, bool) {
	if fm.Spam.Honeypot && values.String(HoneypotField) != "" {
		return "Submission rejected.", true
	}
	if !fm.Spam.RateLimit || ip == "" {
		return "", false
	}

	minutes := fm.Spam.RateLimitMinutes
	if minutes <= 0 {
		minutes = DefaultWindowMinutes
	}
	limit := fm.Spam.RateLimitCount
	if limit <= 0 {
		limit = DefaultWindowCount
	}
	window := time.Duration(minutes) * time.Minute
	key := fmt.Sprintf("%d:%s", fm.ID, ip)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cutoff := now.Add(-window)
	kept := g.hits[key][:0]
	for _, t := range g.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= limit {
		g.hits[key] = kept
		return "Too many submissions.  Please try again later.", true
	}
	g.hits[key] = append(kept, now)
	return "", false
}
