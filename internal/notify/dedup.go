package notify

import (
	"fmt"
	"sync"
	"time"
)

// Deduper suppresses repeat notifications for the same key within a
// window. Best effort: the cache is in-memory and resets on restart,
// which is acceptable for at-most-daily alert suppression.
type Deduper struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

// NewDeduper creates a Deduper with the given suppression window.
func NewDeduper(window time.Duration) *Deduper {
	return &Deduper{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// ShouldSend reports whether a notification for the key may be sent, and
// records it as sent when allowed.
func (d *Deduper) ShouldSend(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now

	// Opportunistic cleanup keeps the map from growing unbounded.
	for k, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, k)
		}
	}
	return true
}

// BudgetAlertKey builds the dedup key for a budget alert.
func BudgetAlertKey(userID, categoryID uint, overBudget bool) string {
	kind := "warning"
	if overBudget {
		kind = "over_budget"
	}
	return fmt.Sprintf("budget:%d:%d:%s", userID, categoryID, kind)
}
