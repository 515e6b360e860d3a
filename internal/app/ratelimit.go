package app

import (
	"sync"
	"time"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

// SearchLimiter is a per-user sliding-window limiter on find_partner
// requests. Retry storms from a flapping client otherwise hammer the
// queue keys.
type SearchLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
}

func NewSearchLimiter(limit int, interval time.Duration) *SearchLimiter {
	return &SearchLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *SearchLimiter) Allow(id domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[id]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[id] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[id] = fresh
	return true
}

// Forget drops a user's window, typically on disconnect.
func (rl *SearchLimiter) Forget(id domain.UserID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, id)
}
