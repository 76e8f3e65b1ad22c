package handlers

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pushLimiter caps push requests per user. Offline clients reconnecting
// after days can burst a full minute's quota at once, then settle into
// the steady rate.
type pushLimiter struct {
	mu        sync.Mutex
	perMinute int
	users     map[string]*rate.Limiter
}

func newPushLimiter(perMinute int) *pushLimiter {
	return &pushLimiter{
		perMinute: perMinute,
		users:     make(map[string]*rate.Limiter),
	}
}

func (l *pushLimiter) Allow(userID string) bool {
	if l.perMinute <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.users[userID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
