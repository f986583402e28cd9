package oracle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/exchainge/errors"
)

// Throttle is a per-oracle token bucket on top of the daily quota. It keeps
// bursts from one device from draining a whole day's allowance at once.
// State is in memory only; a restart refills every bucket.
type Throttle struct {
	perMinute int
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewThrottle allows perMinute submissions per oracle per minute, with a
// burst of the same size. perMinute <= 0 disables throttling.
func NewThrottle(perMinute int) *Throttle {
	return &Throttle{perMinute: perMinute, limiters: make(map[string]*rate.Limiter)}
}

// Enabled reports whether the throttle limits anything.
func (t *Throttle) Enabled() bool {
	return t != nil && t.perMinute > 0
}

// Allow takes one token for oracleID at now. Times come from the caller's
// clock so tests can drive the bucket deterministically.
func (t *Throttle) Allow(oracleID string, now time.Time) error {
	if !t.Enabled() {
		return nil
	}

	t.mu.Lock()
	lim, ok := t.limiters[oracleID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(t.perMinute)), t.perMinute)
		t.limiters[oracleID] = lim
	}
	t.mu.Unlock()

	if !lim.AllowN(now, 1) {
		return errors.Wrapf(ErrThrottled, "oracle %s exceeded %d per minute", oracleID, t.perMinute)
	}
	return nil
}
