package oracle

import (
	"time"

	"github.com/teranos/exchainge/amount"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

const secondsPerDay = 24 * 60 * 60

// Day returns the UTC day number of t, counted from the Unix epoch.
func Day(t time.Time) int64 {
	return t.Unix() / secondsPerDay
}

// ConsumeQuota counts one verification against q for the day containing now.
// A stored day that differs from today resets the counter first. When the
// count would exceed max, q is left unchanged and ErrDailyLimitExceeded is
// returned.
func ConsumeQuota(q *types.OracleQuota, now time.Time, max uint16) error {
	day := Day(now)
	today := q.Today
	if q.LastDay != day {
		today = 0
	}
	if uint32(today)+1 > uint32(max) {
		return errors.Wrapf(ErrDailyLimitExceeded, "%d of %d used on day %d", today, max, day)
	}
	total, err := amount.Inc(q.TotalVerifications)
	if err != nil {
		return errors.Wrap(err, "oracle total verifications")
	}

	q.LastDay = day
	q.Today = today + 1
	q.TotalVerifications = total
	return nil
}

// Remaining reports how many verifications q has left today under max.
func Remaining(q types.OracleQuota, now time.Time, max uint16) uint16 {
	used := q.Today
	if q.LastDay != Day(now) {
		used = 0
	}
	if used >= max {
		return 0
	}
	return max - used
}
