// Package schedule decides whether an alarm is armed at a given moment,
// based on its configured day/time windows.
package schedule

import (
	"time"

	"lorasense-alarm/internal/models"
)

// Clock abstracts time.Now so window checks are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Matcher checks alarm windows against the clock. The configured offset is
// added to the UTC wall clock so windows are expressed in the deployment's
// local time.
type Matcher struct {
	clock  Clock
	offset float64 // hours added to UTC
}

// NewMatcher builds a Matcher with the given UTC offset in hours.
func NewMatcher(clock Clock, offsetHours float64) *Matcher {
	return &Matcher{clock: clock, offset: offsetHours}
}

// IsArmed reports whether the alarm should be evaluated right now. Alarms
// without an active time limit are always armed. With a time limit, the
// alarm is armed if any window matches today (window day 0 matches every
// day) and the current local time falls strictly inside the window; windows
// with End <= Start span midnight.
func (m *Matcher) IsArmed(alarm *models.Alarm) bool {
	if !alarm.IsTimeLimitActive || len(alarm.Windows) == 0 {
		return true
	}

	now := m.clock.Now()
	t := float64(now.Hour()) + float64(now.Minute())/60.0 + m.offset
	if t >= 24 {
		t -= 24
	}

	// ISO weekday, Monday=1 .. Sunday=7.
	day := int(now.Weekday())
	if day == 0 {
		day = 7
	}

	for _, w := range alarm.Windows {
		if w.Day != 0 && w.Day != day {
			continue
		}
		if inWindow(t, w.Start, w.End) {
			return true
		}
	}
	return false
}

func inWindow(t, start, end float64) bool {
	if end > start {
		return start < t && t < end
	}
	// Crosses midnight.
	return (start < t && t < 24) || (0 < t && t < end)
}
