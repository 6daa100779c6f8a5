package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lorasense-alarm/internal/schedule"
)

// TimeMatcher decides whether a time-triggered rule is due on the current
// minute. Conditions look like "1,3,5;14:30": a comma-separated day list
// (0 = Sunday .. 6 = Saturday) and a HH:MM fire time, separated by a
// semicolon, both in the deployment's local offset.
type TimeMatcher struct {
	clock  schedule.Clock
	offset float64 // hours added to UTC
}

// NewTimeMatcher builds a TimeMatcher with the given UTC offset in hours.
func NewTimeMatcher(clock schedule.Clock, offsetHours float64) *TimeMatcher {
	return &TimeMatcher{clock: clock, offset: offsetHours}
}

// Due reports whether the condition names the current local day and minute.
// The caller is expected to poll once per minute; equality on the rounded
// minute makes a missed tick a missed firing, not a double one.
func (m *TimeMatcher) Due(condition string) (bool, error) {
	days, fireAt, err := parseTimeCondition(condition)
	if err != nil {
		return false, err
	}

	now := m.clock.Now().Add(time.Duration(m.offset * float64(time.Hour)))
	if !days[int(now.Weekday())] {
		return false, nil
	}
	return now.Format("15:04") == fireAt, nil
}

func parseTimeCondition(condition string) (map[int]bool, string, error) {
	dayPart, timePart, found := strings.Cut(condition, ";")
	if !found {
		return nil, "", fmt.Errorf("%w: want days;HH:MM", ErrMalformedCondition)
	}

	fireAt, err := time.Parse("15:04", strings.TrimSpace(timePart))
	if err != nil {
		return nil, "", fmt.Errorf("%w: time %q: %v", ErrMalformedCondition, timePart, err)
	}

	days := make(map[int]bool)
	for _, d := range strings.Split(dayPart, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil || n < 0 || n > 6 {
			return nil, "", fmt.Errorf("%w: day %q", ErrMalformedCondition, d)
		}
		days[n] = true
	}
	return days, fireAt.Format("15:04"), nil
}
