package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lorasense-alarm/internal/models"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// 2024-03-13 is a Wednesday.
func at(hour, minute int) Clock {
	return fixedClock{t: time.Date(2024, 3, 13, hour, minute, 0, 0, time.UTC)}
}

func timeLimited(windows ...models.AlarmWindow) *models.Alarm {
	return &models.Alarm{IsTimeLimitActive: true, Windows: windows}
}

func TestIsArmedWithoutTimeLimit(t *testing.T) {
	m := NewMatcher(at(3, 0), 3)
	assert.True(t, m.IsArmed(&models.Alarm{IsTimeLimitActive: false}))
	assert.True(t, m.IsArmed(&models.Alarm{IsTimeLimitActive: true}), "time limit with no windows never disarms")
}

func TestIsArmedDayWindow(t *testing.T) {
	// 09:30 UTC + 3h offset = 12.5 local.
	alarm := timeLimited(models.AlarmWindow{Day: 0, Start: 9, End: 18})
	assert.True(t, NewMatcher(at(9, 30), 3).IsArmed(alarm))

	// 05:00 UTC + 3 = 8.0, outside.
	assert.False(t, NewMatcher(at(5, 0), 3).IsArmed(alarm))

	// Boundaries are exclusive: 06:00 UTC + 3 = 9.0 exactly.
	assert.False(t, NewMatcher(at(6, 0), 3).IsArmed(alarm))
}

func TestIsArmedOvernightWindow(t *testing.T) {
	alarm := timeLimited(models.AlarmWindow{Day: 0, Start: 22, End: 6})

	// 20:00 UTC + 3 = 23.0 → inside the pre-midnight half.
	assert.True(t, NewMatcher(at(20, 0), 3).IsArmed(alarm))
	// 23:00 UTC + 3 = 26 → wraps to 2.0 → inside the post-midnight half.
	assert.True(t, NewMatcher(at(23, 0), 3).IsArmed(alarm))
	// 09:00 UTC + 3 = 12.0 → outside.
	assert.False(t, NewMatcher(at(9, 0), 3).IsArmed(alarm))
}

func TestIsArmedWeekdayFilter(t *testing.T) {
	wednesday := models.AlarmWindow{Day: 3, Start: 0, End: 24}
	sunday := models.AlarmWindow{Day: 7, Start: 0, End: 24}

	m := NewMatcher(at(10, 0), 0)
	assert.True(t, m.IsArmed(timeLimited(wednesday)))
	assert.False(t, m.IsArmed(timeLimited(sunday)))
	assert.True(t, m.IsArmed(timeLimited(sunday, wednesday)), "any matching window arms the alarm")
}

func TestIsArmedOffsetWrap(t *testing.T) {
	// 22:30 UTC + 3 = 25.5 → 1.5 local.
	alarm := timeLimited(models.AlarmWindow{Day: 0, Start: 1, End: 2})
	assert.True(t, NewMatcher(at(22, 30), 3).IsArmed(alarm))
	assert.False(t, NewMatcher(at(22, 30), 0).IsArmed(alarm))
}
