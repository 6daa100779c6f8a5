package models

import "github.com/google/uuid"

// Zone categories select the threshold evaluation strategy.
const (
	ZoneCategoryDefault    = 0 // immediate fire on breach
	ZoneCategoryDefrost    = 1 // trend-gated (refrigeration/defrost zones)
	ZoneCategoryIndustrial = 2 // immediate fire on breach
)

// AlarmWindow is one day/time range during which an alarm is armed.
// Day is ISO weekday 1..7 (Monday=1); 0 means every day. Start and End are
// fractional hours in the alarm's local offset; End <= Start marks a window
// that crosses midnight.
type AlarmWindow struct {
	Day   int
	Start float64
	End   float64
}

// Alarm is a per-device threshold + schedule rule. Owned and mutated by the
// configuration API; the engine only reads it. min <= max is enforced at the
// configuration boundary and not re-validated here.
type Alarm struct {
	ID           int64
	DevEUI       string
	MinThreshold float64
	MaxThreshold float64

	// Enabled metrics.
	Temperature bool
	Humidity    bool
	EC          bool
	Door        bool
	WaterLeak   bool
	Pressure    bool
	CO2         bool
	Distance    bool

	// Delivery channels.
	SMS   bool
	Email bool
	Push  bool

	IsTimeLimitActive bool
	ZoneCategory      int
	IsActive          bool
	DefrostMinutes    int
	NotificationSound string
	UserIDs           []uuid.UUID
	Windows           []AlarmWindow
}
