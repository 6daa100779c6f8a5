// Package evaluator checks normalized telemetry readings against the
// per-device alarm rules and reports which alarms fired.
package evaluator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
	"lorasense-alarm/internal/schedule"
)

// Metric names carried on a Firing and used to pick the notification
// template.
const (
	MetricTemperature  = "temperature"
	MetricHumidity     = "humidity"
	MetricConductivity = "conductivity"
	MetricPressure     = "pressure"
	MetricCO2          = "co2"
	MetricDistance     = "distance"
	MetricDoor         = "door"
	MetricWaterLeak    = "water_leak"
	MetricButton       = "button"
)

// sensorFaultTemp marks a disconnected primary probe on dual-probe devices.
const sensorFaultTemp = -200.0

// Firing is one alarm that triggered on one reading.
type Firing struct {
	Alarm  models.Alarm
	Device models.Device
	Metric string
	Value  float64
	// Qualified firings came through the defrost trend gate and get the
	// tenant-qualified notification text.
	Qualified bool
	At        time.Time
}

// AlarmReader loads the active alarms configured for a device.
type AlarmReader interface {
	ActiveAlarms(ctx context.Context, devEUI string) ([]models.Alarm, error)
}

// Notifier receives every firing for delivery. Errors are logged, not
// propagated: a notification failure must not stop evaluation of the
// remaining alarms.
type Notifier interface {
	Notify(ctx context.Context, firing Firing) error
}

// Evaluator runs alarm checks for one reading at a time.
type Evaluator struct {
	alarms   AlarmReader
	matcher  *schedule.Matcher
	trend    *TrendDetector
	notifier Notifier
	logger   *zap.Logger
}

// New builds an Evaluator.
func New(alarms AlarmReader, matcher *schedule.Matcher, trend *TrendDetector, notifier Notifier, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		alarms:   alarms,
		matcher:  matcher,
		trend:    trend,
		notifier: notifier,
		logger:   logger,
	}
}

// CheckAlarms evaluates every armed alarm of the device against the reading
// and returns the firings, in alarm order. Inactive devices are skipped
// entirely. The same breach on consecutive readings fires again each time;
// deduplication is the notification service's concern.
func (e *Evaluator) CheckAlarms(ctx context.Context, device *models.Device, reading *models.TelemetryReading) ([]Firing, error) {
	if !device.IsActive() {
		e.logger.Debug("device not active, skipping evaluation", zap.String("dev_eui", device.DevEUI))
		return nil, nil
	}

	alarms, err := e.alarms.ActiveAlarms(ctx, device.DevEUI)
	if err != nil {
		return nil, fmt.Errorf("load alarms for %s: %w", device.DevEUI, err)
	}

	var firings []Firing
	for i := range alarms {
		alarm := alarms[i]
		if !e.matcher.IsArmed(&alarm) {
			continue
		}

		for _, check := range e.metricChecks(&alarm, reading) {
			fired, qualified, err := e.runCheck(ctx, &alarm, check)
			if err != nil {
				e.logger.Error("alarm check failed",
					zap.Int64("alarm_id", alarm.ID),
					zap.String("dev_eui", device.DevEUI),
					zap.String("metric", check.metric),
					zap.Error(err))
				continue
			}
			if !fired {
				continue
			}

			firing := Firing{
				Alarm:     alarm,
				Device:    *device,
				Metric:    check.metric,
				Value:     check.value,
				Qualified: qualified,
				At:        reading.ObservedAt,
			}
			firings = append(firings, firing)

			if e.notifier != nil {
				if err := e.notifier.Notify(ctx, firing); err != nil {
					e.logger.Error("notification failed",
						zap.Int64("alarm_id", alarm.ID),
						zap.String("dev_eui", device.DevEUI),
						zap.Error(err))
				}
			}
		}
	}
	return firings, nil
}

// metricCheck is one metric value to test for one alarm.
type metricCheck struct {
	metric string
	value  float64
	binary bool // fires on value == 1, thresholds ignored
}

// metricChecks maps the alarm's enabled metrics onto the fields present in
// the reading. Metrics the reading does not carry are skipped.
func (e *Evaluator) metricChecks(alarm *models.Alarm, reading *models.TelemetryReading) []metricCheck {
	var checks []metricCheck

	if alarm.Temperature {
		if v, ok := temperatureOf(reading); ok {
			checks = append(checks, metricCheck{metric: MetricTemperature, value: v})
		}
	}
	if alarm.Humidity {
		if v, ok := reading.Field(models.FieldHumidity); ok {
			checks = append(checks, metricCheck{metric: MetricHumidity, value: v})
		} else if v, ok := reading.Field(models.FieldSoilMoisture); ok {
			checks = append(checks, metricCheck{metric: MetricHumidity, value: v})
		}
	}
	if alarm.EC {
		if v, ok := reading.Field(models.FieldSoilConductivity); ok {
			checks = append(checks, metricCheck{metric: MetricConductivity, value: v})
		}
	}
	if alarm.Pressure {
		if v, ok := reading.Field(models.FieldPressure); ok {
			checks = append(checks, metricCheck{metric: MetricPressure, value: v})
		}
	}
	if alarm.CO2 {
		if v, ok := reading.Field(models.FieldCO2); ok {
			checks = append(checks, metricCheck{metric: MetricCO2, value: v})
		}
	}
	if alarm.Distance {
		if v, ok := reading.Field(models.FieldDistance); ok {
			// Millimeters on the reading, meters on the threshold.
			checks = append(checks, metricCheck{metric: MetricDistance, value: v / 1000})
		}
	}
	if alarm.Door {
		if v, ok := reading.Field(models.FieldDoorStatus); ok {
			checks = append(checks, metricCheck{metric: MetricDoor, value: v, binary: true})
		}
	}
	if alarm.WaterLeak {
		if v, ok := reading.Field(models.FieldWaterLeak); ok {
			checks = append(checks, metricCheck{metric: MetricWaterLeak, value: v, binary: true})
		}
	}
	// The emergency button fires on press for any active alarm on the
	// device, independent of metric flags.
	if v, ok := reading.Field(models.FieldButtonPressed); ok {
		checks = append(checks, metricCheck{metric: MetricButton, value: v, binary: true})
	}

	return checks
}

// temperatureOf picks the temperature channel to evaluate. Dual-probe
// devices fall back to the secondary probe when the primary reports a
// sensor fault.
func temperatureOf(reading *models.TelemetryReading) (float64, bool) {
	if v, ok := reading.Field(models.FieldTemperature); ok {
		if v > sensorFaultTemp {
			return v, true
		}
		if v2, ok := reading.Field(models.FieldTemperature2); ok {
			return v2, true
		}
		return v, true
	}
	if v, ok := reading.Field(models.FieldSoilTemperature); ok {
		return v, true
	}
	return 0, false
}

// runCheck applies the threshold (or binary) test and, for defrost zones,
// the trend gate. It returns whether the alarm fired and whether the firing
// is tenant-qualified.
func (e *Evaluator) runCheck(ctx context.Context, alarm *models.Alarm, check metricCheck) (fired, qualified bool, err error) {
	if check.binary {
		return check.value == 1, false, nil
	}

	breached := check.value < alarm.MinThreshold || check.value > alarm.MaxThreshold
	if !breached {
		return false, false, nil
	}

	if alarm.ZoneCategory == models.ZoneCategoryDefrost {
		window := time.Duration(alarm.DefrostMinutes) * time.Minute
		fire, err := e.trend.ShouldFire(ctx, alarm.DevEUI, window, alarm.MaxThreshold)
		if err != nil {
			return false, false, err
		}
		return fire, fire, nil
	}

	// Default and industrial zones fire immediately, as does any category
	// the configuration layer adds before the engine learns about it.
	return true, false, nil
}
