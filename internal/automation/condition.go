// Package automation evaluates device-to-device rules: a condition on one
// sensor's telemetry (or a schedule, or an alarm firing) queues a downlink
// command on another device.
package automation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lorasense-alarm/internal/models"
)

// ErrUnsupportedSender marks a rule whose sender device type has no
// condition grammar. The rule is skipped, not failed.
var ErrUnsupportedSender = errors.New("unsupported sender device type")

// ErrMalformedCondition marks a condition string that does not parse under
// the sender's grammar.
var ErrMalformedCondition = errors.New("malformed condition")

// EvaluateCondition reports whether the rule's condition holds for the
// reading. The condition grammar is positional, comma-separated, and
// depends on the sender's device type:
//
//	temperature/humidity sensors:  "<temperature|humadity>,<over|below>,<value>"
//	door sensors:                  "status,<open|close>"
//	water leak sensors:            "status,<leak|noleak>"
//	distance sensors:              "distance,<over|below>,<value>"
//
// "humadity" is the historical spelling used by the rule configuration UI
// and is kept for compatibility. Fields absent from the reading evaluate
// as zero (door status as -1, which matches neither state).
func EvaluateCondition(rule *models.AutomationRule, reading *models.TelemetryReading) (bool, error) {
	parts := strings.Split(rule.Condition, ",")

	switch rule.SenderDeviceType {
	case models.DeviceTypeLSN50V2, models.DeviceTypeEM300TH:
		return evalNumericCondition(parts, reading)
	case models.DeviceTypeLDS01:
		return evalDoorCondition(parts, reading)
	case models.DeviceTypeEM300ZLD, models.DeviceTypeEM300SLD:
		return evalLeakCondition(parts, reading)
	case models.DeviceTypeEM400MUD:
		return evalDistanceCondition(parts, reading)
	default:
		return false, fmt.Errorf("device type %d: %w", rule.SenderDeviceType, ErrUnsupportedSender)
	}
}

func evalNumericCondition(parts []string, reading *models.TelemetryReading) (bool, error) {
	if len(parts) < 2 {
		return false, fmt.Errorf("%w: want param,op,value", ErrMalformedCondition)
	}

	var value float64
	switch parts[0] {
	case "temperature":
		value, _ = reading.Field(models.FieldTemperature)
	case "humadity":
		value, _ = reading.Field(models.FieldHumidity)
	default:
		return false, fmt.Errorf("%w: unknown parameter %q", ErrMalformedCondition, parts[0])
	}

	return compare(parts, value)
}

func evalDistanceCondition(parts []string, reading *models.TelemetryReading) (bool, error) {
	if len(parts) < 2 {
		return false, fmt.Errorf("%w: want distance,op,value", ErrMalformedCondition)
	}
	if parts[0] != "distance" {
		return false, fmt.Errorf("%w: unknown parameter %q", ErrMalformedCondition, parts[0])
	}

	mm, _ := reading.Field(models.FieldDistance)
	return compare(parts, mm/1000)
}

// compare applies parts[1] (over|below) against parts[2]. A missing value
// token compares against zero.
func compare(parts []string, value float64) (bool, error) {
	threshold := 0.0
	if len(parts) > 2 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return false, fmt.Errorf("%w: value %q: %v", ErrMalformedCondition, parts[2], err)
		}
		threshold = v
	}

	switch parts[1] {
	case "over":
		return value > threshold, nil
	case "below":
		return value < threshold, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrMalformedCondition, parts[1])
	}
}

func evalDoorCondition(parts []string, reading *models.TelemetryReading) (bool, error) {
	if len(parts) < 2 || parts[0] != "status" {
		return false, fmt.Errorf("%w: want status,<open|close>", ErrMalformedCondition)
	}

	status := -1.0
	if v, ok := reading.Field(models.FieldDoorStatus); ok {
		status = v
	}

	switch parts[1] {
	case "open":
		return status == 1, nil
	case "close":
		return status == 0, nil
	default:
		return false, fmt.Errorf("%w: unknown door state %q", ErrMalformedCondition, parts[1])
	}
}

func evalLeakCondition(parts []string, reading *models.TelemetryReading) (bool, error) {
	if len(parts) < 2 || parts[0] != "status" {
		return false, fmt.Errorf("%w: want status,<leak|noleak>", ErrMalformedCondition)
	}

	leak := -1.0
	if v, ok := reading.Field(models.FieldWaterLeak); ok {
		leak = v
	}

	switch parts[1] {
	case "leak":
		return leak == 1, nil
	case "noleak":
		return leak == 0, nil
	default:
		return false, fmt.Errorf("%w: unknown leak state %q", ErrMalformedCondition, parts[1])
	}
}
