package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// RuleReader loads active automation rules by trigger.
type RuleReader interface {
	DeviceRules(ctx context.Context, senderDevEUI string) ([]models.AutomationRule, error)
	TimeRules(ctx context.Context) ([]models.AutomationRule, error)
	AlarmRules(ctx context.Context, alarmID int64) ([]models.AutomationRule, error)
}

// Actuator executes a rule's action. Satisfied by *Executor.
type Actuator interface {
	Execute(ctx context.Context, rule *models.AutomationRule) error
}

// Runner drives the three automation triggers: telemetry readings, alarm
// firings and the per-minute schedule tick. A broken rule never stops the
// others: parse and execution failures are logged per rule.
type Runner struct {
	rules  RuleReader
	guard  *StateGuard
	exec   Actuator
	times  *TimeMatcher
	logger *zap.Logger
}

// NewRunner builds a Runner.
func NewRunner(rules RuleReader, guard *StateGuard, exec Actuator, times *TimeMatcher, logger *zap.Logger) *Runner {
	return &Runner{rules: rules, guard: guard, exec: exec, times: times, logger: logger}
}

// OnReading evaluates the device-triggered rules whose sender produced the
// reading and actuates those whose condition holds.
func (r *Runner) OnReading(ctx context.Context, reading *models.TelemetryReading) error {
	rules, err := r.rules.DeviceRules(ctx, reading.DevEUI)
	if err != nil {
		return fmt.Errorf("load device rules for %s: %w", reading.DevEUI, err)
	}

	for i := range rules {
		rule := rules[i]
		ok, err := EvaluateCondition(&rule, reading)
		if err != nil {
			r.logger.Warn("skipping rule with unusable condition",
				zap.Int64("rule_id", rule.ID),
				zap.String("condition", rule.Condition),
				zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		r.actuate(ctx, &rule)
	}
	return nil
}

// OnAlarm actuates every alarm-triggered rule bound to the fired alarm.
func (r *Runner) OnAlarm(ctx context.Context, alarmID int64) error {
	rules, err := r.rules.AlarmRules(ctx, alarmID)
	if err != nil {
		return fmt.Errorf("load alarm rules for alarm %d: %w", alarmID, err)
	}

	for i := range rules {
		r.actuate(ctx, &rules[i])
	}
	return nil
}

// RunDueTimeRules actuates the time-triggered rules whose schedule matches
// the current minute. Call once per minute.
func (r *Runner) RunDueTimeRules(ctx context.Context) error {
	rules, err := r.rules.TimeRules(ctx)
	if err != nil {
		return fmt.Errorf("load time rules: %w", err)
	}

	for i := range rules {
		rule := rules[i]
		due, err := r.times.Due(rule.Condition)
		if err != nil {
			r.logger.Warn("skipping rule with unusable schedule",
				zap.Int64("rule_id", rule.ID),
				zap.String("condition", rule.Condition),
				zap.Error(err))
			continue
		}
		if !due {
			continue
		}
		r.actuate(ctx, &rule)
	}
	return nil
}

func (r *Runner) actuate(ctx context.Context, rule *models.AutomationRule) {
	applied, err := r.guard.AlreadyApplied(ctx, rule)
	if err != nil {
		r.logger.Error("state guard failed, actuating anyway",
			zap.Int64("rule_id", rule.ID), zap.Error(err))
	} else if applied {
		r.logger.Debug("receiver already in target state",
			zap.Int64("rule_id", rule.ID),
			zap.String("receiver", rule.ReceiverSensor))
		return
	}

	if err := r.exec.Execute(ctx, rule); err != nil {
		r.logger.Error("automation action failed",
			zap.Int64("rule_id", rule.ID),
			zap.String("receiver", rule.ReceiverSensor),
			zap.Error(err))
	}
}
