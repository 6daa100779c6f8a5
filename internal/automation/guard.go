package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// OutputState is the last reported output pins of an actuator device.
// Outputs are string-valued ("0"/"1") as reported on the wire.
type OutputState struct {
	Out1 string
	Out2 string
}

// StateReader loads the latest reported output state of an actuator.
// The second return is false when no state has been seen yet.
type StateReader interface {
	LatestOutputs(ctx context.Context, devEUI string, deviceType int) (OutputState, bool, error)
}

// lt22222lTargets maps each LT-22222-L downlink command to the output
// states under which the command is a no-op. The relay controller treats
// either matching pin as already-applied.
var lt22222lTargets = map[string][2]string{
	"AwAB": {"0", "1"},
	"AwAA": {"0", "0"},
	"AwEA": {"1", "0"},
	"AwEB": {"1", "1"},
}

// uc300Targets maps each UC300 downlink command to the single output pin
// and value under which the command is a no-op.
var uc300Targets = map[string]struct {
	pin   int // 1 or 2
	value string
}{
	"BwAA/w==": {1, "1"},
	"BwEA/w==": {1, "0"},
	"CAAA/w==": {2, "1"},
	"CAEA/w==": {2, "0"},
}

// StateGuard suppresses actuations that would leave the receiver in the
// state it is already in, so the downlink queue is not filled with no-ops.
type StateGuard struct {
	states StateReader
	logger *zap.Logger
}

// NewStateGuard builds a StateGuard over the given state source.
func NewStateGuard(states StateReader, logger *zap.Logger) *StateGuard {
	return &StateGuard{states: states, logger: logger}
}

// AlreadyApplied reports whether the rule's action is a no-op given the
// receiver's last reported state. Unknown receiver types and unknown
// commands always actuate; missing state also actuates, since the device
// state is then unknown and the command is the safe choice.
func (g *StateGuard) AlreadyApplied(ctx context.Context, rule *models.AutomationRule) (bool, error) {
	switch rule.ReceiverDeviceType {
	case models.DeviceTypeLT22222L:
		return g.relayApplied(ctx, rule)
	case models.DeviceTypeUC300:
		return g.uc300Applied(ctx, rule)
	default:
		return false, nil
	}
}

func (g *StateGuard) relayApplied(ctx context.Context, rule *models.AutomationRule) (bool, error) {
	target, ok := lt22222lTargets[rule.Action]
	if !ok {
		g.logger.Warn("unknown relay command, actuating anyway",
			zap.Int64("rule_id", rule.ID), zap.String("action", rule.Action))
		return false, nil
	}

	state, found, err := g.states.LatestOutputs(ctx, rule.ReceiverSensor, rule.ReceiverDeviceType)
	if err != nil {
		return false, fmt.Errorf("load relay state for %s: %w", rule.ReceiverSensor, err)
	}
	if !found {
		return false, nil
	}
	return state.Out1 == target[0] || state.Out2 == target[1], nil
}

func (g *StateGuard) uc300Applied(ctx context.Context, rule *models.AutomationRule) (bool, error) {
	// Multi-command actions are checked against their first command.
	action := rule.Action
	if first, _, found := cutCommand(action); found {
		action = first
	}

	target, ok := uc300Targets[action]
	if !ok {
		g.logger.Warn("unknown controller command, actuating anyway",
			zap.Int64("rule_id", rule.ID), zap.String("action", rule.Action))
		return false, nil
	}

	state, found, err := g.states.LatestOutputs(ctx, rule.ReceiverSensor, rule.ReceiverDeviceType)
	if err != nil {
		return false, fmt.Errorf("load controller state for %s: %w", rule.ReceiverSensor, err)
	}
	if !found {
		return false, nil
	}

	if target.pin == 1 {
		return state.Out1 == target.value, nil
	}
	return state.Out2 == target.value, nil
}
