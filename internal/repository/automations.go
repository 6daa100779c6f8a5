package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// AutomationRepository reads automation rule configuration. Implements
// automation.RuleReader.
type AutomationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAutomationRepository creates an automation repository.
func NewAutomationRepository(db *sql.DB, logger *zap.Logger) *AutomationRepository {
	return &AutomationRepository{
		db:     db,
		logger: logger,
	}
}

const automationColumns = `
	id,
	sender_sensor,
	receiver_sensor,
	sender_device_type,
	receiver_device_type,
	sender_device_name,
	receiver_device_name,
	condition,
	action,
	trigger_type
`

// DeviceRules loads the active device-triggered rules whose sender is the
// given device.
func (r *AutomationRepository) DeviceRules(ctx context.Context, senderDevEUI string) ([]models.AutomationRule, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automation_rules
		WHERE sender_sensor = $1 AND trigger_type = $2 AND is_active = true
	`
	return r.queryRules(ctx, query, senderDevEUI, models.TriggerDevice)
}

// TimeRules loads all active time-triggered rules.
func (r *AutomationRepository) TimeRules(ctx context.Context) ([]models.AutomationRule, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automation_rules
		WHERE trigger_type = $1 AND is_active = true
	`
	return r.queryRules(ctx, query, models.TriggerTime)
}

// AlarmRules loads the active alarm-triggered rules bound to the given
// alarm. The binding is the rule condition holding the alarm id.
func (r *AutomationRepository) AlarmRules(ctx context.Context, alarmID int64) ([]models.AutomationRule, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automation_rules
		WHERE trigger_type = $1 AND condition = $2 AND is_active = true
	`
	return r.queryRules(ctx, query, models.TriggerAlarm, strconv.FormatInt(alarmID, 10))
}

func (r *AutomationRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]models.AutomationRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AutomationRule
	for rows.Next() {
		var rule models.AutomationRule
		if err := rows.Scan(
			&rule.ID,
			&rule.SenderSensor,
			&rule.ReceiverSensor,
			&rule.SenderDeviceType,
			&rule.ReceiverDeviceType,
			&rule.SenderDeviceName,
			&rule.ReceiverDeviceName,
			&rule.Condition,
			&rule.Action,
			&rule.TriggerType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan automation rule: %w", err)
		}
		rule.IsActive = true
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read automation rules: %w", err)
	}
	return rules, nil
}
