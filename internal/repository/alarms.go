package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// AlarmRepository reads alarm configuration.
type AlarmRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlarmRepository creates an alarm repository.
func NewAlarmRepository(db *sql.DB, logger *zap.Logger) *AlarmRepository {
	return &AlarmRepository{
		db:     db,
		logger: logger,
	}
}

// ActiveAlarms loads the active alarms configured for a device, including
// their time windows and subscribed users. Implements evaluator.AlarmReader.
func (r *AlarmRepository) ActiveAlarms(ctx context.Context, devEUI string) ([]models.Alarm, error) {
	query := `
		SELECT
			id,
			dev_eui,
			min_threshold,
			max_threshold,
			temperature,
			humidity,
			ec,
			door,
			w_leak,
			pressure,
			co2,
			distance,
			sms,
			email,
			notification,
			is_time_limit_active,
			zone_category,
			defrost_time,
			notification_sound
		FROM alarms
		WHERE dev_eui = $1 AND is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query, devEUI)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms for %s: %w", devEUI, err)
	}
	defer rows.Close()

	var alarms []models.Alarm
	var ids []int64
	for rows.Next() {
		var a models.Alarm
		if err := rows.Scan(
			&a.ID,
			&a.DevEUI,
			&a.MinThreshold,
			&a.MaxThreshold,
			&a.Temperature,
			&a.Humidity,
			&a.EC,
			&a.Door,
			&a.WaterLeak,
			&a.Pressure,
			&a.CO2,
			&a.Distance,
			&a.SMS,
			&a.Email,
			&a.Push,
			&a.IsTimeLimitActive,
			&a.ZoneCategory,
			&a.DefrostMinutes,
			&a.NotificationSound,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		a.IsActive = true
		alarms = append(alarms, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alarms for %s: %w", devEUI, err)
	}
	if len(alarms) == 0 {
		return nil, nil
	}

	if err := r.attachWindows(ctx, alarms, ids); err != nil {
		return nil, err
	}
	if err := r.attachUsers(ctx, alarms, ids); err != nil {
		return nil, err
	}
	return alarms, nil
}

// attachWindows loads the day/time windows of the given alarms in one query
// and groups them onto their alarms.
func (r *AlarmRepository) attachWindows(ctx context.Context, alarms []models.Alarm, ids []int64) error {
	query := `
		SELECT alarm_id, alarm_day, start_time, end_time
		FROM alarm_date_filters
		WHERE alarm_id = ANY($1)
		ORDER BY alarm_id, alarm_day
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query alarm windows: %w", err)
	}
	defer rows.Close()

	byID := indexAlarms(alarms)
	for rows.Next() {
		var (
			alarmID int64
			w       models.AlarmWindow
		)
		if err := rows.Scan(&alarmID, &w.Day, &w.Start, &w.End); err != nil {
			return fmt.Errorf("failed to scan alarm window: %w", err)
		}
		if a, ok := byID[alarmID]; ok {
			a.Windows = append(a.Windows, w)
		}
	}
	return rows.Err()
}

// attachUsers loads the users subscribed to the given alarms.
func (r *AlarmRepository) attachUsers(ctx context.Context, alarms []models.Alarm, ids []int64) error {
	query := `
		SELECT alarm_id, user_id
		FROM alarm_users
		WHERE alarm_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query alarm users: %w", err)
	}
	defer rows.Close()

	byID := indexAlarms(alarms)
	for rows.Next() {
		var (
			alarmID int64
			userID  uuid.UUID
		)
		if err := rows.Scan(&alarmID, &userID); err != nil {
			return fmt.Errorf("failed to scan alarm user: %w", err)
		}
		if a, ok := byID[alarmID]; ok {
			a.UserIDs = append(a.UserIDs, userID)
		}
	}
	return rows.Err()
}

func indexAlarms(alarms []models.Alarm) map[int64]*models.Alarm {
	byID := make(map[int64]*models.Alarm, len(alarms))
	for i := range alarms {
		byID[alarms[i].ID] = &alarms[i]
	}
	return byID
}
