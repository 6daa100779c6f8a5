package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"lorasense-alarm/internal/automation"
	"lorasense-alarm/internal/models"
)

// LatestReadingSource serves the cached latest reading of a device.
// Satisfied by consumer.StateCache; (nil, nil) means no entry.
type LatestReadingSource interface {
	Latest(ctx context.Context, devEUI string) (*models.TelemetryReading, error)
}

// StateRepository serves the last reported output state of actuator
// devices. It reads the latest-reading cache first and falls back to
// PostgreSQL when the cache entry has expired. Implements
// automation.StateReader.
type StateRepository struct {
	db     *sql.DB
	cache  LatestReadingSource
	logger *zap.Logger
}

// NewStateRepository creates a state repository.
func NewStateRepository(db *sql.DB, cache LatestReadingSource, logger *zap.Logger) *StateRepository {
	return &StateRepository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// LatestOutputs returns the output pins last reported by the device. The
// second return is false when the device has never reported state.
func (r *StateRepository) LatestOutputs(ctx context.Context, devEUI string, deviceType int) (automation.OutputState, bool, error) {
	if state, ok, err := r.fromCache(ctx, devEUI); err != nil {
		r.logger.Warn("latest-state cache read failed, falling back to database",
			zap.String("dev_eui", devEUI), zap.Error(err))
	} else if ok {
		return state, true, nil
	}

	return r.fromDatabase(ctx, devEUI)
}

func (r *StateRepository) fromCache(ctx context.Context, devEUI string) (automation.OutputState, bool, error) {
	reading, err := r.cache.Latest(ctx, devEUI)
	if err != nil {
		return automation.OutputState{}, false, err
	}
	if reading == nil {
		return automation.OutputState{}, false, nil
	}

	out1, ok1 := reading.Text(models.TextGPIOOut1)
	out2, ok2 := reading.Text(models.TextGPIOOut2)
	if !ok1 && !ok2 {
		return automation.OutputState{}, false, nil
	}
	return automation.OutputState{Out1: out1, Out2: out2}, true, nil
}

func (r *StateRepository) fromDatabase(ctx context.Context, devEUI string) (automation.OutputState, bool, error) {
	query := `
		SELECT gpio_out_1, gpio_out_2
		FROM device_state_latest
		WHERE dev_eui = $1
	`

	var state automation.OutputState
	err := r.db.QueryRowContext(ctx, query, devEUI).Scan(&state.Out1, &state.Out2)
	if err != nil {
		if err == sql.ErrNoRows {
			return automation.OutputState{}, false, nil
		}
		return automation.OutputState{}, false, fmt.Errorf("failed to query device state for %s: %w", devEUI, err)
	}
	return state, true, nil
}

// UpsertOutputs records the latest output pins of an actuator so guard
// checks survive cache expiry. Called by the uplink pipeline for readings
// carrying output pins.
func (r *StateRepository) UpsertOutputs(ctx context.Context, devEUI string, state automation.OutputState) error {
	query := `
		INSERT INTO device_state_latest (dev_eui, gpio_out_1, gpio_out_2, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (dev_eui) DO UPDATE
		SET gpio_out_1 = EXCLUDED.gpio_out_1,
		    gpio_out_2 = EXCLUDED.gpio_out_2,
		    updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, devEUI, state.Out1, state.Out2); err != nil {
		return fmt.Errorf("failed to upsert device state for %s: %w", devEUI, err)
	}
	return nil
}
