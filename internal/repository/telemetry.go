package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// TelemetryRepository persists normalized readings and serves the
// temperature history used by defrost trend checks. Implements
// evaluator.SeriesReader.
type TelemetryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTelemetryRepository creates a telemetry repository.
func NewTelemetryRepository(db *sql.DB, logger *zap.Logger) *TelemetryRepository {
	return &TelemetryRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores the temperature channel of a reading for trend history.
// Readings without a temperature channel are skipped.
func (r *TelemetryRepository) Insert(ctx context.Context, reading *models.TelemetryReading) error {
	temp, ok := reading.Field(models.FieldTemperature)
	if !ok {
		return nil
	}

	query := `
		INSERT INTO device_temperature_history (dev_eui, temperature, observed_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, reading.DevEUI, temp, reading.ObservedAt); err != nil {
		return fmt.Errorf("failed to insert temperature history for %s: %w", reading.DevEUI, err)
	}
	return nil
}

// TemperatureSeries returns the temperature samples of the device observed
// within the window, oldest first.
func (r *TelemetryRepository) TemperatureSeries(ctx context.Context, devEUI string, window time.Duration) ([]float64, error) {
	query := `
		SELECT temperature
		FROM device_temperature_history
		WHERE dev_eui = $1
		  AND observed_at >= NOW() - ($2 * INTERVAL '1 minute')
		ORDER BY observed_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, devEUI, window.Minutes())
	if err != nil {
		return nil, fmt.Errorf("failed to query temperature series for %s: %w", devEUI, err)
	}
	defer rows.Close()

	var samples []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan temperature sample: %w", err)
		}
		samples = append(samples, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read temperature series for %s: %w", devEUI, err)
	}
	return samples, nil
}

// LatestTemperature returns the most recent temperature sample of the
// device, if any exists.
func (r *TelemetryRepository) LatestTemperature(ctx context.Context, devEUI string) (float64, bool, error) {
	query := `
		SELECT temperature
		FROM device_temperature_history
		WHERE dev_eui = $1
		ORDER BY observed_at DESC
		LIMIT 1
	`

	var v float64
	err := r.db.QueryRowContext(ctx, query, devEUI).Scan(&v)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to query latest temperature for %s: %w", devEUI, err)
	}
	return v, true, nil
}
