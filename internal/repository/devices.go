// Package repository holds the PostgreSQL and Redis data access used by the
// evaluation engine. All configuration tables are owned by the provisioning
// API; the engine only reads them.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// DeviceRepository reads device provisioning records.
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository creates a device repository.
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

// GetByEUI loads one device by its DevEUI. Returns (nil, nil) when the
// device is not provisioned.
func (r *DeviceRepository) GetByEUI(ctx context.Context, devEUI string) (*models.Device, error) {
	query := `
		SELECT
			dev_eui,
			name,
			device_type,
			temperature_calibration,
			humidity_calibration,
			tenant_id,
			tags
		FROM devices
		WHERE dev_eui = $1
	`

	var (
		device   models.Device
		tenantID sql.NullString
		tags     []byte
	)
	err := r.db.QueryRowContext(ctx, query, devEUI).Scan(
		&device.DevEUI,
		&device.Name,
		&device.DeviceType,
		&device.TemperatureCalibration,
		&device.HumidityCalibration,
		&tenantID,
		&tags,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query device %s: %w", devEUI, err)
	}

	if tenantID.Valid {
		id, err := uuid.Parse(tenantID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tenant id for %s: %w", devEUI, err)
		}
		device.TenantID = &id
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &device.Tags); err != nil {
			return nil, fmt.Errorf("failed to parse tags for %s: %w", devEUI, err)
		}
	}

	return &device, nil
}
