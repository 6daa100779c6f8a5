package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"lorasense-alarm/internal/models"
)

// StateCache keeps the latest normalized reading of each device in Redis so
// automation state guards can check actuator pins without a database round
// trip.
type StateCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStateCache creates a StateCache. Entries expire after ttl; an expired
// entry just means the guard falls back to the database.
func NewStateCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *StateCache {
	return &StateCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *StateCache) key(devEUI string) string {
	return "lorasense:device:" + devEUI + ":latest"
}

// Store writes the reading as the device's latest state.
func (c *StateCache) Store(ctx context.Context, reading *models.TelemetryReading) error {
	payload, err := json.Marshal(reading)
	if err != nil {
		return fmt.Errorf("failed to marshal reading for %s: %w", reading.DevEUI, err)
	}
	if err := c.rdb.Set(ctx, c.key(reading.DevEUI), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache reading for %s: %w", reading.DevEUI, err)
	}
	return nil
}

// Latest returns the cached latest reading of the device, or (nil, nil)
// when none is cached.
func (c *StateCache) Latest(ctx context.Context, devEUI string) (*models.TelemetryReading, error) {
	payload, err := c.rdb.Get(ctx, c.key(devEUI)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached state for %s: %w", devEUI, err)
	}

	var reading models.TelemetryReading
	if err := json.Unmarshal([]byte(payload), &reading); err != nil {
		return nil, fmt.Errorf("failed to parse cached state for %s: %w", devEUI, err)
	}
	return &reading, nil
}
