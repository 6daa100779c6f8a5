package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DeadLetterRepository records uplinks the engine could not process, so
// they can be replayed after a decoder fix.
type DeadLetterRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeadLetterRepository creates a dead letter repository.
func NewDeadLetterRepository(db *sql.DB, logger *zap.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores one failed uplink with the failure reason.
func (r *DeadLetterRepository) Insert(ctx context.Context, devEUI string, payload json.RawMessage, reason string, at time.Time) error {
	query := `
		INSERT INTO uplink_dead_letters (dev_eui, payload, reason, received_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, devEUI, []byte(payload), reason, at); err != nil {
		return fmt.Errorf("failed to insert dead letter for %s: %w", devEUI, err)
	}
	return nil
}
