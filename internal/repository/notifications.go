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

// NotificationRepository appends notifications for the delivery service.
// Implements notifier.Store.
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores one notification. The id assigned by the database is
// written back onto n.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (
			sender_id,
			receiver_ids,
			message,
			category_id,
			is_read,
			send_time,
			sender_ip,
			dev_eui,
			device_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		n.SenderID,
		pq.Array(n.ReceiverIDs),
		n.Message,
		n.CategoryID,
		n.IsRead,
		n.SendTime,
		n.SenderIP,
		n.DevEUI,
		n.DeviceName,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to insert notification for alarm %d: %w", n.SenderID, err)
	}
	return nil
}

// TenantRepository resolves tenant names. Implements
// notifier.TenantDirectory via TenantName.
type TenantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTenantRepository creates a tenant repository.
func NewTenantRepository(db *sql.DB, logger *zap.Logger) *TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger,
	}
}

// TenantName returns the display name of a tenant, or "" when the tenant
// does not exist.
func (r *TenantRepository) TenantName(ctx context.Context, id uuid.UUID) (string, error) {
	query := `SELECT name FROM tenants WHERE id = $1`

	var name string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to query tenant %s: %w", id, err)
	}
	return name, nil
}
