// Package notifier turns alarm firings into persisted notifications for
// the downstream delivery service.
package notifier

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lorasense-alarm/internal/evaluator"
	"lorasense-alarm/internal/models"
)

// alarmCategoryID is the notification category the delivery service routes
// alarm messages under.
const alarmCategoryID = 1

// Store persists composed notifications. Writes are at-least-once.
type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// TenantDirectory resolves tenant ids to display names for qualified
// firings.
type TenantDirectory interface {
	TenantName(ctx context.Context, id uuid.UUID) (string, error)
}

// Composer builds and stores one notification per firing. It implements
// evaluator.Notifier.
type Composer struct {
	store   Store
	tenants TenantDirectory
	logger  *zap.Logger
}

// NewComposer builds a Composer.
func NewComposer(store Store, tenants TenantDirectory, logger *zap.Logger) *Composer {
	return &Composer{store: store, tenants: tenants, logger: logger}
}

// Notify composes the message for the firing and writes it for every user
// subscribed to the alarm. Qualified firings (trend-gated defrost alarms)
// are prefixed with the tenant name so operators watching several sites can
// triage them.
func (c *Composer) Notify(ctx context.Context, f evaluator.Firing) error {
	message := renderMessage(f)

	if f.Qualified && f.Device.TenantID != nil {
		name, err := c.tenants.TenantName(ctx, *f.Device.TenantID)
		if err != nil {
			c.logger.Warn("tenant lookup failed, sending unqualified message",
				zap.Int64("alarm_id", f.Alarm.ID),
				zap.Stringer("tenant_id", *f.Device.TenantID),
				zap.Error(err))
		} else if name != "" {
			message = fmt.Sprintf("[%s] %s", name, message)
		}
	}

	n := &models.Notification{
		SenderID:    f.Alarm.ID,
		ReceiverIDs: f.Alarm.UserIDs,
		Message:     message,
		CategoryID:  alarmCategoryID,
		SendTime:    f.At,
		DevEUI:      f.Device.DevEUI,
		DeviceName:  f.Device.Name,
	}
	if err := c.store.Insert(ctx, n); err != nil {
		return fmt.Errorf("store notification for alarm %d: %w", f.Alarm.ID, err)
	}

	c.logger.Info("notification stored",
		zap.Int64("alarm_id", f.Alarm.ID),
		zap.String("dev_eui", f.Device.DevEUI),
		zap.String("metric", f.Metric),
		zap.Int("receivers", len(f.Alarm.UserIDs)))
	return nil
}
