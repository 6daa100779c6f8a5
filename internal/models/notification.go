package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is the append-only output of the evaluation engine. Delivery
// over SMS/email/push is handled by the notification service downstream;
// duplicates on retry are acceptable (at-least-once).
type Notification struct {
	ID          int64
	SenderID    int64 // id of the alarm that fired
	ReceiverIDs []uuid.UUID
	Message     string
	CategoryID  int
	IsRead      bool
	SendTime    time.Time
	SenderIP    string
	DevEUI      string
	DeviceName  string
}
