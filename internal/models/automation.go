package models

import "github.com/google/uuid"

// Automation trigger types.
const (
	TriggerDevice = "device" // condition evaluated against the sender's uplinks
	TriggerTime   = "time"   // condition is a day-list + HH:MM schedule
	TriggerAlarm  = "alarm"  // condition is the id of an alarm; fires with it
)

// AutomationRule links one device's telemetry (or a schedule, or an alarm)
// to an actuation command on another device. Owned by the configuration API,
// read-only to the engine.
type AutomationRule struct {
	ID                 int64
	SenderSensor       string // dev_eui of the triggering device
	ReceiverSensor     string // dev_eui of the actuated device
	SenderDeviceType   int
	ReceiverDeviceType int
	SenderDeviceName   string
	ReceiverDeviceName string
	Condition          string // positional grammar, see automation package
	Action             string // base64 downlink command(s) for the receiver
	TriggerType        string
	IsActive           bool
	TenantID           *uuid.UUID
	UserID             *uuid.UUID
}
