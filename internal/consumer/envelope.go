// Package consumer receives ChirpStack uplink events over MQTT and hands
// the decoded device object to the engine.
package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoObject marks an uplink event whose payload codec produced no object
// (unknown codec or raw frame). Such events carry nothing to evaluate.
var ErrNoObject = errors.New("uplink event has no decoded object")

// UplinkEvent is the subset of the ChirpStack v4 uplink event the engine
// consumes.
type UplinkEvent struct {
	DeviceInfo struct {
		DevEUI          string `json:"devEui"`
		DeviceName      string `json:"deviceName"`
		ApplicationID   string `json:"applicationId"`
		ApplicationName string `json:"applicationName"`
	} `json:"deviceInfo"`
	Time   time.Time       `json:"time"`
	FCnt   uint32          `json:"fCnt"`
	Object json.RawMessage `json:"object"`
}

// ParseUplink parses one MQTT uplink message. The event time is used as the
// observation time; events without a time fall back to now.
func ParseUplink(payload []byte, now time.Time) (*UplinkEvent, error) {
	var event UplinkEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse uplink event: %w", err)
	}
	if event.DeviceInfo.DevEUI == "" {
		return nil, errors.New("uplink event has no device EUI")
	}
	if len(event.Object) == 0 || string(event.Object) == "null" {
		return nil, fmt.Errorf("device %s: %w", event.DeviceInfo.DevEUI, ErrNoObject)
	}
	if event.Time.IsZero() {
		event.Time = now
	}
	return &event, nil
}
