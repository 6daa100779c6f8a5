package models

import "github.com/google/uuid"

// Known device type ids, matching the ids assigned by the device
// provisioning layer.
const (
	DeviceTypeLSN50V2    = 1  // Dragino temperature/humidity
	DeviceTypeLSE01      = 2  // Dragino soil moisture
	DeviceTypeLDS01      = 3  // Dragino door
	DeviceTypeLWL01      = 4  // Dragino water leak
	DeviceTypeLT22222L   = 6  // Dragino relay controller
	DeviceTypeLHT65      = 7  // Dragino temperature/humidity
	DeviceTypeLAQ4       = 8  // Dragino air quality
	DeviceTypeLSPH01     = 9  // Dragino soil pH
	DeviceTypeEM300TH    = 12 // Milesight temperature/humidity
	DeviceTypeAM107      = 13 // Milesight air quality
	DeviceTypeWS101      = 14 // Milesight emergency button
	DeviceTypeEM300MCS   = 16 // Milesight magnet contact (door)
	DeviceTypeEM300ZLD   = 18 // Milesight water leak
	DeviceTypeEM300SLD   = 19 // Milesight water leak (spot)
	DeviceTypeEM500PT100 = 20 // Milesight PT100 temperature probe
	DeviceTypeEM500PP    = 21 // Milesight pipe pressure
	DeviceTypeWS522      = 24 // Milesight smart socket
	DeviceTypeWS558      = 27 // Milesight smart light controller
	DeviceTypeUC300      = 28 // Milesight remote I/O controller
	DeviceTypeEM400MUD   = 33 // Milesight ultrasonic distance
	DeviceTypeAM103      = 35 // Milesight air quality (basic)
	DeviceTypeLTC2LB     = 36 // Dragino dual temperature probe
	DeviceTypeDDS45LB    = 37 // Dragino ultrasonic distance
)

// Device is the provisioning record the engine needs per uplink: identity,
// type for decode dispatch, calibration offsets and tenant scoping. Owned by
// the device registry, read-only here.
type Device struct {
	DevEUI                 string
	Name                   string
	DeviceType             int
	TemperatureCalibration float64
	HumidityCalibration    float64
	TenantID               *uuid.UUID
	Tags                   map[string]string
}

// IsActive reports whether the device should be evaluated at all. Devices
// carry an optional "status" tag; anything other than "active" opts the
// device out of alarm and automation checks.
func (d *Device) IsActive() bool {
	if d == nil {
		return false
	}
	status, ok := d.Tags["status"]
	if !ok {
		return true
	}
	return status == "active"
}
