package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lorasense-alarm/internal/models"
)

// ErrUnsupportedDeviceType marks a device type with no registered decoder.
// Callers log and skip the uplink; it is not fatal for the batch.
var ErrUnsupportedDeviceType = errors.New("unsupported device type")

// Calibration holds the per-device offsets added to raw values. Zero values
// mean "no calibration configured".
type Calibration struct {
	Temperature float64
	Humidity    float64
}

// DecodeFunc parses one vendor payload into normalized fields. A (nil, nil)
// return means the frame carried no usable reading (sensor not ready,
// zeroed payload, invalid distance) and must be silently dropped.
type DecodeFunc func(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error)

// Registry dispatches raw uplink payloads to a per-device-type decoder.
// New sensor types are added by registering a decoder, not by editing a
// central switch.
type Registry struct {
	decoders map[int]DecodeFunc
}

// NewRegistry returns a registry with all known device types registered.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[int]DecodeFunc)}
	registerDragino(r)
	registerMilesight(r)
	return r
}

// Register installs fn as the decoder for deviceType, replacing any
// previous registration.
func (r *Registry) Register(deviceType int, fn DecodeFunc) {
	r.decoders[deviceType] = fn
}

// Supported reports whether a decoder is registered for deviceType.
func (r *Registry) Supported(deviceType int) bool {
	_, ok := r.decoders[deviceType]
	return ok
}

// Decode normalizes a raw uplink for the given device. The returned reading
// is stamped with the device identity and observation time; a nil reading
// with nil error means the frame was valid but carried nothing to evaluate.
// Decoding is pure: the same payload and calibration always produce the
// same reading.
func (r *Registry) Decode(device *models.Device, raw json.RawMessage, at time.Time) (*models.TelemetryReading, error) {
	fn, ok := r.decoders[device.DeviceType]
	if !ok {
		return nil, fmt.Errorf("device type %d: %w", device.DeviceType, ErrUnsupportedDeviceType)
	}

	reading, err := fn(raw, Calibration{
		Temperature: device.TemperatureCalibration,
		Humidity:    device.HumidityCalibration,
	})
	if err != nil {
		return nil, fmt.Errorf("decode device type %d: %w", device.DeviceType, err)
	}
	if reading == nil {
		return nil, nil
	}

	reading.DevEUI = device.DevEUI
	reading.DeviceType = device.DeviceType
	reading.ObservedAt = at
	return reading, nil
}

func newReading() *models.TelemetryReading {
	return &models.TelemetryReading{Fields: make(map[string]float64)}
}
