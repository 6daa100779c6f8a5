package models

import "time"

// Field names used in TelemetryReading.Fields. Decoders normalize the
// vendor-specific payload keys onto these.
const (
	FieldTemperature       = "temperature"
	FieldTemperature2      = "temperature2"
	FieldHumidity          = "humidity"
	FieldSoilTemperature   = "soil_temperature"
	FieldSoilMoisture      = "soil_moisture"
	FieldSoilConductivity  = "soil_conductivity"
	FieldSoilPH            = "soil_ph"
	FieldCO2               = "co2"
	FieldTVOC              = "tvoc"
	FieldPressure          = "pressure"
	FieldBattery           = "battery"
	FieldDoorStatus        = "door_status"
	FieldDoorOpenTimes     = "door_open_times"
	FieldDoorOpenDuration  = "last_door_open_duration"
	FieldWaterLeak         = "water_leak"
	FieldWaterLeakTimes    = "water_leak_times"
	FieldWaterLeakDuration = "last_water_leak_duration"
	FieldButtonPressed     = "button_pressed"
	FieldDistance          = "distance" // millimeters, as reported
	FieldRelay1            = "ro1_status"
	FieldRelay2            = "ro2_status"
	FieldCurrent           = "current"
	FieldVoltage           = "voltage"
	FieldPower             = "power"
	FieldPowerFactor       = "power_factor"
	FieldPowerSum          = "power_sum"
	FieldSocketState       = "socket_state"
)

// Text field names (string-valued state carried by relay/controller devices).
const (
	TextGPIOOut1 = "gpio_out_1"
	TextGPIOOut2 = "gpio_out_2"
	TextGPIOIn1  = "gpio_in_1"
	TextGPIOIn2  = "gpio_in_2"
	TextGPIOIn3  = "gpio_in_3"
	TextGPIOIn4  = "gpio_in_4"
	TextADC1     = "adc_1"
	TextADC2     = "adc_2"
	TextADV1     = "adv_1"
	TextPosition = "position"
)

// TelemetryReading is one normalized, calibrated uplink. It is ephemeral:
// the engine evaluates it and hands it off, persistence belongs to the
// ingest pipeline.
type TelemetryReading struct {
	DevEUI     string             `json:"dev_eui"`
	DeviceType int                `json:"device_type"`
	Fields     map[string]float64 `json:"fields"`
	Texts      map[string]string  `json:"texts,omitempty"`
	ObservedAt time.Time          `json:"observed_at"`
}

// Field returns the named numeric field and whether it is present.
func (r *TelemetryReading) Field(name string) (float64, bool) {
	if r == nil || r.Fields == nil {
		return 0, false
	}
	v, ok := r.Fields[name]
	return v, ok
}

// Text returns the named string field and whether it is present.
func (r *TelemetryReading) Text(name string) (string, bool) {
	if r == nil || r.Texts == nil {
		return "", false
	}
	v, ok := r.Texts[name]
	return v, ok
}
