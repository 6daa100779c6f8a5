package decoder

import (
	"encoding/json"
	"strconv"

	"lorasense-alarm/internal/models"
)

// Milesight payloads are numeric JSON throughout; the guards below drop
// zeroed frames the sensors emit while booting.

func registerMilesight(r *Registry) {
	r.Register(models.DeviceTypeEM300TH, decodeEM300TH)
	r.Register(models.DeviceTypeAM107, decodeAM107)
	r.Register(models.DeviceTypeWS101, decodeWS101)
	r.Register(models.DeviceTypeEM300MCS, decodeEM300MCS)
	r.Register(models.DeviceTypeEM300ZLD, decodeEM300Leak)
	r.Register(models.DeviceTypeEM300SLD, decodeEM300Leak)
	r.Register(models.DeviceTypeEM500PT100, decodeEM500PT100)
	r.Register(models.DeviceTypeEM500PP, decodeEM500PP)
	r.Register(models.DeviceTypeWS522, decodeWS522)
	r.Register(models.DeviceTypeWS558, decodeWS558)
	r.Register(models.DeviceTypeUC300, decodeUC300)
	r.Register(models.DeviceTypeEM400MUD, decodeEM400MUD)
	r.Register(models.DeviceTypeAM103, decodeAM103)
}

func decodeEM300TH(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery     float64 `json:"battery"`
		Humidity    float64 `json:"humidity"`
		Temperature float64 `json:"temperature"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	// Boot frames report both channels as zero.
	if p.Temperature == 0 && p.Humidity == 0 {
		return nil, nil
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = p.Temperature + calib.Temperature
	reading.Fields[models.FieldHumidity] = p.Humidity + calib.Humidity
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}

func decodeAM107(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery     float64 `json:"battery"`
		Temperature float64 `json:"temperature"`
		Humidity    float64 `json:"humidity"`
		CO2         float64 `json:"co2"`
		TVOC        float64 `json:"tvoc"`
		Pressure    float64 `json:"pressure"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = p.Temperature + calib.Temperature
	reading.Fields[models.FieldHumidity] = p.Humidity + calib.Humidity
	reading.Fields[models.FieldCO2] = p.CO2
	reading.Fields[models.FieldTVOC] = p.TVOC
	reading.Fields[models.FieldPressure] = p.Pressure
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}

func decodeWS101(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery float64 `json:"battery"`
		Press   float64 `json:"press"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldButtonPressed] = p.Press
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}

func decodeEM300MCS(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery    float64 `json:"battery"`
		DoorStatus float64 `json:"door_open_status"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldDoorStatus] = p.DoorStatus
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}

func decodeEM300Leak(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery   float64 `json:"battery"`
		WaterLeak float64 `json:"water_leak"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldWaterLeak] = p.WaterLeak
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}

func decodeEM500PT100(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery     float64 `json:"battery"`
		Temperature float64 `json:"temperature"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = p.Temperature + calib.Temperature
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}

func decodeEM500PP(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery  float64 `json:"battery"`
		Pressure float64 `json:"pressure"` // Pa
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	// Report pipe pressure in hPa to match the other pressure channels.
	reading.Fields[models.FieldPressure] = p.Pressure / 100
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}

// The WS522 reports a full electrical frame only while current is flowing;
// otherwise only the socket state is meaningful.
func decodeWS522(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Current     float64 `json:"current"`
		Voltage     float64 `json:"voltage"`
		Power       float64 `json:"power"`
		PowerFactor float64 `json:"factor"`
		PowerSum    float64 `json:"power_sum"`
		SocketState float64 `json:"socket"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldSocketState] = p.SocketState
	if p.Current > 0 {
		reading.Fields[models.FieldCurrent] = p.Current
		reading.Fields[models.FieldVoltage] = p.Voltage
		reading.Fields[models.FieldPower] = p.Power
		reading.Fields[models.FieldPowerFactor] = p.PowerFactor
		reading.Fields[models.FieldPowerSum] = p.PowerSum
	}
	return reading, nil
}

// The WS558 behaves like the WS522: the electrical channels are only valid
// while the load draws power, the switch states always are.
func decodeWS558(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Current     float64 `json:"current"`
		Voltage     float64 `json:"voltage"`
		ActivePower float64 `json:"active_power"`
		PowerFactor float64 `json:"power_factor"`
		PowerSum    float64 `json:"power_consumption"`
		Switch1     float64 `json:"switch_1"`
		Switch2     float64 `json:"switch_2"`
		Switch3     float64 `json:"switch_3"`
		Switch4     float64 `json:"switch_4"`
		Switch5     float64 `json:"switch_5"`
		Switch6     float64 `json:"switch_6"`
		Switch7     float64 `json:"switch_7"`
		Switch8     float64 `json:"switch_8"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	for i, sw := range []float64{p.Switch1, p.Switch2, p.Switch3, p.Switch4, p.Switch5, p.Switch6, p.Switch7, p.Switch8} {
		reading.Fields[switchField(i+1)] = sw
	}
	if p.PowerFactor > 0 {
		reading.Fields[models.FieldCurrent] = p.Current
		reading.Fields[models.FieldVoltage] = p.Voltage
		reading.Fields[models.FieldPower] = p.ActivePower
		reading.Fields[models.FieldPowerFactor] = p.PowerFactor
		reading.Fields[models.FieldPowerSum] = p.PowerSum
	}
	return reading, nil
}

func switchField(n int) string {
	return "switch_" + strconv.Itoa(n)
}

// The UC300 reports whichever I/O channels are wired; absent channels are
// omitted entirely, so everything is optional.
func decodeUC300(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		ADC1     *string `json:"adc_1"`
		ADC2     *string `json:"adc_2"`
		ADV1     *string `json:"adv_1"`
		GPIOIn1  *string `json:"gpio_in_1"`
		GPIOIn2  *string `json:"gpio_in_2"`
		GPIOIn3  *string `json:"gpio_in_3"`
		GPIOIn4  *string `json:"gpio_in_4"`
		GPIOOut1 *string `json:"gpio_out_1"`
		GPIOOut2 *string `json:"gpio_out_2"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Texts = make(map[string]string)
	setText := func(key string, v *string) {
		if v != nil {
			reading.Texts[key] = *v
		}
	}
	setText(models.TextADC1, p.ADC1)
	setText(models.TextADC2, p.ADC2)
	setText(models.TextADV1, p.ADV1)
	setText(models.TextGPIOIn1, p.GPIOIn1)
	setText(models.TextGPIOIn2, p.GPIOIn2)
	setText(models.TextGPIOIn3, p.GPIOIn3)
	setText(models.TextGPIOIn4, p.GPIOIn4)
	setText(models.TextGPIOOut1, p.GPIOOut1)
	setText(models.TextGPIOOut2, p.GPIOOut2)
	return reading, nil
}

func decodeEM400MUD(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery     float64 `json:"battery"`
		Distance    float64 `json:"distance"`
		Position    string  `json:"position"`
		Temperature float64 `json:"temperature"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	// The sensor reports zero or negative distance when it cannot range.
	if p.Distance <= 0 {
		return nil, nil
	}

	reading := newReading()
	reading.Fields[models.FieldDistance] = p.Distance
	reading.Fields[models.FieldTemperature] = p.Temperature + calib.Temperature
	reading.Fields[models.FieldBattery] = p.Battery
	reading.Texts = map[string]string{models.TextPosition: p.Position}
	return reading, nil
}

func decodeAM103(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Battery     float64 `json:"battery"`
		Temperature float64 `json:"temperature"`
		Humidity    float64 `json:"humidity"`
		CO2         float64 `json:"co2"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.Temperature == 0 && p.Humidity == 0 {
		return nil, nil
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = p.Temperature + calib.Temperature
	reading.Fields[models.FieldHumidity] = p.Humidity + calib.Humidity
	reading.Fields[models.FieldCO2] = p.CO2
	reading.Fields[models.FieldBattery] = p.Battery
	return reading, nil
}
