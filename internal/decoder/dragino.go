package decoder

import (
	"encoding/json"
	"fmt"
	"strconv"

	"lorasense-alarm/internal/models"
)

// Dragino sensors mostly report numeric values as strings; a few carry
// sentinel values for "sensor not ready" that must yield no reading rather
// than a zero.

func registerDragino(r *Registry) {
	r.Register(models.DeviceTypeLSN50V2, decodeLSN50V2)
	r.Register(models.DeviceTypeLSE01, decodeLSE01)
	r.Register(models.DeviceTypeLDS01, decodeLDS01)
	r.Register(models.DeviceTypeLWL01, decodeLWL01)
	r.Register(models.DeviceTypeLT22222L, decodeLT22222L)
	r.Register(models.DeviceTypeLHT65, decodeLHT65)
	r.Register(models.DeviceTypeLAQ4, decodeLAQ4)
	r.Register(models.DeviceTypeLSPH01, decodeLSPH01)
	r.Register(models.DeviceTypeLTC2LB, decodeLTC2LB)
	r.Register(models.DeviceTypeDDS45LB, decodeDDS45LB)
}

// sensorNotReadyTemp is reported by the LSN50v2 while the SHT probe is
// still warming up.
const sensorNotReadyTemp = "-45"

func decodeLSN50V2(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		BatV    float64 `json:"batv"`
		HumSHT  string  `json:"hum_sht"`
		TempSHT string  `json:"temp_c_sht"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.TempSHT == sensorNotReadyTemp {
		return nil, nil
	}

	temp, err := parseFloat(p.TempSHT, "temp_c_sht")
	if err != nil {
		return nil, err
	}
	hum, err := parseFloat(p.HumSHT, "hum_sht")
	if err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = temp + calib.Temperature
	reading.Fields[models.FieldHumidity] = hum + calib.Humidity
	reading.Fields[models.FieldBattery] = p.BatV
	return reading, nil
}

func decodeLSE01(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		BatV        float64 `json:"BatV"`
		ConductSoil float64 `json:"conduct_SOIL"`
		TempSoil    string  `json:"temp_SOIL"`
		WaterSoil   string  `json:"water_SOIL"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	// "0.00" soil temperature marks an invalid probe read.
	if p.TempSoil == "0.00" {
		return nil, nil
	}

	temp, err := parseFloat(p.TempSoil, "temp_SOIL")
	if err != nil {
		return nil, err
	}
	water, err := parseFloat(p.WaterSoil, "water_SOIL")
	if err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldSoilTemperature] = temp + calib.Temperature
	reading.Fields[models.FieldSoilMoisture] = water + calib.Humidity
	reading.Fields[models.FieldSoilConductivity] = p.ConductSoil
	reading.Fields[models.FieldBattery] = p.BatV
	return reading, nil
}

func decodeLDS01(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		DoorStatus   float64 `json:"door_open_status"`
		OpenTimes    float64 `json:"door_open_times"`
		OpenDuration float64 `json:"last_door_open_duration"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldDoorStatus] = p.DoorStatus
	reading.Fields[models.FieldDoorOpenTimes] = p.OpenTimes
	reading.Fields[models.FieldDoorOpenDuration] = p.OpenDuration
	return reading, nil
}

func decodeLWL01(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		BatV         float64 `json:"BatV"`
		LeakStatus   float64 `json:"WATER_LEAK_STATUS"`
		LeakTimes    float64 `json:"WATER_LEAK_TIMES"`
		LeakDuration float64 `json:"LAST_WATER_LEAK_DURATION"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldWaterLeak] = p.LeakStatus
	reading.Fields[models.FieldWaterLeakTimes] = p.LeakTimes
	reading.Fields[models.FieldWaterLeakDuration] = p.LeakDuration
	reading.Fields[models.FieldBattery] = p.BatV
	return reading, nil
}

func decodeLT22222L(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		RO1      float64 `json:"ro1_status"`
		RO2      float64 `json:"ro2_status"`
		GPIOIn1  string  `json:"gpio_in_1"`
		GPIOIn2  string  `json:"gpio_in_2"`
		GPIOOut1 string  `json:"gpio_out_1"`
		GPIOOut2 string  `json:"gpio_out_2"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldRelay1] = p.RO1
	reading.Fields[models.FieldRelay2] = p.RO2
	reading.Texts = map[string]string{
		models.TextGPIOIn1:  p.GPIOIn1,
		models.TextGPIOIn2:  p.GPIOIn2,
		models.TextGPIOOut1: p.GPIOOut1,
		models.TextGPIOOut2: p.GPIOOut2,
	}
	return reading, nil
}

func decodeLHT65(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		BatV        float64 `json:"BatV"`
		Humidity    string  `json:"Hum_SHT"`
		Temperature string  `json:"TempC_SHT"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	temp, err := parseFloat(p.Temperature, "TempC_SHT")
	if err != nil {
		return nil, err
	}
	hum, err := parseFloat(p.Humidity, "Hum_SHT")
	if err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = temp + calib.Temperature
	reading.Fields[models.FieldHumidity] = hum + calib.Humidity
	reading.Fields[models.FieldBattery] = p.BatV
	return reading, nil
}

func decodeLAQ4(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		BatV        float64 `json:"BatV"`
		Humidity    float64 `json:"Hum_SHT"`
		Temperature float64 `json:"TempC_SHT"`
		CO2         float64 `json:"CO2_ppm"`
		TVOC        float64 `json:"TVOC_ppm"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = p.Temperature + calib.Temperature
	reading.Fields[models.FieldHumidity] = p.Humidity + calib.Humidity
	reading.Fields[models.FieldCO2] = p.CO2
	reading.Fields[models.FieldTVOC] = p.TVOC
	reading.Fields[models.FieldBattery] = p.BatV
	return reading, nil
}

func decodeLSPH01(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		BatV     float64 `json:"BatV"`
		PHSoil   string  `json:"PH1_SOIL"`
		TempSoil string  `json:"TEMP_SOIL"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.TempSoil == "0.00" {
		return nil, nil
	}

	temp, err := parseFloat(p.TempSoil, "TEMP_SOIL")
	if err != nil {
		return nil, err
	}
	ph, err := parseFloat(p.PHSoil, "PH1_SOIL")
	if err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldSoilTemperature] = temp + calib.Temperature
	reading.Fields[models.FieldSoilPH] = ph
	reading.Fields[models.FieldBattery] = p.BatV
	return reading, nil
}

// The LTC2-LB carries two probes; the first is the calibrated primary, the
// second is reported as-is.
func decodeLTC2LB(raw json.RawMessage, calib Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Temperature1 float64 `json:"temperature1"`
		Temperature2 float64 `json:"temperature2"`
		BatV         float64 `json:"BatV"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldTemperature] = p.Temperature1 + calib.Temperature
	reading.Fields[models.FieldTemperature2] = p.Temperature2
	reading.Fields[models.FieldBattery] = p.BatV
	return reading, nil
}

func decodeDDS45LB(raw json.RawMessage, _ Calibration) (*models.TelemetryReading, error) {
	var p struct {
		Bat      float64 `json:"Bat"`
		Distance float64 `json:"Distance"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}

	reading := newReading()
	reading.Fields[models.FieldDistance] = p.Distance
	reading.Fields[models.FieldBattery] = p.Bat
	return reading, nil
}

func parseFloat(s, field string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}
