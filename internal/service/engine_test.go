package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lorasense-alarm/internal/automation"
	"lorasense-alarm/internal/consumer"
	"lorasense-alarm/internal/decoder"
	"lorasense-alarm/internal/evaluator"
	"lorasense-alarm/internal/models"
	"lorasense-alarm/internal/schedule"
)

type stubDevices struct {
	device *models.Device
	err    error
}

func (s *stubDevices) GetByEUI(_ context.Context, _ string) (*models.Device, error) {
	return s.device, s.err
}

type stubAlarmSource struct{ alarms []models.Alarm }

func (s *stubAlarmSource) ActiveAlarms(_ context.Context, _ string) ([]models.Alarm, error) {
	return s.alarms, nil
}

type stubSeriesSource struct{}

func (stubSeriesSource) TemperatureSeries(_ context.Context, _ string, _ time.Duration) ([]float64, error) {
	return nil, nil
}

func (stubSeriesSource) LatestTemperature(_ context.Context, _ string) (float64, bool, error) {
	return 0, false, nil
}

type recorder struct {
	mu          sync.Mutex
	stored      []*models.TelemetryReading
	cached      []*models.TelemetryReading
	outputs     map[string]automation.OutputState
	deadLetters []string
	alarmRuns   []int64
	readingRuns []string
	timedRuns   int
}

func (r *recorder) Insert(_ context.Context, reading *models.TelemetryReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, reading)
	return nil
}

func (r *recorder) Store(_ context.Context, reading *models.TelemetryReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = append(r.cached, reading)
	return nil
}

func (r *recorder) UpsertOutputs(_ context.Context, devEUI string, state automation.OutputState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outputs == nil {
		r.outputs = make(map[string]automation.OutputState)
	}
	r.outputs[devEUI] = state
	return nil
}

func (r *recorder) InsertDeadLetter(_ context.Context, devEUI string, _ json.RawMessage, reason string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadLetters = append(r.deadLetters, devEUI+": "+reason)
	return nil
}

func (r *recorder) OnReading(_ context.Context, reading *models.TelemetryReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readingRuns = append(r.readingRuns, reading.DevEUI)
	return nil
}

func (r *recorder) OnAlarm(_ context.Context, alarmID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alarmRuns = append(r.alarmRuns, alarmID)
	return nil
}

func (r *recorder) RunDueTimeRules(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timedRuns++
	return nil
}

type deadLetterAdapter struct{ r *recorder }

func (a deadLetterAdapter) Insert(ctx context.Context, devEUI string, payload json.RawMessage, reason string, at time.Time) error {
	return a.r.InsertDeadLetter(ctx, devEUI, payload, reason, at)
}

func newTestEngine(devices DeviceSource, alarms []models.Alarm, rec *recorder) *Engine {
	logger := zap.NewNop()
	matcher := schedule.NewMatcher(schedule.SystemClock{}, 0)
	trend := evaluator.NewTrendDetector(stubSeriesSource{}, logger)
	eval := evaluator.New(&stubAlarmSource{alarms: alarms}, matcher, trend, nil, logger)

	return NewEngine(Options{
		Devices:     devices,
		Registry:    decoder.NewRegistry(),
		Evaluator:   eval,
		Automation:  rec,
		Telemetry:   rec,
		StateCache:  rec,
		Outputs:     rec,
		DeadLetters: deadLetterAdapter{r: rec},
		Workers:     2,
		Logger:      logger,
	})
}

func uplinkEvent(devEUI string, object string) *consumer.UplinkEvent {
	event := &consumer.UplinkEvent{
		Time:   time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC),
		Object: json.RawMessage(object),
	}
	event.DeviceInfo.DevEUI = devEUI
	return event
}

func TestEngineProcessesUplinkEndToEnd(t *testing.T) {
	device := &models.Device{
		DevEUI:     "a84041000181d3f2",
		Name:       "cold-room-1",
		DeviceType: models.DeviceTypeLHT65,
	}
	alarm := models.Alarm{
		ID: 7, DevEUI: device.DevEUI,
		MinThreshold: 0, MaxThreshold: 8,
		Temperature: true, IsActive: true,
	}
	rec := &recorder{}
	e := newTestEngine(&stubDevices{device: device}, []models.Alarm{alarm}, rec)

	err := e.HandleUplink(context.Background(),
		uplinkEvent(device.DevEUI, `{"BatV":3.05,"Hum_SHT":"61.5","TempC_SHT":"9.25"}`))
	require.NoError(t, err)
	e.Stop()

	require.Len(t, rec.cached, 1)
	require.Len(t, rec.stored, 1)
	assert.Equal(t, []int64{7}, rec.alarmRuns, "firing alarm triggers its automation rules")
	assert.Equal(t, []string{device.DevEUI}, rec.readingRuns)
	assert.Empty(t, rec.deadLetters)
}

func TestEngineDeadLettersUnknownDevice(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(&stubDevices{device: nil}, nil, rec)

	require.NoError(t, e.HandleUplink(context.Background(),
		uplinkEvent("ffffffffffffffff", `{"battery":90}`)))
	e.Stop()

	require.Len(t, rec.deadLetters, 1)
	assert.Contains(t, rec.deadLetters[0], "not provisioned")
	assert.Empty(t, rec.cached)
}

func TestEngineDeadLettersDecodeFailure(t *testing.T) {
	device := &models.Device{DevEUI: "a84041000181d3f2", DeviceType: 99}
	rec := &recorder{}
	e := newTestEngine(&stubDevices{device: device}, nil, rec)

	require.NoError(t, e.HandleUplink(context.Background(),
		uplinkEvent(device.DevEUI, `{"battery":90}`)))
	e.Stop()

	require.Len(t, rec.deadLetters, 1)
	assert.Contains(t, rec.deadLetters[0], "unsupported device type")
}

func TestEnginePersistsActuatorOutputs(t *testing.T) {
	device := &models.Device{
		DevEUI:     "a840410001811111",
		Name:       "warehouse-fan",
		DeviceType: models.DeviceTypeLT22222L,
	}
	rec := &recorder{}
	e := newTestEngine(&stubDevices{device: device}, nil, rec)

	require.NoError(t, e.HandleUplink(context.Background(), uplinkEvent(device.DevEUI,
		`{"ro1_status":1,"ro2_status":0,"gpio_in_1":"0","gpio_in_2":"0","gpio_out_1":"1","gpio_out_2":"0"}`)))
	e.Stop()

	// Output pins are written durably, not only to the expiring cache.
	require.Contains(t, rec.outputs, device.DevEUI)
	assert.Equal(t, automation.OutputState{Out1: "1", Out2: "0"}, rec.outputs[device.DevEUI])
}

func TestEngineSkipsOutputWriteForPlainSensors(t *testing.T) {
	device := &models.Device{
		DevEUI:     "a84041000181d3f2",
		DeviceType: models.DeviceTypeLHT65,
	}
	rec := &recorder{}
	e := newTestEngine(&stubDevices{device: device}, nil, rec)

	require.NoError(t, e.HandleUplink(context.Background(), uplinkEvent(device.DevEUI,
		`{"BatV":3.05,"Hum_SHT":"61.5","TempC_SHT":"4.25"}`)))
	e.Stop()

	assert.Empty(t, rec.outputs)
}

func TestEngineDropsEmptyFrameQuietly(t *testing.T) {
	device := &models.Device{DevEUI: "a84041000181d3f2", DeviceType: models.DeviceTypeLSN50V2}
	rec := &recorder{}
	e := newTestEngine(&stubDevices{device: device}, nil, rec)

	// Sensor-not-ready sentinel: valid frame, nothing to evaluate.
	require.NoError(t, e.HandleUplink(context.Background(),
		uplinkEvent(device.DevEUI, `{"batv":3.3,"hum_sht":"0.0","temp_c_sht":"-45"}`)))
	e.Stop()

	assert.Empty(t, rec.deadLetters)
	assert.Empty(t, rec.cached)
	assert.Empty(t, rec.readingRuns)
}
