// Package service wires the uplink pipeline: device lookup, decode, state
// caching, alarm evaluation and automation.
package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"lorasense-alarm/internal/automation"
	"lorasense-alarm/internal/consumer"
	"lorasense-alarm/internal/decoder"
	"lorasense-alarm/internal/evaluator"
	"lorasense-alarm/internal/models"
)

// DeviceSource loads provisioning records.
type DeviceSource interface {
	GetByEUI(ctx context.Context, devEUI string) (*models.Device, error)
}

// TelemetryWriter persists readings for trend history.
type TelemetryWriter interface {
	Insert(ctx context.Context, reading *models.TelemetryReading) error
}

// StateWriter caches the latest reading per device.
type StateWriter interface {
	Store(ctx context.Context, reading *models.TelemetryReading) error
}

// OutputStateWriter records actuator output pins durably, so automation
// state guards still work after the latest-reading cache expires.
type OutputStateWriter interface {
	UpsertOutputs(ctx context.Context, devEUI string, state automation.OutputState) error
}

// DeadLetterWriter records uplinks that could not be processed.
type DeadLetterWriter interface {
	Insert(ctx context.Context, devEUI string, payload json.RawMessage, reason string, at time.Time) error
}

// AutomationRunner is the automation entry points the engine drives.
type AutomationRunner interface {
	OnReading(ctx context.Context, reading *models.TelemetryReading) error
	OnAlarm(ctx context.Context, alarmID int64) error
	RunDueTimeRules(ctx context.Context) error
}

// Engine is the evaluation pipeline. One instance serves all devices;
// uplinks of the same device are processed serially in arrival order.
type Engine struct {
	devices     DeviceSource
	registry    *decoder.Registry
	evaluator   *evaluator.Evaluator
	automation  AutomationRunner
	telemetry   TelemetryWriter
	stateCache  StateWriter
	outputs     OutputStateWriter
	deadLetters DeadLetterWriter
	pool        *workerPool
	logger      *zap.Logger
}

// Options bundle the engine dependencies.
type Options struct {
	Devices     DeviceSource
	Registry    *decoder.Registry
	Evaluator   *evaluator.Evaluator
	Automation  AutomationRunner
	Telemetry   TelemetryWriter
	StateCache  StateWriter
	Outputs     OutputStateWriter
	DeadLetters DeadLetterWriter
	Workers     int
	Logger      *zap.Logger
}

// NewEngine builds an Engine with a running worker pool.
func NewEngine(opts Options) *Engine {
	return &Engine{
		devices:     opts.Devices,
		registry:    opts.Registry,
		evaluator:   opts.Evaluator,
		automation:  opts.Automation,
		telemetry:   opts.Telemetry,
		stateCache:  opts.StateCache,
		outputs:     opts.Outputs,
		deadLetters: opts.DeadLetters,
		pool:        newWorkerPool(opts.Workers, 64, opts.Logger),
		logger:      opts.Logger,
	}
}

// HandleUplink queues one uplink event for processing. Implements
// consumer.UplinkHandler. The error return only reports queueing problems;
// processing failures are logged inside the pipeline.
func (e *Engine) HandleUplink(ctx context.Context, event *consumer.UplinkEvent) error {
	e.pool.Submit(event.DeviceInfo.DevEUI, func() {
		e.process(ctx, event)
	})
	return nil
}

// Stop drains the worker pool.
func (e *Engine) Stop() {
	e.pool.Stop()
}

func (e *Engine) process(ctx context.Context, event *consumer.UplinkEvent) {
	devEUI := event.DeviceInfo.DevEUI
	log := e.logger.With(zap.String("dev_eui", devEUI))

	device, err := e.devices.GetByEUI(ctx, devEUI)
	if err != nil {
		log.Error("device lookup failed", zap.Error(err))
		return
	}
	if device == nil {
		log.Warn("uplink from unprovisioned device")
		e.deadLetter(ctx, devEUI, event.Object, "device not provisioned", event.Time)
		return
	}

	reading, err := e.registry.Decode(device, event.Object, event.Time)
	if err != nil {
		log.Warn("uplink decode failed", zap.Int("device_type", device.DeviceType), zap.Error(err))
		e.deadLetter(ctx, devEUI, event.Object, err.Error(), event.Time)
		return
	}
	if reading == nil {
		log.Debug("uplink carried no usable reading")
		return
	}

	if err := e.stateCache.Store(ctx, reading); err != nil {
		log.Warn("latest-state cache write failed", zap.Error(err))
	}
	e.persistOutputs(ctx, reading, log)
	if err := e.telemetry.Insert(ctx, reading); err != nil {
		log.Warn("telemetry history write failed", zap.Error(err))
	}

	firings, err := e.evaluator.CheckAlarms(ctx, device, reading)
	if err != nil {
		log.Error("alarm evaluation failed", zap.Error(err))
	}
	for _, firing := range firings {
		if err := e.automation.OnAlarm(ctx, firing.Alarm.ID); err != nil {
			log.Error("alarm-triggered automation failed",
				zap.Int64("alarm_id", firing.Alarm.ID), zap.Error(err))
		}
	}

	if err := e.automation.OnReading(ctx, reading); err != nil {
		log.Error("device-triggered automation failed", zap.Error(err))
	}
}

// persistOutputs records actuator output pins so state-guard checks
// outlive the cache TTL. Readings without output pins are skipped.
func (e *Engine) persistOutputs(ctx context.Context, reading *models.TelemetryReading, log *zap.Logger) {
	if e.outputs == nil {
		return
	}
	out1, ok1 := reading.Text(models.TextGPIOOut1)
	out2, ok2 := reading.Text(models.TextGPIOOut2)
	if !ok1 && !ok2 {
		return
	}

	state := automation.OutputState{Out1: out1, Out2: out2}
	if err := e.outputs.UpsertOutputs(ctx, reading.DevEUI, state); err != nil {
		log.Warn("output state write failed", zap.Error(err))
	}
}

func (e *Engine) deadLetter(ctx context.Context, devEUI string, payload json.RawMessage, reason string, at time.Time) {
	if e.deadLetters == nil {
		return
	}
	if err := e.deadLetters.Insert(ctx, devEUI, payload, reason, at); err != nil {
		e.logger.Error("dead letter write failed",
			zap.String("dev_eui", devEUI), zap.Error(err))
	}
}

// RunScheduler drives the time-triggered automation rules, checking once
// per minute until the context is cancelled.
func (e *Engine) RunScheduler(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.automation.RunDueTimeRules(ctx); err != nil {
				e.logger.Error("time-triggered automation pass failed", zap.Error(err))
			}
		}
	}
}
