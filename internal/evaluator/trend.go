package evaluator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SeriesReader provides recent temperature history for trend checks.
type SeriesReader interface {
	// TemperatureSeries returns temperature samples for the device observed
	// within the window, oldest first.
	TemperatureSeries(ctx context.Context, devEUI string, window time.Duration) ([]float64, error)
	// LatestTemperature returns the most recent temperature sample, if any.
	LatestTemperature(ctx context.Context, devEUI string) (float64, bool, error)
}

// TrendDetector gates defrost-zone alarms. A cold room in a defrost cycle
// legitimately exceeds its max threshold for a while; the alarm should only
// fire when the whole recent history sits above the threshold and is still
// rising.
type TrendDetector struct {
	series SeriesReader
	logger *zap.Logger
}

// NewTrendDetector builds a TrendDetector over the given history source.
func NewTrendDetector(series SeriesReader, logger *zap.Logger) *TrendDetector {
	return &TrendDetector{series: series, logger: logger}
}

// ShouldFire reports whether a defrost-zone breach is a real excursion.
// It fires only when every sample in the window is at or above maxThreshold
// and the series is still rising at its tail. No history at all means no
// fire: a single missing window is not evidence of a problem.
func (d *TrendDetector) ShouldFire(ctx context.Context, devEUI string, window time.Duration, maxThreshold float64) (bool, error) {
	samples, err := d.series.TemperatureSeries(ctx, devEUI, window)
	if err != nil {
		return false, fmt.Errorf("read temperature series: %w", err)
	}

	if len(samples) == 0 {
		latest, ok, err := d.series.LatestTemperature(ctx, devEUI)
		if err != nil {
			return false, fmt.Errorf("read latest temperature: %w", err)
		}
		if !ok {
			d.logger.Debug("no temperature history for defrost check", zap.String("dev_eui", devEUI))
			return false, nil
		}
		samples = []float64{latest}
	}

	for _, s := range samples {
		if s < maxThreshold {
			return false, nil
		}
	}
	if len(samples) > 1 && samples[len(samples)-1] <= samples[len(samples)-2] {
		// Above threshold but already falling: the defrost cycle is ending.
		return false, nil
	}
	return true, nil
}
