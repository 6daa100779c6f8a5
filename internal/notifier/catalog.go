package notifier

import (
	"fmt"

	"lorasense-alarm/internal/evaluator"
)

// numericTemplates render threshold-metric firings. The device name and the
// measured value are interpolated in that order.
var numericTemplates = map[string]string{
	evaluator.MetricTemperature:  "Temperature alarm on %s: measured %.1f °C",
	evaluator.MetricHumidity:     "Humidity alarm on %s: measured %.1f %%",
	evaluator.MetricConductivity: "Soil conductivity alarm on %s: measured %.1f µS/cm",
	evaluator.MetricPressure:     "Pressure alarm on %s: measured %.1f hPa",
	evaluator.MetricCO2:          "CO2 alarm on %s: measured %.0f ppm",
	evaluator.MetricDistance:     "Distance alarm on %s: measured %.2f m",
}

// eventTemplates render binary firings, which carry no meaningful value.
var eventTemplates = map[string]string{
	evaluator.MetricDoor:      "Door opened on %s",
	evaluator.MetricWaterLeak: "Water leak detected on %s",
	evaluator.MetricButton:    "Emergency button pressed on %s",
}

// renderMessage produces the notification text for a firing. Unknown
// metrics get a generic line rather than an empty message.
func renderMessage(f evaluator.Firing) string {
	name := f.Device.Name
	if name == "" {
		name = f.Device.DevEUI
	}

	if tmpl, ok := numericTemplates[f.Metric]; ok {
		return fmt.Sprintf(tmpl, name, f.Value)
	}
	if tmpl, ok := eventTemplates[f.Metric]; ok {
		return fmt.Sprintf(tmpl, name)
	}
	return fmt.Sprintf("Alarm on %s: %s out of range (%.2f)", name, f.Metric, f.Value)
}
