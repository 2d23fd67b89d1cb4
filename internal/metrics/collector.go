// Package metrics exports entity state as Prometheus gauges.
package metrics

import (
	"flairbridge/internal/entity"

	"github.com/prometheus/client_golang/prometheus"
)

// Source lists the entities to export.
type Source interface {
	All() []entity.Entity
}

// Collector reads entity state at scrape time.
type Collector struct {
	source Source

	sensorValue *prometheus.Desc
	current     *prometheus.Desc
	target      *prometheus.Desc
	humidity    *prometheus.Desc
	available   *prometheus.Desc
	entities    *prometheus.Desc
}

// NewCollector creates a collector over source.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		sensorValue: prometheus.NewDesc(
			"flairbridge_sensor_value",
			"Current numeric sensor reading",
			[]string{"entity", "name", "device_class", "unit"}, nil),
		current: prometheus.NewDesc(
			"flairbridge_climate_current_temperature",
			"Measured temperature per climate in its display unit",
			[]string{"entity", "name", "unit"}, nil),
		target: prometheus.NewDesc(
			"flairbridge_climate_target_temperature",
			"Set point per climate in its display unit",
			[]string{"entity", "name", "unit"}, nil),
		humidity: prometheus.NewDesc(
			"flairbridge_climate_humidity_percent",
			"Room humidity per room climate",
			[]string{"entity", "name"}, nil),
		available: prometheus.NewDesc(
			"flairbridge_entity_available",
			"Entity availability (1=available, 0=unavailable)",
			[]string{"entity", "platform"}, nil),
		entities: prometheus.NewDesc(
			"flairbridge_entities",
			"Number of entities per platform",
			[]string{"platform"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sensorValue
	ch <- c.current
	ch <- c.target
	ch <- c.humidity
	ch <- c.available
	ch <- c.entities
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counts := map[entity.Platform]int{}

	for _, e := range c.source.All() {
		counts[e.Platform()]++
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue,
			boolToFloat(e.Available()), e.UniqueID(), string(e.Platform()))

		switch v := e.(type) {
		case *entity.Sensor:
			if n, ok := v.NumericValue(); ok {
				ch <- prometheus.MustNewConstMetric(c.sensorValue, prometheus.GaugeValue,
					n, v.UniqueID(), v.Name(), v.DeviceClass(), v.Unit())
			}
		case *entity.Climate:
			unit := v.TemperatureUnit()
			if t := v.CurrentTemperature(); t != nil {
				ch <- prometheus.MustNewConstMetric(c.current, prometheus.GaugeValue,
					*t, v.UniqueID(), v.Name(), unit)
			}
			if t := v.TargetTemperature(); t != nil {
				ch <- prometheus.MustNewConstMetric(c.target, prometheus.GaugeValue,
					*t, v.UniqueID(), v.Name(), unit)
			}
			if h := v.CurrentHumidity(); h != nil {
				ch <- prometheus.MustNewConstMetric(c.humidity, prometheus.GaugeValue,
					*h, v.UniqueID(), v.Name())
			}
		}
	}

	for platform, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.entities, prometheus.GaugeValue, float64(n), string(platform))
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
