// Package metrics counts conversions and the anomalies recovered by the converter
package metrics

import (
	"fmt"
	"slices"
	"strings"

	"github.com/diwise/metadata-instance-store/pkg/metadata/converter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	registry *prometheus.Registry

	AnomaliesTotal   *prometheus.CounterVec
	ConversionsTotal *prometheus.CounterVec
	RoundTripsFailed *prometheus.CounterVec
}

// New creates the metrics on a registry of their own so that several
// instances can live in the same process
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_conversion_anomalies_total",
				Help: "Total number of properties and classifications kept in an extras bag",
			},
			[]string{"kind", "bean"},
		),
		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_conversions_total",
				Help: "Total number of instance to bean conversions",
			},
			[]string{"bean", "status"},
		),
		RoundTripsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_round_trips_failed_total",
				Help: "Total number of instances that did not survive a conversion round trip",
			},
			[]string{"bean"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AnomalyHandler returns a func to be passed to converter.WithAnomalyHandler
func (m *Metrics) AnomalyHandler() func(converter.Anomaly) {
	return func(a converter.Anomaly) {
		m.AnomaliesTotal.WithLabelValues(string(a.Kind), a.Bean).Inc()
	}
}

func (m *Metrics) ConversionDone(bean string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.ConversionsTotal.WithLabelValues(bean, status).Inc()
}

func (m *Metrics) RoundTripFailed(bean string) {
	m.RoundTripsFailed.WithLabelValues(bean).Inc()
}

// Totals returns the value of every counter keyed by name and labels, for
// example metadata_conversions_total{bean="Person",status="ok"}
func (m *Metrics) Totals() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	totals := map[string]float64{}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := []string{}
			for _, lp := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			slices.Sort(labels)

			key := mf.GetName()
			if len(labels) > 0 {
				key = key + "{" + strings.Join(labels, ",") + "}"
			}

			totals[key] += metric.GetCounter().GetValue()
		}
	}

	return totals, nil
}
