package metrics

import (
	"errors"
	"testing"

	"github.com/diwise/metadata-instance-store/pkg/metadata/converter"
	"github.com/matryer/is"
)

func TestAnomalyHandlerCountsPerKindAndBean(t *testing.T) {
	is, m := setupMetricsTest(t)

	handler := m.AnomalyHandler()
	handler(converter.Anomaly{Kind: converter.UnknownProperty, Bean: "Person", Name: "customField123"})
	handler(converter.Anomaly{Kind: converter.UnknownProperty, Bean: "Person", Name: "shoeSize"})
	handler(converter.Anomaly{Kind: converter.UnknownClassification, Bean: "Asset", Name: "Retention"})

	totals, err := m.Totals()
	is.NoErr(err)
	is.Equal(totals[`metadata_conversion_anomalies_total{bean="Person",kind="UnknownProperty"}`], 2.0)
	is.Equal(totals[`metadata_conversion_anomalies_total{bean="Asset",kind="UnknownClassification"}`], 1.0)
}

func TestConversionsAreCountedByStatus(t *testing.T) {
	is, m := setupMetricsTest(t)

	m.ConversionDone("Person", nil)
	m.ConversionDone("Person", nil)
	m.ConversionDone("Person", errors.New("boom"))
	m.RoundTripFailed("Asset")

	totals, err := m.Totals()
	is.NoErr(err)
	is.Equal(totals[`metadata_conversions_total{bean="Person",status="ok"}`], 2.0)
	is.Equal(totals[`metadata_conversions_total{bean="Person",status="failed"}`], 1.0)
	is.Equal(totals[`metadata_round_trips_failed_total{bean="Asset"}`], 1.0)
}

func TestThatInstancesDoNotShareCounters(t *testing.T) {
	is := is.New(t)

	first, second := New(), New()
	first.ConversionDone("Person", nil)

	totals, err := second.Totals()
	is.NoErr(err)
	is.Equal(len(totals), 0) // a fresh instance should have nothing to report
}

func setupMetricsTest(t *testing.T) (*is.I, *Metrics) {
	return is.New(t), New()
}
