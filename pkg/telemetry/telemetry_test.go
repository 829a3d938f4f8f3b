package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTracerStartAttemptDoesNotPanic(t *testing.T) {
	tr := NewTracer(WithTracerName("hydra-test"))
	_, span := tr.StartAttempt(context.Background(), "0.1", 1)
	EndWithError(span, nil)

	_, span2 := tr.StartHoleResolution(context.Background(), "0.1", 2)
	EndWithError(span2, errors.New("boom"))
}

func TestMetricsRecordAttemptIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := initMetrics(MetricsConfig{
		Namespace: "hydra_test",
		Subsystem: "boundary",
		Buckets:   prometheus.DefBuckets,
		Registry:  reg,
	})

	m.RecordAttempt("0.1")
	m.RecordAttempt("0.1")
	m.RecordSettlement(nil)
	m.RecordSettlement(errors.New("x"))
	m.RecordFallback()

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var found bool
	for _, fam := range metricFamilies {
		if fam.GetName() == "hydra_test_boundary_attempts_total" {
			found = true
			var total float64
			for _, mm := range fam.Metric {
				total += mm.GetCounter().GetValue()
			}
			if total != 2 {
				t.Errorf("attempts_total = %v, want 2", total)
			}
		}
	}
	if !found {
		t.Fatalf("attempts_total metric not registered")
	}
}
