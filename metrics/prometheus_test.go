package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPrometheusProvider_CounterAccumulates(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg)

	c := p.Counter("fiberspace_resumes_total", WithDescription("fiber resumes"))
	c.Add(3)
	c.Add(2)

	// same name returns the same instrument, not a fresh one.
	again := p.Counter("fiberspace_resumes_total")
	again.Add(1)

	got := gatherCounter(t, reg, "fiberspace_resumes_total")
	if got != 6 {
		t.Fatalf("expected counter value 6, got %v", got)
	}
}

func TestPrometheusProvider_HistogramObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheusProvider(reg)

	h := p.Histogram("fiberspace_dispatch_seconds")
	h.Record(0.01)
	h.Record(0.02)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "fiberspace_dispatch_seconds" {
			continue
		}
		found = true
		if got := mf.Metric[0].GetHistogram().GetSampleCount(); got != 2 {
			t.Fatalf("expected 2 samples, got %d", got)
		}
	}
	if !found {
		t.Fatalf("histogram not found in registry")
	}
}

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return sumCounterValues(mf.Metric)
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func sumCounterValues(ms []*dto.Metric) float64 {
	var total float64
	for _, m := range ms {
		total += m.GetCounter().GetValue()
	}
	return total
}
