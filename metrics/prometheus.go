package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider is a Provider backed by github.com/prometheus/client_golang.
// Instruments are created on demand and registered against Registerer once per
// name+attributes pair, then reused for subsequent calls with that same pair.
// Attributes supplied via WithAttributes become the instrument's ConstLabels;
// keying the instrument cache by name plus attributes (not name alone) lets
// the same metric name be registered multiple times with different const
// labels, e.g. one counter per bundle sharing a name but distinguished by a
// "bundle" label, which is the normal Prometheus pattern for a metric family.
type PrometheusProvider struct {
	reg prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheusCounter
	updowns    map[string]*prometheusUpDownCounter
	histograms map[string]*prometheusHistogram
}

type prometheusCounter struct{ c prometheus.Counter }

func (p *prometheusCounter) Add(n int64) { p.c.Add(float64(n)) }

type prometheusUpDownCounter struct{ g prometheus.Gauge }

func (p *prometheusUpDownCounter) Add(n int64) { p.g.Add(float64(n)) }

type prometheusHistogram struct{ h prometheus.Histogram }

func (p *prometheusHistogram) Record(v float64) { p.h.Observe(v) }

// NewPrometheusProvider constructs a Provider that registers instruments against reg.
func NewPrometheusProvider(reg prometheus.Registerer) *PrometheusProvider {
	return &PrometheusProvider{
		reg:        reg,
		counters:   make(map[string]*prometheusCounter),
		updowns:    make(map[string]*prometheusUpDownCounter),
		histograms: make(map[string]*prometheusHistogram),
	}
}

func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.counters[key]; ok {
		return c
	}

	raw := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        name,
		Help:        helpOrDefault(cfg.Description, name),
		ConstLabels: prometheus.Labels(cfg.Attributes),
	})
	p.reg.MustRegister(raw)
	c := &prometheusCounter{c: raw}
	p.counters[key] = c
	return c
}

func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.updowns[key]; ok {
		return g
	}

	raw := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        name,
		Help:        helpOrDefault(cfg.Description, name),
		ConstLabels: prometheus.Labels(cfg.Attributes),
	})
	p.reg.MustRegister(raw)
	g := &prometheusUpDownCounter{g: raw}
	p.updowns[key] = g
	return g
}

func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)
	key := instrumentKey(name, cfg.Attributes)

	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.histograms[key]; ok {
		return h
	}

	raw := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        name,
		Help:        helpOrDefault(cfg.Description, name),
		ConstLabels: prometheus.Labels(cfg.Attributes),
	})
	p.reg.MustRegister(raw)
	h := &prometheusHistogram{h: raw}
	p.histograms[key] = h
	return h
}

func helpOrDefault(desc, name string) string {
	if desc != "" {
		return desc
	}
	return name + " (fiberspace instrument)"
}
