package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sumd",
			Subsystem: "pipeline",
			Name:      "latency_ms",
			Help:      "Wall-clock latency of measured summarization runs in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 14),
		},
		[]string{"profile", "device", "outcome"},
	)

	pipelineEnergy = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sumd",
			Subsystem: "pipeline",
			Name:      "energy_wh",
			Help:      "Energy of measured summarization runs in watt-hours",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
		},
		[]string{"profile", "device", "outcome"},
	)

	energyMissing = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumd",
			Subsystem: "pipeline",
			Name:      "energy_unavailable_total",
			Help:      "Measured runs for which the meter produced no reading",
		},
		[]string{"profile"},
	)
)

func init() {
	prometheus.MustRegister(pipelineLatency, pipelineEnergy, energyMissing)
}

// PromSink exports measurements as Prometheus histograms.
type PromSink struct{}

func (PromSink) Record(m Measurement) {
	pipelineLatency.WithLabelValues(m.Profile, m.Device, m.Outcome).Observe(m.LatencyMS)
	pipelineEnergy.WithLabelValues(m.Profile, m.Device, m.Outcome).Observe(m.EnergyWh)
	if !m.EnergyOK {
		energyMissing.WithLabelValues(m.Profile).Inc()
	}
}

// MemorySink keeps measurements in memory for tests and status reporting.
type MemorySink struct {
	mu   sync.Mutex
	recs []Measurement
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Record(m Measurement) {
	s.mu.Lock()
	s.recs = append(s.recs, m)
	s.mu.Unlock()
}

// Measurements returns a copy of everything recorded so far.
func (s *MemorySink) Measurements() []Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Measurement, len(s.recs))
	copy(out, s.recs)
	return out
}
