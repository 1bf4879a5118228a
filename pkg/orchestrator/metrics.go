package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the run counters. A nil *Metrics records nothing.
type Metrics struct {
	written        *prometheus.CounterVec
	failed         *prometheus.CounterVec
	producerErrors *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	lastRun        prometheus.Gauge
}

// Failure reasons used as the "reason" label.
const (
	reasonStore   = "store"
	reasonInvalid = "invalid"
)

// NewMetrics creates the run metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.written = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stat_tracker",
		Name:      "events_written_total",
		Help:      "Events appended to the event log by producer",
	}, []string{"producer"})
	m.failed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stat_tracker",
		Name:      "events_failed_total",
		Help:      "Records that were not appended, by producer and reason",
	}, []string{"producer", "reason"})
	m.producerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stat_tracker",
		Name:      "producer_errors_total",
		Help:      "Producer invocations that returned an error or panicked",
	}, []string{"producer"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stat_tracker",
		Name:      "producer_duration_seconds",
		Help:      "Time spent producing and appending records",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"producer"})
	m.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "stat_tracker",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last completed run",
	})
	for _, c := range []prometheus.Collector{m.written, m.failed, m.producerErrors, m.duration, m.lastRun} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	m.written.WithLabelValues(res.Producer).Add(float64(res.Written))
	if res.Failed > 0 {
		m.failed.WithLabelValues(res.Producer, reasonStore).Add(float64(res.Failed))
	}
	if res.Rejected > 0 {
		m.failed.WithLabelValues(res.Producer, reasonInvalid).Add(float64(res.Rejected))
	}
	if res.Err != nil {
		m.producerErrors.WithLabelValues(res.Producer).Inc()
	}
	m.duration.WithLabelValues(res.Producer).Observe(res.Duration.Seconds())
}

func (m *Metrics) finish(r Report) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(r.Finished.Unix()))
}
