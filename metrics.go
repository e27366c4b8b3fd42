package occplot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// File statuses reported by the files counter.
const (
	FileProcessed  = "processed"
	FileMissing    = "missing"
	FileUnreadable = "unreadable"
)

// Metrics collects run counters on a private registry so a batch run can dump
// them as a node-exporter textfile when it ends.
type Metrics struct {
	registry *prometheus.Registry

	eventsProcessed prometheus.Counter
	photonsAccepted prometheus.Counter
	photonsRejected prometheus.Counter
	files           *prometheus.CounterVec
	runDuration     prometheus.Gauge
	deadTimeSetting prometheus.Gauge
}

func NewMetrics() *Metrics {
	const namespace = "occplot"
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Events run through the accumulator.",
		}),
		photonsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photons_accepted_total",
			Help:      "Photons added to the occupancy grid.",
		}),
		photonsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photons_rejected_deadtime_total",
			Help:      "Photons dropped by the per-cell dead time.",
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Input files by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		deadTimeSetting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dead_time_ns",
			Help:      "Dead time window of the last run.",
		}),
	}
	m.registry.MustRegister(
		m.eventsProcessed,
		m.photonsAccepted,
		m.photonsRejected,
		m.files,
		m.runDuration,
		m.deadTimeSetting,
	)
	return m
}

func (m *Metrics) observeFile(status string, t Tally) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(status).Inc()
	if status != FileProcessed {
		return
	}
	m.eventsProcessed.Add(float64(t.Events))
	m.photonsAccepted.Add(float64(t.Accepted))
	m.photonsRejected.Add(float64(t.Rejected))
}

func (m *Metrics) observeRun(deadTime float64, d time.Duration) {
	if m == nil {
		return
	}
	m.deadTimeSetting.Set(deadTime)
	m.runDuration.Set(d.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile dumps the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
