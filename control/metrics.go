package control

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/remotesim/batch"
)

// Metrics exposes batch progress and outcomes in Prometheus format.
// It implements batch.Observer.
type Metrics struct {
	batches         *prometheus.CounterVec
	sessions        prometheus.Counter
	spans           prometheus.Counter
	connectFailures prometheus.Counter
	commands        prometheus.Counter
	commandFailures prometheus.Counter
	batchDuration   prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remotesim_batches_total",
				Help: "Finished batches by status",
			},
			[]string{"status"},
		),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remotesim_sessions_total",
			Help: "Sessions simulated across all batches",
		}),
		spans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remotesim_spans_total",
			Help: "Spans emitted across all batches",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remotesim_connect_failures_total",
			Help: "Sessions whose bluetooth connection failed",
		}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remotesim_commands_total",
			Help: "Commands written to simulated devices",
		}),
		commandFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remotesim_command_failures_total",
			Help: "Command writes that timed out",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remotesim_batch_duration_seconds",
			Help:    "Wall-clock batch duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.batches,
		m.sessions,
		m.spans,
		m.connectFailures,
		m.commands,
		m.commandFailures,
		m.batchDuration,
	)

	return m
}

// Watch registers gauges that read the runner state at scrape time.
func (m *Metrics) Watch(status func() batch.Status) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "remotesim_batch_running",
			Help: "1 while a batch is running, 0 otherwise",
		}, func() float64 {
			if status().Running {
				return 1
			}

			return 0
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "remotesim_batch_sessions_done",
			Help: "Sessions completed in the current or last batch",
		}, func() float64 { return float64(status().Done) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "remotesim_batch_sessions_requested",
			Help: "Sessions requested for the current or last batch",
		}, func() float64 { return float64(status().Total) }),
	}

	for _, g := range gauges {
		if err := m.registry.Register(g); err != nil {
			return err
		}
	}

	return nil
}

// OnProgress is a no-op; progress is read by the Watch gauges.
func (m *Metrics) OnProgress(int, int) {}

func (m *Metrics) OnComplete(s batch.Summary) {
	m.batches.WithLabelValues(batchStatus(s)).Inc()
	m.sessions.Add(float64(s.Sessions))
	m.spans.Add(float64(s.Spans))
	m.connectFailures.Add(float64(s.ConnectFailures))
	m.commands.Add(float64(s.Commands))
	m.commandFailures.Add(float64(s.CommandFailures))
	m.batchDuration.Observe(s.Elapsed.Seconds())
}

// Handler returns the /metrics handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry so callers can add collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func batchStatus(s batch.Summary) string {
	switch {
	case s.Error != "":
		return "failed"
	case s.Canceled:
		return "canceled"
	default:
		return "completed"
	}
}
