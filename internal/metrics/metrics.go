package metrics

import (
	"net/http"
	"time"

	"github.com/PuniCore/Puni/internal/capability"
	"github.com/PuniCore/Puni/internal/registry"
	"github.com/PuniCore/Puni/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "puni"

// Metrics holds the runtime collectors.
type Metrics struct {
	// Registry metrics
	Packages     prometheus.Gauge
	Capabilities *prometheus.GaugeVec

	// Load metrics
	LoadIssues   *prometheus.CounterVec
	LoadDuration prometheus.Histogram
	Reloads      *prometheus.CounterVec

	// Runtime metrics
	Dispatches *prometheus.CounterVec
	TaskRuns   *prometheus.CounterVec
	Sends      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors with reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Packages: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packages",
			Help:      "Number of loaded plugin packages",
		}),
		Capabilities: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capabilities",
			Help:      "Registered capability records by kind",
		}, []string{"kind"}),

		LoadIssues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_issues_total",
			Help:      "Problems found while discovering and loading packages",
		}, []string{"kind"}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of full load cycles",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Single-package hot reloads",
		}, []string{"status"}),

		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Handler invocations by capability kind and outcome",
		}, []string{"kind", "status"}),
		TaskRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_runs_total",
			Help:      "Scheduled task firings by outcome",
		}, []string{"status"}),
		Sends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_sends_total",
			Help:      "Reply send attempts by outcome; retry marks failures that will be retried",
		}, []string{"status"}),

		gatherer: reg,
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveSnapshot sets the registry gauges from a committed snapshot.
func (m *Metrics) ObserveSnapshot(s *registry.Snapshot) {
	m.Packages.Set(float64(s.Counts.Packages))
	m.Capabilities.WithLabelValues(string(capability.KindCommand)).Set(float64(s.Counts.Commands))
	m.Capabilities.WithLabelValues(string(capability.KindAccept)).Set(float64(s.Counts.Accepts))
	m.Capabilities.WithLabelValues(string(capability.KindTask)).Set(float64(s.Counts.Tasks))
	m.Capabilities.WithLabelValues(string(capability.KindButton)).Set(float64(s.Counts.Buttons))
	m.Capabilities.WithLabelValues(string(capability.KindHandler)).Set(float64(s.Counts.HandlerFncs))
}

// ObserveReport counts the issues of one load cycle.
func (m *Metrics) ObserveReport(rep *report.Report) {
	for kind, n := range rep.CountByKind() {
		m.LoadIssues.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// ObserveLoad records the duration of a full load.
func (m *Metrics) ObserveLoad(took time.Duration) {
	m.LoadDuration.Observe(took.Seconds())
}

// ObserveReload counts a hot reload.
func (m *Metrics) ObserveReload(err error) {
	m.Reloads.WithLabelValues(status(err)).Inc()
}

// ObserveDispatch counts one handler invocation. Its signature matches
// dispatch.Options.OnMatch.
func (m *Metrics) ObserveDispatch(kind capability.Kind, _ string, err error) {
	m.Dispatches.WithLabelValues(string(kind), status(err)).Inc()
}

// ObserveTask counts one task firing. Its signature matches
// task.Options.OnRun.
func (m *Metrics) ObserveTask(_ string, err error) {
	m.TaskRuns.WithLabelValues(status(err)).Inc()
}

// ObserveSend counts one reply send attempt. Its signature matches
// event.Options.OnSend.
func (m *Metrics) ObserveSend(err error, retrying bool) {
	st := status(err)
	if err != nil && retrying {
		st = "retry"
	}
	m.Sends.WithLabelValues(st).Inc()
}

// Handler serves the collected metrics in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
