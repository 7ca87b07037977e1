package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dockshift"

// Result values for the run result gauge.
const (
	ResultComplete = "complete"
	ResultAborted  = "aborted"
)

// Recorder collects the metrics of a single run in its own registry.
type Recorder struct {
	registry  *prometheus.Registry
	phases    *prometheus.GaugeVec
	result    *prometheus.GaugeVec
	warnings  prometheus.Counter
	timestamp prometheus.Gauge
}

// NewRecorder creates a Recorder with an empty registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		phases: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock duration of each pipeline phase in the last run.",
		}, []string{"phase"}),
		result: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_result",
			Help:      "Terminal state of the last run (1 for the reached state).",
		}, []string{"result"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Recoverable warnings raised during the last run.",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_timestamp_seconds",
			Help:      "Unix time at which the last run finished.",
		}),
	}
	r.registry.MustRegister(r.phases, r.result, r.warnings, r.timestamp)
	return r
}

// ObservePhase records how long a phase took.
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	r.phases.WithLabelValues(phase).Set(d.Seconds())
}

// Warn counts one recoverable warning.
func (r *Recorder) Warn() {
	r.warnings.Inc()
}

// Finish records the terminal state and completion time of the run.
func (r *Recorder) Finish(result string, at time.Time) {
	for _, v := range []string{ResultComplete, ResultAborted} {
		val := 0.0
		if v == result {
			val = 1
		}
		r.result.WithLabelValues(v).Set(val)
	}
	r.timestamp.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the collected metrics to path in the text
// exposition format. The file is written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
