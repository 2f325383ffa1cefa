// Package metrics counts events going through a stage.  A stage process is
// short-lived, so the counters are written once at exit in the Prometheus
// text format, for a node-exporter textfile collector to pick up.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arnodel/struckstream/errors"
	"github.com/arnodel/struckstream/stream"
)

// Stage holds the counters of one stage.
type Stage struct {
	registry *prometheus.Registry
	read     prometheus.Counter
	written  prometheus.Counter
	failures *prometheus.CounterVec
}

var _ stream.Observer = &Stage{}

// NewStage creates counters labeled with the stage name in a fresh registry.
func NewStage(name string) *Stage {
	labels := prometheus.Labels{"stage": name}
	s := &Stage{
		registry: prometheus.NewRegistry(),
		read: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "struck_events_read_total",
			Help:        "Number of events decoded from the input stream.",
			ConstLabels: labels,
		}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "struck_events_written_total",
			Help:        "Number of events encoded to the output stream.",
			ConstLabels: labels,
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "struck_failures_total",
			Help:        "Number of runs that failed, by error kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
	}
	s.registry.MustRegister(s.read, s.written, s.failures)
	return s
}

// EventRead implements stream.Observer.
func (s *Stage) EventRead() { s.read.Inc() }

// EventWritten implements stream.Observer.
func (s *Stage) EventWritten() { s.written.Inc() }

// Failed implements stream.Observer.
func (s *Stage) Failed(kind errors.Kind) { s.failures.WithLabelValues(string(kind)).Inc() }

// Gatherer exposes the registry.
func (s *Stage) Gatherer() prometheus.Gatherer { return s.registry }

// WriteFile writes the counters to path in the Prometheus text format.
func (s *Stage) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}
