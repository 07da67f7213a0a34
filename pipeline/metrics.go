package pipeline

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are pipeline Prometheus collectors
type Metrics struct {
	frames        prometheus.Counter
	events        *prometheus.CounterVec
	memoryEntries prometheus.Counter
	stageDuration *prometheus.HistogramVec
}

// NewMetrics creates collectors and registers them on reg. Nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scenegraph_frames_total",
			Help: "Scene graph frames built.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scenegraph_events_total",
			Help: "Events extracted, by type.",
		}, []string{"type"}),
		memoryEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scenegraph_memory_entries_total",
			Help: "Entries appended to spatial memory stores.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scenegraph_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{m.frames, m.events, m.memoryEntries, m.stageDuration} {
		if err := reg.Register(collector); err != nil {
			return nil, errors.Wrap(err, "Can't register pipeline metrics")
		}
	}
	return m, nil
}

func (m *Metrics) observeStage(stage string, started time.Time) {
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}
