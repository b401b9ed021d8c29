// Package metrics counts what the core does: parm commits, update walks,
// link propagation and script evaluation. Each Metrics value owns its own
// Prometheus registry.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/link"
	"github.com/chazu/spar/pkg/parm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "spar"

// Metrics holds the collectors. It implements geom.Observer.
type Metrics struct {
	reg *prometheus.Registry

	commits      *prometheus.CounterVec
	walks        *prometheus.CounterVec
	nodes        prometheus.Counter
	walkSeconds  prometheus.Histogram
	propagations prometheus.Counter
	scriptEvals  *prometheus.CounterVec
}

var _ geom.Observer = (*Metrics)(nil)

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parm_commits_total",
			Help:      "Committed parm value changes by notification kind.",
		}, []string{"kind"}),
		walks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_walks_total",
			Help:      "Update walks by mode (full or partial).",
		}, []string{"mode"}),
		nodes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_nodes_total",
			Help:      "Nodes processed by update walks.",
		}),
		walkSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_walk_seconds",
			Help:      "Update walk duration in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		propagations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_propagations_total",
			Help:      "Values pushed through parameter links.",
		}),
		scriptEvals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_evals_total",
			Help:      "Advanced link evaluations by result.",
		}, []string{"result"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ParmCommitted counts one commit. Its signature matches parm.Listener.
func (m *Metrics) ParmCommitted(_ *parm.Parm, kind parm.ChangeKind) {
	m.commits.WithLabelValues(kind.String()).Inc()
}

// WalkStarted is part of geom.Observer.
func (m *Metrics) WalkStarted(bool) {}

// NodeProcessed is part of geom.Observer.
func (m *Metrics) NodeProcessed(parm.ID, geom.Flags) { m.nodes.Inc() }

// WalkFinished is part of geom.Observer.
func (m *Metrics) WalkFinished(full bool, _ int, elapsed time.Duration) {
	m.walks.WithLabelValues(mode(full)).Inc()
	m.walkSeconds.Observe(elapsed.Seconds())
}

func mode(full bool) string {
	if full {
		return "full"
	}
	return "partial"
}

// LinkPropagated counts one link push. Pass it to link.WithPropagateHook.
func (m *Metrics) LinkPropagated(*link.Link) { m.propagations.Inc() }

// ScriptEvaluated counts one evaluation. Pass it to advlink.WithEvalHook.
func (m *Metrics) ScriptEvaluated(result string, _ time.Duration) {
	m.scriptEvals.WithLabelValues(result).Inc()
}

// WriteText writes every collected family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.reg.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
