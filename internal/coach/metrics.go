package coach

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for coaching sessions.
type Metrics struct {
	turns          *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	extractions    *prometheus.CounterVec
	missingFields  *prometheus.CounterVec
	failures       *prometheus.CounterVec
	planScore      prometheus.Histogram
	turnDuration   prometheus.Histogram
	activeSessions prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// DefaultMetrics returns metrics registered with the global registry. The
// collectors are created once so several sessions share them.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs Metrics on reg. Tests pass a fresh registry.
// Registration errors other than an identical collector already being
// registered panic, like the promauto helpers.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const ns, sub = "coach", "session"

	return &Metrics{
		turns: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "turns_total",
			Help: "Conversation turns by outcome.",
		}, []string{"outcome"})),
		transitions: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "state_transitions_total",
			Help: "State machine transitions.",
		}, []string{"from", "to"})),
		extractions: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "extractions_total",
			Help: "Completeness gate checks by result.",
		}, []string{"result"})),
		missingFields: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "missing_fields_total",
			Help: "Required fields reported missing by the completeness gate.",
		}, []string{"field"})),
		failures: mustRegister(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "collaborator_failures_total",
			Help: "Failed responder, extractor and generator calls.",
		}, []string{"collaborator", "type"})),
		planScore: mustRegister(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "plan_score",
			Help:    "Workout rubric score of delivered plans.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		})),
		turnDuration: mustRegister(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "turn_duration_seconds",
			Help:    "Wall time to process one turn, including collaborator calls.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		})),
		activeSessions: mustRegister(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "active",
			Help: "Sessions that have not reached the terminal state.",
		})),
	}
}

// mustRegister registers c, reusing an identical collector that is already
// registered.
func mustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) observeTurn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(d.Seconds())
}

func (m *Metrics) observeTransition(from, to State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) observeGate(missing []string) {
	if m == nil {
		return
	}
	if len(missing) == 0 {
		m.extractions.WithLabelValues("complete").Inc()
		return
	}
	m.extractions.WithLabelValues("incomplete").Inc()
	for _, f := range missing {
		m.missingFields.WithLabelValues(f).Inc()
	}
}

func (m *Metrics) observeFailure(collaborator, errType string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(collaborator, errType).Inc()
}

func (m *Metrics) observePlanScore(score float64) {
	if m == nil {
		return
	}
	m.planScore.Observe(score)
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) sessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
