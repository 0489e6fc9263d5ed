package reward

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rewards"

// metrics holds the counters maintained by the orchestrator.
type metrics struct {
	outcomes *prometheus.CounterVec
	gas      prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		outcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trigger_total",
				Help:      "The number of reward transactions by stage reached and outcome.",
			}, []string{"stage", "outcome"}),

		gas: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gas_total",
				Help:      "The gas limit of every submitted reward transaction.",
			}),
	}
}

func (m *metrics) success() {
	m.outcomes.WithLabelValues(StageVerify, "success").Inc()
}

func (m *metrics) failure(stage string) {
	m.outcomes.WithLabelValues(stage, "failure").Inc()
}
