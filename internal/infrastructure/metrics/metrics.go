package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TradeMetrics counts accepted and rejected trade actions.
type TradeMetrics struct {
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
}

// NewTradeMetrics registers the trade counters on reg.
func NewTradeMetrics(reg prometheus.Registerer) *TradeMetrics {
	factory := promauto.With(reg)
	return &TradeMetrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barterhub_trade_transitions_total",
			Help: "Accepted trade actions, partitioned by action and resulting status",
		}, []string{"action", "status"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "barterhub_trade_rejections_total",
			Help: "Rejected trade actions, partitioned by action and error code",
		}, []string{"action", "code"}),
	}
}

func (m *TradeMetrics) ObserveTransition(action, status string) {
	m.Transitions.WithLabelValues(action, status).Inc()
}

func (m *TradeMetrics) ObserveRejection(action, code string) {
	m.Rejections.WithLabelValues(action, code).Inc()
}
