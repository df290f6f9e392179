package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records order lifecycle events. A nil *OrderMetrics is valid
// and records nothing.
type OrderMetrics struct {
	intents      *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	labels       *prometheus.CounterVec
	settlements  *prometheus.CounterVec
	unreconciled prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_intents_total",
		Help: "Payment intent requests by result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to", "source"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_rejections_total",
		Help: "Rejected order status writes.",
	}, []string{"source"})
	labels := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_labels_total",
		Help: "Shipping label issuance attempts by result.",
	}, []string{"result"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Gateway settlement events by outcome.",
	}, []string{"outcome"})
	unreconciled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_unreconciled_confirmations_total",
		Help: "Client-reported successes with no matching settlement yet.",
	})
	reg.MustRegister(intents, transitions, rejections, labels, settlements, unreconciled)
	return &OrderMetrics{
		intents:      intents,
		transitions:  transitions,
		rejections:   rejections,
		labels:       labels,
		settlements:  settlements,
		unreconciled: unreconciled,
	}
}

// IncIntent counts a payment intent request.
func (m *OrderMetrics) IncIntent(result string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncTransition counts an applied status change.
func (m *OrderMetrics) IncTransition(from, to, source string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(source)).Inc()
}

// IncRejection counts a status write rejected by the transition graph.
func (m *OrderMetrics) IncRejection(source string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncLabel counts a shipping label attempt.
func (m *OrderMetrics) IncLabel(result string) {
	if m == nil || m.labels == nil {
		return
	}
	m.labels.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncSettlement counts a settlement event.
func (m *OrderMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncUnreconciled counts a client success the gateway has not confirmed.
func (m *OrderMetrics) IncUnreconciled() {
	if m == nil || m.unreconciled == nil {
		return
	}
	m.unreconciled.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
