package metrics

import "github.com/prometheus/client_golang/prometheus"

// Marketplace counts order and notification activity served by the API.
type Marketplace struct {
	ordersCreated     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	pushResults       *prometheus.CounterVec
	outboxPublished   *prometheus.CounterVec
	paymentUpdates    *prometheus.CounterVec
}

// NewMarketplace registers the marketplace counters. A nil registerer yields
// a no-op recorder.
func NewMarketplace(reg prometheus.Registerer) *Marketplace {
	if reg == nil {
		return &Marketplace{}
	}
	m := &Marketplace{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "orders_created_total",
			Help:      "Orders placed, by payment mode.",
		}, []string{"payment_mode"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "order_status_transitions_total",
			Help:      "Order status changes applied.",
		}, []string{"from", "to"}),
		pushResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "push_notifications_total",
			Help:      "Push delivery attempts, by result.",
		}, []string{"result"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox publish attempts, by event type and result.",
		}, []string{"event_type", "result"}),
		paymentUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "payment_updates_total",
			Help:      "Payment state changes, by action and resulting payment status.",
		}, []string{"action", "payment_status"}),
	}
	reg.MustRegister(m.ordersCreated, m.statusTransitions, m.pushResults, m.outboxPublished, m.paymentUpdates)
	return m
}

func (m *Marketplace) OrderCreated(paymentMode string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(labelOrUnknown(paymentMode)).Inc()
}

func (m *Marketplace) StatusTransition(from, to string) {
	if m == nil || m.statusTransitions == nil {
		return
	}
	m.statusTransitions.WithLabelValues(labelOrUnknown(from), labelOrUnknown(to)).Inc()
}

// PushResult records "sent", "failed" or "skipped".
func (m *Marketplace) PushResult(result string) {
	if m == nil || m.pushResults == nil {
		return
	}
	m.pushResults.WithLabelValues(labelOrUnknown(result)).Inc()
}

func (m *Marketplace) OutboxPublished(eventType, result string) {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.WithLabelValues(labelOrUnknown(eventType), labelOrUnknown(result)).Inc()
}

func (m *Marketplace) PaymentUpdated(action, paymentStatus string) {
	if m == nil || m.paymentUpdates == nil {
		return
	}
	m.paymentUpdates.WithLabelValues(labelOrUnknown(action), labelOrUnknown(paymentStatus)).Inc()
}
