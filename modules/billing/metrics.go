package billing

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts webhook deliveries and checkouts.
type Metrics struct {
	WebhookDeliveries *prometheus.CounterVec
	WebhookDuration   *prometheus.HistogramVec
	Checkouts         *prometheus.CounterVec
}

// NewMetrics creates and registers the billing collectors. A nil registerer
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paygate",
			Subsystem: "billing",
			Name:      "webhook_deliveries_total",
			Help:      "Webhook deliveries by notification type and outcome.",
		}, []string{"type", "outcome"}),
		WebhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paygate",
			Subsystem: "billing",
			Name:      "webhook_duration_seconds",
			Help:      "Webhook processing latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paygate",
			Subsystem: "billing",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by plan, cycle and result.",
		}, []string{"plan", "cycle", "result"}),
	}
	if reg != nil {
		reg.MustRegister(m.WebhookDeliveries, m.WebhookDuration, m.Checkouts)
	}
	return m
}
