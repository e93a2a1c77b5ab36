package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records settlement outcomes and order placement activity.
type PaymentMetrics struct {
	settlements *prometheus.CounterVec
	orders      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Settlement attempts by channel and outcome.",
	}, []string{"channel", "outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed by payment method.",
	}, []string{"payment_method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_settlement_duration_seconds",
		Help:    "Duration of settlement handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	reg.MustRegister(settlements, orders, duration)
	return &PaymentMetrics{
		settlements: settlements,
		orders:      orders,
		duration:    duration,
	}
}

// IncSettlement increments the settlement counter for a channel/outcome pair.
func (p *PaymentMetrics) IncSettlement(channel, outcome string) {
	if p == nil || p.settlements == nil {
		return
	}
	p.settlements.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

// IncOrderPlaced increments the placed-orders counter for a payment method.
func (p *PaymentMetrics) IncOrderPlaced(paymentMethod string) {
	if p == nil || p.orders == nil {
		return
	}
	p.orders.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// ObserveSettlementDuration records settlement handling time for a channel.
func (p *PaymentMetrics) ObserveSettlementDuration(channel string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(channel)).Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
