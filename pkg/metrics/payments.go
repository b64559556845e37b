package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics counts checkout and admin review outcomes.
type PaymentMetrics struct {
	checkouts *prometheus.CounterVec
	reviews   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment flow counters on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Checkout executions by outcome.",
	}, []string{"outcome"})
	reviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reviews_total",
		Help: "Admin payment reviews by decision.",
	}, []string{"decision"})
	reg.MustRegister(checkouts, reviews)
	return &PaymentMetrics{
		checkouts: checkouts,
		reviews:   reviews,
	}
}

// IncCheckout increments the checkout counter for the given outcome label.
func (p *PaymentMetrics) IncCheckout(outcome string) {
	if p == nil || p.checkouts == nil {
		return
	}
	p.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReview increments the review counter for the given decision label.
func (p *PaymentMetrics) IncReview(decision string) {
	if p == nil || p.reviews == nil {
		return
	}
	p.reviews.WithLabelValues(normalizeLabel(decision)).Inc()
}
