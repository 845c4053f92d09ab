// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

// SettlementMetrics instruments the order/escrow pipeline.
type SettlementMetrics struct {
	ordersCreated      prometheus.Counter
	checkoutReplays    prometheus.Counter
	checkoutFailures   *prometheus.CounterVec
	oversellRejections prometheus.Counter
	escrowReleased     prometheus.Counter
	forceReleases      prometheus.Counter
	payoutFailures     prometheus.Counter
	checkoutDuration   prometheus.Histogram
}

func NewSettlementMetrics() *SettlementMetrics {
	return newSettlementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSettlementMetricsWithRegisterer(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SettlementMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Total number of seller-group orders created",
		}),
		checkoutReplays: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkout_replays_total",
			Help: "Total number of checkout commits short-circuited by the idempotency gate",
		}),
		checkoutFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_checkout_failures_total",
			Help: "Total number of seller-group checkout failures by reason code",
		}, []string{"reason"}),
		oversellRejections: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_oversell_rejections_total",
			Help: "Total number of conditional stock decrements that found insufficient quantity",
		}),
		escrowReleased: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_escrow_released_total",
			Help: "Total number of escrow payouts released",
		}),
		forceReleases: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_escrow_force_releases_total",
			Help: "Total number of operator force-release recoveries",
		}),
		payoutFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_payout_failures_total",
			Help: "Total number of payout release attempts failed at the provider",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_checkout_duration_seconds",
			Help:    "Duration of checkout commit operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *SettlementMetrics) OrderCreated()          { m.ordersCreated.Inc() }
func (m *SettlementMetrics) CheckoutReplayed()      { m.checkoutReplays.Inc() }
func (m *SettlementMetrics) OversellRejected()      { m.oversellRejections.Inc() }
func (m *SettlementMetrics) EscrowReleased()        { m.escrowReleased.Inc() }
func (m *SettlementMetrics) ForceReleased()         { m.forceReleases.Inc() }
func (m *SettlementMetrics) PayoutFailed()          { m.payoutFailures.Inc() }
func (m *SettlementMetrics) ObserveCheckout(s float64) { m.checkoutDuration.Observe(s) }

func (m *SettlementMetrics) CheckoutFailed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.checkoutFailures.WithLabelValues(reason).Inc()
}

// Handler exposes the default registry for the /metrics route.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Registration helpers tolerate duplicate registration so tests can build
// multiple instances against the default registerer.
func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	counter := prometheus.NewCounter(opts)
	if err := registerer.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter)
		}
	}
	return counter
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return vec
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	histogram := prometheus.NewHistogram(opts)
	if err := registerer.Register(histogram); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
	}
	return histogram
}
