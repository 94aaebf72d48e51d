package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	LedgerTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Completed ledger transactions by type.",
		},
		[]string{"type"},
	)

	LedgerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Ledger operations refused, by reason.",
		},
		[]string{"reason"},
	)

	// OwnerlessPayments counts external credits accepted without owner
	// metadata on the payment.
	OwnerlessPayments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "ledger",
			Name:      "ownerless_payments_total",
			Help:      "External payments credited without owner metadata.",
		},
	)

	GiftCardEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "giftcard",
			Name:      "events_total",
			Help:      "Gift card lifecycle outcomes.",
		},
		[]string{"operation", "result"},
	)

	GiftCardLockouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "giftcard",
			Name:      "lockouts_total",
			Help:      "Gift cards locked by abuse controls.",
		},
		[]string{"reason"},
	)

	GiftCardScanSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "giftcard",
			Name:      "code_scan_cards",
			Help:      "Cards hash-compared per code lookup.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
		},
	)

	GiftCardsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "salon",
			Subsystem: "giftcard",
			Name:      "active_cards",
			Help:      "ACTIVE gift cards after the last expiry sweep.",
		},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a per-client rate limit.",
		},
		[]string{"route"},
	)

	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "notifications",
			Name:      "failures_total",
			Help:      "Notifications that could not be delivered.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		LedgerTransactions,
		LedgerRejections,
		OwnerlessPayments,
		GiftCardEvents,
		GiftCardLockouts,
		GiftCardScanSize,
		GiftCardsActive,
		RateLimited,
		NotificationFailures,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
