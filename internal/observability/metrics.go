package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicketPurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tix_ticket_purchases_total",
			Help: "Ticket purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tix_validations_total",
			Help: "Ticket scans by result",
		},
		[]string{"result"},
	)

	TokenRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tix_token_redemptions_total",
			Help: "Token redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	AssistantRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tix_assistant_requests_total",
			Help: "Assistant replies by source (canned, model, degraded)",
		},
		[]string{"source"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tix_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tix_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tix_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
