package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocol_api",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "protocol_api",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Update cycle metrics ───────────────────────────────────────────────

var (
	UpdateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocol_api",
		Subsystem: "update",
		Name:      "total",
		Help:      "Total number of update attempts per step.",
	}, []string{"step", "status"})

	UpdateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "protocol_api",
		Subsystem: "update",
		Name:      "duration_seconds",
		Help:      "Duration of one update step in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"step"})

	UpdateLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "update",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last successful update per step.",
	}, []string{"step"})
)

// ── Price cache metrics ────────────────────────────────────────────────

var (
	PriceCacheAssets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "prices",
		Name:      "cached_assets",
		Help:      "Number of assets currently held in the price cache.",
	})

	PriceFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocol_api",
		Subsystem: "prices",
		Name:      "fetches_total",
		Help:      "Total oracle fetch attempts by outcome.",
	}, []string{"outcome"})

	PriceValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "prices",
		Name:      "usd_value",
		Help:      "Latest cached USD quote per asset symbol.",
	}, []string{"symbol"})
)

// ── Alert delivery metrics ─────────────────────────────────────────────

var (
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocol_api",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts successfully delivered.",
	}, []string{"type"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocol_api",
		Subsystem: "alerts",
		Name:      "failed_total",
		Help:      "Total alert delivery failures.",
	}, []string{"type"})

	AlertsDeduplicatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "protocol_api",
		Subsystem: "alerts",
		Name:      "deduplicated_total",
		Help:      "Total alerts suppressed by deduplication.",
	}, []string{"type"})
)

// ── Business metrics ───────────────────────────────────────────────────

var (
	PoolSharePrice = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "business",
		Name:      "pool_share_price",
		Help:      "Current pool share price in units of account.",
	})

	EquityInReserve = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "business",
		Name:      "equity_in_reserve",
		Help:      "Reserve balance minus minter reserve, in units of account.",
	})

	TotalMinted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "business",
		Name:      "total_minted",
		Help:      "Outstanding minted amount per collateral symbol.",
	}, []string{"symbol"})

	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "business",
		Name:      "open_positions",
		Help:      "Number of open positions in the current snapshot.",
	})

	EarningsDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "protocol_api",
		Subsystem: "business",
		Name:      "earnings_drift",
		Help:      "Residual of the earnings reconciliation (otherContributions).",
	})
)
