package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_ledger_operations_total",
			Help: "Total number of ledger operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	LedgerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	LedgerRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_ledger_retries_total",
			Help: "Total number of ledger operations retried after lock contention",
		},
		[]string{"operation"},
	)

	LedgerAmountCents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_ledger_amount_cents_total",
			Help: "Total value moved through the ledger in minor units",
		},
		[]string{"operation"},
	)
)

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLedgerOperation counts a completed operation. Amount is only added on success.
func RecordLedgerOperation(operation, outcome string, amountCents int64, duration time.Duration) {
	LedgerOperationsTotal.WithLabelValues(operation, outcome).Inc()
	LedgerOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if outcome == "success" && amountCents > 0 {
		LedgerAmountCents.WithLabelValues(operation).Add(float64(amountCents))
	}
}

func RecordLedgerRetry(operation string) {
	LedgerRetriesTotal.WithLabelValues(operation).Inc()
}
