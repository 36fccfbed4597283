// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trail"

var (
	CreatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "creates_total",
			Help:      "Title and license creations by content type and result.",
		},
		[]string{"type", "result"},
	)

	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "License verifications by outcome.",
		},
		[]string{"verified"},
	)

	VerifyTransactionsScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verify_transactions_scanned",
			Help:      "Transactions inspected before a verification decided.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	SkippedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verify_skipped_records_total",
			Help:      "Blocks or transactions skipped during verification because they failed to load or decode.",
		},
		[]string{"kind"},
	)

	CustomVocabularyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custom_vocabulary_total",
			Help:      "Tags and use cases written outside the standard vocabulary.",
		},
		[]string{"kind"},
	)

	RelayBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_blocks_appended_total",
			Help:      "Blocks appended to the ledger by the relay.",
		},
	)

	RelayFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_group_failures_total",
			Help:      "Queue groups the relay failed to apply and left for retry.",
		},
	)
)

// Result maps an error to a low-cardinality label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Bool formats a boolean label.
func Bool(v bool) string { return strconv.FormatBool(v) }

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
