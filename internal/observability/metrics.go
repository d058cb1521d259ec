// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Endpoint selector
	EndpointSelections prometheus.Counter
	EndpointCacheHits  prometheus.Counter
	ProbeFailures      *prometheus.CounterVec
	NoEndpointErrors   prometheus.Counter

	// Balance resolver
	ResolverHits    *prometheus.CounterVec
	ResolverMisses  prometheus.Counter
	ResolverSkipped *prometheus.CounterVec

	// Checkout flow
	PaymentsInitiated  prometheus.Counter
	PaymentsConfirmed  prometheus.Counter
	ConfirmRejections  *prometheus.CounterVec
	ReceiptImageErrors prometheus.Counter

	// RPC latency by method
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with all metrics registered on a
// fresh registry, and the handler serving it.
func NewMetrics(namespace string) (*Metrics, http.Handler) {
	if namespace == "" {
		namespace = "solcheckout"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		EndpointSelections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_selections_total",
			Help:      "Full endpoint selection passes performed.",
		}),
		EndpointCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_cache_hits_total",
			Help:      "Acquire calls answered by the cached connection.",
		}),
		ProbeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_probe_failures_total",
			Help:      "Liveness probe failures by endpoint.",
		}, []string{"endpoint"}),
		NoEndpointErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_unavailable_total",
			Help:      "Selection passes that exhausted every candidate.",
		}),
		ResolverHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_hits_total",
			Help:      "Balance resolutions by winning phase.",
		}, []string{"phase"}),
		ResolverMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_misses_total",
			Help:      "Resolutions that found no nonzero balance.",
		}),
		ResolverSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_lookup_skips_total",
			Help:      "Per-candidate lookups skipped after an error, by phase.",
		}, []string{"phase"}),
		PaymentsInitiated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_initiated_total",
			Help:      "Unsigned checkout transactions built.",
		}),
		PaymentsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_confirmed_total",
			Help:      "Confirmed payments recorded in the ledger.",
		}),
		ConfirmRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirm_rejections_total",
			Help:      "Confirmation requests rejected, by reason.",
		}, []string{"reason"}),
		ReceiptImageErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_image_errors_total",
			Help:      "Receipt image generations that failed (best effort).",
		}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_call_latency_seconds",
			Help:      "Latency of outbound RPC calls by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	return m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nop returns a Metrics instance on a private registry, for tests.
func Nop() *Metrics {
	m, _ := NewMetrics("test")
	return m
}
