// Package metrics provides Prometheus instrumentation for crowd-fundapp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Campaign domain metrics
	reconcileTotal    prometheus.Counter
	reconcileDuration prometheus.Histogram
	campaignsGauge    prometheus.Gauge

	// Transaction domain metrics
	campaignCreateTotal *prometheus.CounterVec
	donationTotal       *prometheus.CounterVec
	txFailureTotal      *prometheus.CounterVec

	// Wallet domain metrics
	walletConnectTotal *prometheus.CounterVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Reconcile counter and latency
	reconcileTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_reconcile_total",
			Help: "Total number of campaign reconciliations",
		},
	)
	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campaign_reconcile_duration_seconds",
			Help:    "Campaign reconciliation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	campaignsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campaigns_cached",
			Help: "Number of campaigns in the current snapshot",
		},
	)

	// Campaign creation counter
	campaignCreateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_create_total",
			Help: "Total number of campaign creation submissions",
		},
		[]string{"status"},
	)

	// Donation counter
	donationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_total",
			Help: "Total number of donation submissions",
		},
		[]string{"status"},
	)

	// Transaction failure counter by classified kind
	txFailureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tx_failure_total",
			Help: "Total number of failed transactions by failure kind",
		},
		[]string{"kind"},
	)

	// Wallet connect counter
	walletConnectTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_connect_total",
			Help: "Total number of wallet connection attempts",
		},
		[]string{"status"},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
