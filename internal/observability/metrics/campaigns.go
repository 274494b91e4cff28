// Package metrics provides Prometheus instrumentation for crowd-fundapp.
package metrics

import "time"

// Reconcile records a completed campaign reconciliation.
func Reconcile(total int, duration time.Duration) {
	if !enabled {
		return
	}
	reconcileTotal.Inc()
	reconcileDuration.Observe(duration.Seconds())
	campaignsGauge.Set(float64(total))
}

// CampaignCreate records a campaign creation submission.
func CampaignCreate(status string) {
	if !enabled {
		return
	}
	campaignCreateTotal.WithLabelValues(status).Inc()
}

// Donation records a donation submission.
func Donation(status string) {
	if !enabled {
		return
	}
	donationTotal.WithLabelValues(status).Inc()
}

// TxFailure records a failed transaction by its classified kind.
func TxFailure(kind string) {
	if !enabled {
		return
	}
	txFailureTotal.WithLabelValues(kind).Inc()
}

// WalletConnect records a wallet connection attempt.
func WalletConnect(status string) {
	if !enabled {
		return
	}
	walletConnectTotal.WithLabelValues(status).Inc()
}
