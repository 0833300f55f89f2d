// Package utils provides logging helpers and Prometheus metrics for note-sync.
package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MediatorLoadsTotal counts mediator loads by outcome.
	MediatorLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesync",
			Name:      "mediator_loads_total",
			Help:      "Total number of mediator loads",
		},
		[]string{"feed", "load_type", "outcome"},
	)

	// MediatorLoadDuration measures mediator load duration.
	MediatorLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notesync",
			Name:      "mediator_load_duration_seconds",
			Help:      "Duration of mediator loads in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"feed", "load_type"},
	)

	// MediatorItemsStored counts notes written by the mediator.
	MediatorItemsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesync",
			Name:      "mediator_items_stored_total",
			Help:      "Total number of notes upserted by the mediator",
		},
		[]string{"feed"},
	)

	// RemoteRequestsTotal counts notes API calls by endpoint and status.
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesync",
			Name:      "remote_requests_total",
			Help:      "Total number of notes API requests",
		},
		[]string{"endpoint", "status"},
	)

	// AuthRetriesTotal counts single-retry cycles of the authenticated transport.
	AuthRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesync",
			Name:      "auth_retries_total",
			Help:      "Total number of 401-triggered credential refresh retries",
		},
		[]string{"outcome"},
	)

	// CredentialRefreshTotal counts credential refreshes by status.
	CredentialRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesync",
			Name:      "credential_refresh_total",
			Help:      "Total number of credential refresh attempts",
		},
		[]string{"status"},
	)
)

// RecordMediatorLoad records one mediator load.
func RecordMediatorLoad(feed, loadType, outcome string, seconds float64) {
	MediatorLoadsTotal.WithLabelValues(feed, loadType, outcome).Inc()
	MediatorLoadDuration.WithLabelValues(feed, loadType).Observe(seconds)
}

// RecordItemsStored records notes persisted for a feed.
func RecordItemsStored(feed string, count int) {
	MediatorItemsStored.WithLabelValues(feed).Add(float64(count))
}

// RecordRemoteRequest records a notes API call.
func RecordRemoteRequest(endpoint, status string) {
	RemoteRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordAuthRetry records the outcome of a 401 retry cycle.
func RecordAuthRetry(outcome string) {
	AuthRetriesTotal.WithLabelValues(outcome).Inc()
}

// RecordCredentialRefresh records a credential refresh attempt.
func RecordCredentialRefresh(status string) {
	CredentialRefreshTotal.WithLabelValues(status).Inc()
}
