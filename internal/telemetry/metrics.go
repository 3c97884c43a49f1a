/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, route and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seatwise_api_requests_total",
			Help: "Total HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatwise_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seatwise_api_active_connections",
			Help: "In-flight HTTP requests",
		},
	)

	// APIWebSocketConnections gauges open event stream connections.
	APIWebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seatwise_api_websocket_connections",
			Help: "Open event stream WebSocket connections",
		},
	)

	// AvailabilityQueriesTotal counts slot generation runs.
	AvailabilityQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatwise_availability_queries_total",
			Help: "Total availability (slot generation) queries",
		},
	)

	// BookingsCreatedTotal counts successfully committed reservations.
	BookingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatwise_bookings_created_total",
			Help: "Total reservations committed",
		},
	)

	// BookingConflictsTotal counts bookings rejected by the in-transaction
	// capacity re-check (the lost-race path).
	BookingConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatwise_booking_conflicts_total",
			Help: "Reservations rejected because the slot filled between read and write",
		},
	)

	// WaitlistCheckInsTotal counts waitlist arrivals.
	WaitlistCheckInsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seatwise_waitlist_checkins_total",
			Help: "Total waitlist check-ins",
		},
	)

	// DBQueryDuration observes GORM operation latency by operation type.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seatwise_db_query_duration_seconds",
			Help:    "Database operation latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
