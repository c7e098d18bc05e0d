package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		},
	)

	BookingAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_api_requests_total",
			Help: "Calls made to the booking API.",
		},
		[]string{"operation", "status"},
	)

	BookingAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_api_request_duration_seconds",
			Help:    "Booking API call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	GeoCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_cache_lookups_total",
			Help: "Location and country cache lookups.",
		},
		[]string{"kind", "cached"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_sessions_active",
			Help: "Booking sessions held in memory.",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_sessions_evicted_total",
			Help: "Idle booking sessions evicted by the sweeper.",
		},
	)
)

// TrackBookingAPI records one booking API call.
func TrackBookingAPI(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	BookingAPIRequestsTotal.WithLabelValues(operation, status).Inc()
	BookingAPIRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// TrackGeoCache records a cache lookup for locations or countries.
func TrackGeoCache(kind string, cached bool) {
	GeoCacheLookups.WithLabelValues(kind, strconv.FormatBool(cached)).Inc()
}
