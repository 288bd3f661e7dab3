// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_notifications_dispatched_total",
			Help: "Total number of send requests by result status",
		},
		[]string{"status", "urgency"},
	)

	RecipientsTruncated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_recipients_truncated_total",
			Help: "Recipients dropped because the tag expression limit was exceeded",
		},
	)

	OutcomePolls = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_outcome_polls",
			Help:    "Number of outcome polls performed per sent notification",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_registrations_total",
			Help: "Total number of device registrations by platform and result",
		},
		[]string{"platform", "result", "mode"},
	)

	StaleRegistrationsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_stale_registrations_deleted_total",
			Help: "Registrations deleted while re-registering a device",
		},
	)

	HubRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "gateway_hub_request_duration_seconds",
			Help: "Duration of notification hub requests in seconds",
		},
		[]string{"operation", "status"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "HTTP requests served by route and status code",
		},
		[]string{"route", "code"},
	)
)
