// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_http_requests_total",
	Help: "Total number of HTTP requests by route and status code",
}, []string{"method", "route", "status"})

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "feed_http_request_duration_seconds",
	Help:    "Histogram of HTTP request durations in seconds",
	Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
}, []string{"method", "route"})

var RateLimitExceededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_rate_limit_exceeded_total",
	Help: "Total number of requests rejected by the rate limiter",
}, []string{"route"})

var PostsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "feed_posts_created_total",
	Help: "Total number of posts created",
})

var PostsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "feed_posts_deleted_total",
	Help: "Total number of posts deleted",
})

var LikesToggledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feed_likes_toggled_total",
	Help: "Total number of like toggles by resulting state",
}, []string{"state"})

// OrphanedObjectsTotal counts stored images left without a post record
// because record creation failed after the upload.
var OrphanedObjectsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "feed_orphaned_objects_total",
	Help: "Total number of stored objects orphaned by failed post creation",
})
