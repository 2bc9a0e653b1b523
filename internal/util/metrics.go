package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Total number of sales created",
	})

	SalesPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_paid_total",
		Help: "Total number of sales confirmed as paid",
	})

	SalesCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_cancelled_total",
		Help: "Total number of cancelled sales",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of failed sale operations",
	}, []string{"reason"})

	SaleCreateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_create_latency_seconds",
		Help:    "Latency of sale creation including the database transaction",
		Buckets: prometheus.DefBuckets,
	})

	AnalyticsRequestLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analytics_request_latency_seconds",
		Help:    "Latency of analytics dashboard computation",
		Buckets: prometheus.DefBuckets,
	})

	AnalyticsCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_hits_total",
		Help: "Analytics cache lookups by outcome",
	}, []string{"outcome"})

	AuditEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_total",
		Help: "Total number of audit log entries written",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
