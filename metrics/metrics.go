// Package metrics registers the Prometheus collectors for the serving
// API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCount counts requests by method, endpoint and status.
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_request_count",
			Help: "Total request count",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestLatency observes request latency in seconds per endpoint.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "app_request_latency_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// PredictionCount counts prediction attempts per outcome.
	PredictionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_prediction_count",
			Help: "Total prediction count",
		},
		[]string{"status"},
	)

	// ModelInfo marks the currently loaded model name/version.
	ModelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_model_info",
			Help: "Information about the current model",
		},
		[]string{"model_name", "model_version"},
	)

	// PredictionValue observes the distribution of predicted prices.
	PredictionValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "app_prediction_value",
			Help:    "Distribution of predicted flight prices",
			Buckets: []float64{1000, 2000, 5000, 10000, 20000, 50000, 100000},
		},
	)

	// PredictionLatency observes prediction latency in milliseconds.
	PredictionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "app_prediction_latency_ms",
			Help:    "Prediction latency in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)
