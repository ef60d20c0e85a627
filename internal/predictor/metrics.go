package predictor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PredictionsTotal tracks predictions served
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "value_tipster",
			Name:      "predictions_total",
			Help:      "Total number of outcome predictions served",
		},
		[]string{"source", "cache_hit"},
	)

	// PredictionLatency tracks prediction latency
	PredictionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "value_tipster",
			Name:      "prediction_latency_seconds",
			Help:      "Prediction latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// PredictionErrorsTotal tracks failed predictions
	PredictionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "value_tipster",
			Name:      "prediction_errors_total",
			Help:      "Total number of failed predictions",
		},
		[]string{"source", "error_type"},
	)

	// CacheHitRatio tracks prediction cache hit ratio
	CacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "value_tipster",
			Name:      "prediction_cache_hit_ratio",
			Help:      "Prediction cache hit ratio",
		},
	)

	// ModelTrainingsTotal tracks in-process model trainings
	ModelTrainingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "value_tipster",
			Name:      "model_trainings_total",
			Help:      "Total number of in-process model trainings",
		},
		[]string{"status"},
	)
)
