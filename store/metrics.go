package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_store_operations_total",
		Help: "Post store operations by outcome",
	}, []string{"operation", "result"})

	writeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_store_write_errors_total",
		Help: "Failed writes of the posts blob",
	})

	storedPosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quill_store_posts",
		Help: "Number of posts after the last successful write",
	})
)

func observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operations.WithLabelValues(operation, result).Inc()
}
