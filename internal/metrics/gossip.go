package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gossipOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "gossip",
		Name:      "operations_total",
		Help:      "Count of gossip network operations.",
	}, []string{"operation", "status"})
	gossipOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "gossip",
		Name:      "operation_duration_seconds",
		Help:      "Duration of gossip network operations.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"operation", "status"})
)

// Gossip tracks publish and decode operations on the gossip network.
type Gossip struct{}

// NewGossip constructs a Gossip metrics collector.
func NewGossip() *Gossip {
	return &Gossip{}
}

// Observe records a gossip operation outcome and duration.
func (Gossip) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)
	gossipOperationsTotal.WithLabelValues(operation, status).Inc()
	gossipOperationDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
