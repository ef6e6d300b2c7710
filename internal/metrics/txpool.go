package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/blockinsight7000-mempool/internal/txpool/model"
)

var (
	admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "admissions_total",
		Help:      "Count of admission attempts by origin and outcome.",
	}, []string{"origin", "outcome"})
	admissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "admission_duration_seconds",
		Help:      "Duration of admission including validation.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"origin", "outcome"})
	evictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "evictions_total",
		Help:      "Count of pending entries squeezed out by reason.",
	}, []string{"reason"})
	blockTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "block_transactions_total",
		Help:      "Count of pending entries resolved by imported blocks.",
	}, []string{"result"})
	blockApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "block_apply_duration_seconds",
		Help:      "Duration of reconciling the pool with an imported block.",
		Buckets:   prometheus.DefBuckets,
	})
	poolEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "entries",
		Help:      "Number of pending entries.",
	})
	poolWeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "weight",
		Help:      "Total weight of pending entries.",
	})
	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "gossip_verdicts_total",
		Help:      "Count of verdicts reported for gossiped transactions.",
	}, []string{"verdict"})
	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "broadcasts_total",
		Help:      "Count of broadcasts of locally submitted transactions.",
	}, []string{"status"})
	broadcastAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "broadcast_attempts",
		Help:      "Attempts needed per broadcast.",
		Buckets:   prometheus.LinearBuckets(1, 1, 6),
	}, []string{"status"})
	broadcastDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "broadcast_duration_seconds",
		Help:      "Duration of a broadcast including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
	importedHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "imported_height",
		Help:      "Height of the last applied block.",
	})
	statusEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "status_events_total",
		Help:      "Count of status events published.",
	}, []string{"kind"})
	statusEventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "blockinsight7000",
		Subsystem: "txpool",
		Name:      "status_events_dropped_total",
		Help:      "Count of status events dropped for slow subscribers.",
	})
)

// TxPool tracks metrics for the transaction pool service.
type TxPool struct{}

// NewTxPool constructs a TxPool metrics collector.
func NewTxPool() *TxPool {
	return &TxPool{}
}

// ObserveAdmission records one admission attempt. An empty reason means admitted.
func (TxPool) ObserveAdmission(origin model.Origin, reason model.Reason, started time.Time) {
	outcome := string(reason)
	if reason == model.ReasonNone {
		outcome = "admitted"
	}
	admissionsTotal.WithLabelValues(orUnknown(string(origin)), outcome).Inc()
	admissionDuration.WithLabelValues(orUnknown(string(origin)), outcome).Observe(time.Since(started).Seconds())
}

func (TxPool) ObserveEviction(reason model.Reason) {
	evictionsTotal.WithLabelValues(orUnknown(string(reason))).Inc()
}

// ObserveBlock records how many entries a block included and how many it conflicted out.
func (TxPool) ObserveBlock(included, conflicted int, started time.Time) {
	blockTransactionsTotal.WithLabelValues("included").Add(float64(included))
	blockTransactionsTotal.WithLabelValues("conflicted").Add(float64(conflicted))
	blockApplyDuration.Observe(time.Since(started).Seconds())
}

func (TxPool) ObservePoolSize(count int, weight uint64) {
	poolEntries.Set(float64(count))
	poolWeight.Set(float64(weight))
}

func (TxPool) ObserveVerdict(verdict model.Verdict) {
	verdictsTotal.WithLabelValues(string(verdict)).Inc()
}

// ObserveBroadcast records the final outcome of a broadcast and its attempt count.
func (TxPool) ObserveBroadcast(err error, attempts int, started time.Time) {
	status := statusOf(err)
	broadcastsTotal.WithLabelValues(status).Inc()
	broadcastAttempts.WithLabelValues(status).Observe(float64(attempts))
	broadcastDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

func (TxPool) ObserveHeight(height uint64) {
	importedHeight.Set(float64(height))
}

func (TxPool) ObservePublished(kind model.EventKind) {
	statusEventsTotal.WithLabelValues(string(kind)).Inc()
}

func (TxPool) ObserveDropped() {
	statusEventsDroppedTotal.Inc()
}
