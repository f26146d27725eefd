// Package metrics provides Prometheus metric collectors for the epoch
// pipeline and the chunked container serializer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EpochMetrics contains Prometheus metrics for epoch store operations.
type EpochMetrics struct {
	epochsMaterializedTotal prometheus.Counter
	epochsDroppedTotal      *prometheus.CounterVec
	transformsTotal         *prometheus.CounterVec
	storeEpochsGauge        prometheus.Gauge
}

// NewEpochMetrics creates a new EpochMetrics instance registered on the
// given registry.
func NewEpochMetrics(registry *prometheus.Registry) (*EpochMetrics, error) {
	m := &EpochMetrics{
		epochsMaterializedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurokit_epochs_materialized_total",
			Help: "Total number of epochs materialized from the continuous source",
		}),
		epochsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurokit_epochs_dropped_total",
			Help: "Total number of epochs dropped, by reason",
		}, []string{"reason"}),
		transformsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurokit_epoch_transforms_total",
			Help: "Total number of store transformations applied, by kind",
		}, []string{"kind"}),
		storeEpochsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "neurokit_epoch_store_epochs",
			Help: "Number of epochs currently retained by the most recently updated store",
		}),
	}

	collectors := []prometheus.Collector{
		m.epochsMaterializedTotal,
		m.epochsDroppedTotal,
		m.transformsTotal,
		m.storeEpochsGauge,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordMaterialized increments the materialized-epoch counter by n.
func (m *EpochMetrics) RecordMaterialized(n int) {
	if m == nil {
		return
	}
	m.epochsMaterializedTotal.Add(float64(n))
}

// RecordDropped increments the dropped-epoch counter for a reason.
func (m *EpochMetrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.epochsDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordTransform increments the transform counter for a kind
// (crop, decimate, resample, baseline, drop, equalize).
func (m *EpochMetrics) RecordTransform(kind string) {
	if m == nil {
		return
	}
	m.transformsTotal.WithLabelValues(kind).Inc()
}

// SetStoreEpochs records the current retained-epoch count.
func (m *EpochMetrics) SetStoreEpochs(n int) {
	if m == nil {
		return
	}
	m.storeEpochsGauge.Set(float64(n))
}
