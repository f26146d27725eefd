package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ContainerMetrics contains Prometheus metrics for container file I/O.
type ContainerMetrics struct {
	filesWrittenTotal prometheus.Counter
	filesReadTotal    prometheus.Counter
	bytesWrittenTotal prometheus.Counter
	splitWritesTotal  *prometheus.CounterVec
	writeErrors       *prometheus.CounterVec
}

// NewContainerMetrics creates a new ContainerMetrics instance registered
// on the given registry.
func NewContainerMetrics(registry *prometheus.Registry) (*ContainerMetrics, error) {
	m := &ContainerMetrics{
		filesWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurokit_container_files_written_total",
			Help: "Total number of container chunk files written",
		}),
		filesReadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurokit_container_files_read_total",
			Help: "Total number of container chunk files read",
		}),
		bytesWrittenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurokit_container_bytes_written_total",
			Help: "Total bytes written to container chunk files",
		}),
		splitWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurokit_container_split_writes_total",
			Help: "Total number of save operations, by split outcome (single or split)",
		}, []string{"outcome"}),
		writeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "neurokit_container_write_errors_total",
			Help: "Total number of failed save operations, by category",
		}, []string{"category"}),
	}

	collectors := []prometheus.Collector{
		m.filesWrittenTotal,
		m.filesReadTotal,
		m.bytesWrittenTotal,
		m.splitWritesTotal,
		m.writeErrors,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordFileWritten records one chunk file written with its size.
func (m *ContainerMetrics) RecordFileWritten(bytes int64) {
	if m == nil {
		return
	}
	m.filesWrittenTotal.Inc()
	m.bytesWrittenTotal.Add(float64(bytes))
}

// RecordFileRead records one chunk file read.
func (m *ContainerMetrics) RecordFileRead() {
	if m == nil {
		return
	}
	m.filesReadTotal.Inc()
}

// RecordSave records a completed save operation outcome.
func (m *ContainerMetrics) RecordSave(split bool) {
	if m == nil {
		return
	}
	outcome := "single"
	if split {
		outcome = "split"
	}
	m.splitWritesTotal.WithLabelValues(outcome).Inc()
}

// RecordWriteError records a failed save operation.
func (m *ContainerMetrics) RecordWriteError(category string) {
	if m == nil {
		return
	}
	m.writeErrors.WithLabelValues(category).Inc()
}
