// Package observability provides metrics and monitoring capabilities for
// the epoch toolkit.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neurokit/neurokit-go/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the toolkit.
type Metrics struct {
	registry  *prometheus.Registry
	Epochs    *metrics.EpochMetrics
	Container *metrics.ContainerMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric
// collectors. It returns an error if any collector fails to register.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	epochMetrics, err := metrics.NewEpochMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create epoch metrics: %w", err)
	}

	containerMetrics, err := metrics.NewContainerMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create container metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Epochs:    epochMetrics,
		Container: containerMetrics,
	}, nil
}

// Registry returns the underlying registry, e.g. for test gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve exposes the metrics over HTTP on addr until the server fails.
// Intended to be run in a goroutine by the CLI when observability is
// enabled in the settings.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}
