package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry       *prometheus.Registry
	importsTotal   *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	activeImports  prometheus.Gauge
	documentsTotal *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		importsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelprops_worker_imports_total",
			Help: "Total asset imports by final status.",
		}, []string{"status"}),
		importDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixelprops_worker_import_duration_seconds",
			Help:    "Duration of each asset import.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"status"}),
		activeImports: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pixelprops_worker_active_imports",
			Help: "Imports currently being processed.",
		}),
		documentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelprops_worker_documents_total",
			Help: "Export documents by outcome (imported, skipped, failed).",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		m.importsTotal,
		m.importDuration,
		m.activeImports,
		m.documentsTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
