package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// pipelineMetrics are the exporter's own counters. Failures never surface
// to the instrumented application; these counters and the pipeline's logs
// are the only way to observe them.
type pipelineMetrics struct {
	enqueued *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	exported *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

func newPipelineMetrics(reg prometheus.Registerer) *pipelineMetrics {
	factory := promauto.With(reg)
	return &pipelineMetrics{
		enqueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_export_enqueued_total",
				Help: "Items accepted into a signal buffer",
			},
			[]string{"signal"},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_export_dropped_total",
				Help: "Items dropped due to a full buffer",
			},
			[]string{"signal"},
		),
		exported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_export_exported_total",
				Help: "Items successfully delivered to the backend",
			},
			[]string{"signal"},
		),
		failed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsewatch_export_failed_flushes_total",
				Help: "Flush attempts that failed in serialization or transport",
			},
			[]string{"signal"},
		),
	}
}
