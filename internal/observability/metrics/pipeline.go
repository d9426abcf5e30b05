package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks ingestion pipeline runs. Registered on the shared
// HTTP registry since the pipeline lives in the same process.
type PipelineMetrics struct {
	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	chunksIndexed   prometheus.Histogram
}

func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumeinsight",
			Subsystem: "pipeline",
			Name:      "resume_process_total",
			Help:      "Total processed resumes by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumeinsight",
			Subsystem: "pipeline",
			Name:      "resume_process_duration_seconds",
			Help:      "Resume processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resumeinsight",
			Subsystem: "pipeline",
			Name:      "resume_process_in_flight",
			Help:      "Number of in-flight resume pipeline runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksIndexed := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "resumeinsight",
			Subsystem: "pipeline",
			Name:      "chunks_indexed",
			Help:      "Distribution of indexed chunks per resume.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, chunksIndexed)

	return &PipelineMetrics{
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		chunksIndexed:   chunksIndexed,
	}
}

func (m *PipelineMetrics) StartResume() {
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishResume(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveChunks(count int) {
	if count < 0 {
		return
	}
	m.chunksIndexed.Observe(float64(count))
}
