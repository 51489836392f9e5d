package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkbenchMetrics 图片上传与表单会话指标
type WorkbenchMetrics struct {
	registry *prometheus.Registry

	uploadTotal    *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	uploadInFlight prometheus.Gauge
	sessionsOpen   prometheus.Gauge
	submitTotal    *prometheus.CounterVec
}

func NewWorkbenchMetrics(service string) *WorkbenchMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	uploadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "tcg",
			Subsystem:   "workbench",
			Name:        "image_upload_total",
			Help:        "Total image uploads by status.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "tcg",
			Subsystem:   "workbench",
			Name:        "image_upload_duration_seconds",
			Help:        "Image upload duration (URL request + transfer) in seconds by status.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	uploadInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "tcg",
			Subsystem:   "workbench",
			Name:        "image_upload_in_flight",
			Help:        "Number of in-flight image uploads.",
			ConstLabels: constLabels,
		},
	)
	sessionsOpen := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "tcg",
			Subsystem:   "workbench",
			Name:        "form_sessions_open",
			Help:        "Number of open inventory form sessions.",
			ConstLabels: constLabels,
		},
	)
	submitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "tcg",
			Subsystem:   "workbench",
			Name:        "form_submit_total",
			Help:        "Total form submissions by mode and status.",
			ConstLabels: constLabels,
		},
		[]string{"mode", "status"},
	)

	registry.MustRegister(uploadTotal, uploadDuration, uploadInFlight, sessionsOpen, submitTotal)

	return &WorkbenchMetrics{
		registry:       registry,
		uploadTotal:    uploadTotal,
		uploadDuration: uploadDuration,
		uploadInFlight: uploadInFlight,
		sessionsOpen:   sessionsOpen,
		submitTotal:    submitTotal,
	}
}

func (m *WorkbenchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkbenchMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkbenchMetrics) StartUpload() {
	m.uploadInFlight.Inc()
}

func (m *WorkbenchMetrics) FinishUpload(duration time.Duration, err error) {
	m.uploadInFlight.Dec()

	status := statusOf(err)
	m.uploadTotal.WithLabelValues(status).Inc()
	m.uploadDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkbenchMetrics) SessionOpened() {
	m.sessionsOpen.Inc()
}

func (m *WorkbenchMetrics) SessionClosed() {
	m.sessionsOpen.Dec()
}

func (m *WorkbenchMetrics) ObserveSubmit(mode string, err error) {
	m.submitTotal.WithLabelValues(mode, statusOf(err)).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
