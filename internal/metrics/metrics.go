package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics метрики Prometheus конвейера детекции
type Metrics struct {
	DetectionsTotal     *prometheus.CounterVec
	ReportsCreated      prometheus.Counter
	NotifyErrorsTotal   prometheus.Counter
	SegmentationLatency prometheus.Histogram
	ModelReady          prometheus.Gauge
}

// New регистрирует метрики в reg. При nil используется prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		DetectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pothole_detections_total",
			Help: "Detection requests by terminal outcome",
		}, []string{"outcome"}),
		ReportsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "pothole_reports_created_total",
			Help: "Reports committed to the store",
		}),
		NotifyErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "pothole_notify_errors_total",
			Help: "Fan-out publish failures",
		}),
		SegmentationLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pothole_segmentation_seconds",
			Help:    "Time spent in the segmentation adapter",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ModelReady: f.NewGauge(prometheus.GaugeOpts{
			Name: "pothole_model_ready",
			Help: "1 once the segmentation model has loaded",
		}),
	}
}

// ObserveOutcome учитывает итог запроса
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.DetectionsTotal.WithLabelValues(outcome).Inc()
}

// IncReportsCreated учитывает сохранённый отчёт
func (m *Metrics) IncReportsCreated() {
	if m == nil {
		return
	}
	m.ReportsCreated.Inc()
}

// IncNotifyErrors учитывает сбой рассылки
func (m *Metrics) IncNotifyErrors() {
	if m == nil {
		return
	}
	m.NotifyErrorsTotal.Inc()
}

// ObserveSegmentation время сегментации в секундах
func (m *Metrics) ObserveSegmentation(seconds float64) {
	if m == nil {
		return
	}
	m.SegmentationLatency.Observe(seconds)
}

// SetModelReady отражает флаг готовности модели
func (m *Metrics) SetModelReady(ready bool) {
	if m == nil {
		return
	}
	if ready {
		m.ModelReady.Set(1)
		return
	}
	m.ModelReady.Set(0)
}
