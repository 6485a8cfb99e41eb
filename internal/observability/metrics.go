package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	PipelineRuns     *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	FallbackReplies  *prometheus.CounterVec
	VideoPollRounds  prometheus.Histogram
	SynthesisLatency prometheus.Histogram
	ActiveStreams    prometheus.Gauge

	Stages *StageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PipelineRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by kind (mirror|soulcast) and outcome.",
		}, []string{"kind", "outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		FallbackReplies: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_replies_total",
			Help:      "Locally generated replies by fallback reason.",
		}, []string{"reason"}),
		VideoPollRounds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "video_poll_rounds",
			Help:      "Status poll attempts used per video generation job.",
			Buckets:   []float64{1, 2, 3, 5, 8, 12, 18, 24, 30},
		}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_latency_ms",
			Help:      "Speech synthesis latency in milliseconds.",
			Buckets:   []float64{200, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}),
		ActiveStreams: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Number of open pipeline websocket streams.",
		}),
		Stages: NewStageWindow(256),
	}
}

func (m *Metrics) ObserveSynthesisLatency(d time.Duration) {
	m.SynthesisLatency.Observe(float64(d.Milliseconds()))
	m.Stages.Observe(StageSynthesis, d)
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.Stages.Observe(stage, d)
}

func (m *Metrics) ObserveIndicator(name string) {
	if m == nil {
		return
	}
	m.Stages.ObserveIndicator(name)
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
