package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audioscribe"

var (
	// TranscriptionRequests counts finished transcriptions by status (success, cached, error).
	TranscriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcription_requests_total",
		Help:      "Transcription requests by outcome.",
	}, []string{"status"})

	// TranscriptionDuration 单次转录流水线耗时
	TranscriptionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transcription_duration_seconds",
		Help:      "Wall time of the transcription pipeline.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	})

	// AudioDuration 规范化后音频时长
	AudioDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "audio_duration_seconds",
		Help:      "Duration of normalized input audio.",
		Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	SegmentsRecognized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_recognized_total",
		Help:      "Audio segments sent to the recognition backend.",
	})

	// PipelineErrors 按错误类型统计失败
	PipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_errors_total",
		Help:      "Pipeline failures by error kind.",
	}, []string{"kind"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transcript_cache_lookups_total",
		Help:      "Transcript cache lookups by result (hit, miss).",
	}, []string{"result"})

	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audio_extractions_total",
		Help:      "Video audio extractions by status.",
	}, []string{"status"})
)

// Handler 返回 /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
