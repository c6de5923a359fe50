package world

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// streamerMetrics: Prometheus-метрики стримера чанков.
// При nil-регистре метрики создаются, но никуда не регистрируются.
type streamerMetrics struct {
	resident  prometheus.Gauge
	pending   prometheus.Gauge
	queued    prometheus.Gauge
	generated prometheus.Counter
	discarded prometheus.Counter
	unloaded  prometheus.Counter
	failed    prometheus.Counter
	duration  prometheus.Histogram
}

func newStreamerMetrics(reg prometheus.Registerer) *streamerMetrics {
	factory := promauto.With(reg)
	return &streamerMetrics{
		resident: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "chunks_resident",
			Help:      "Количество резидентных чанков.",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "chunks_pending",
			Help:      "Количество чанков, ожидающих генерации.",
		}),
		queued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "chunk_generation_queue_length",
			Help:      "Запросы генерации, ожидающие свободного слота.",
		}),
		generated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "chunks_generated_total",
			Help:      "Чанков, принятых в ChunkStore.",
		}),
		discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "chunks_discarded_total",
			Help:      "Результатов генерации, отброшенных как устаревшие.",
		}),
		unloaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "chunks_unloaded_total",
			Help:      "Чанков, выгруженных при смене окна.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "chunk_generation_failures_total",
			Help:      "Неудачных попыток генерации.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "world",
			Name:      "chunk_generation_duration_seconds",
			Help:      "Длительность генерации одного чанка.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}
