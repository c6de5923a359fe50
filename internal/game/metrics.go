package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type sessionMetrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	landings     prometheus.Counter
	jumps        prometheus.Counter
	collisions   *prometheus.CounterVec
	inputEvents  prometheus.Counter
}

func newSessionMetrics(reg prometheus.Registerer) *sessionMetrics {
	factory := promauto.With(reg)
	return &sessionMetrics{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "ticks_total",
			Help:      "Число выполненных тиков симуляции.",
		}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "game",
			Name:      "tick_duration_seconds",
			Help:      "Время выполнения тика симуляции.",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
		}),
		landings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "player_landings_total",
			Help:      "Приземления игрока.",
		}),
		jumps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "player_jumps_total",
			Help:      "Прыжки игрока.",
		}),
		collisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "player_collisions_total",
			Help:      "Столкновения игрока по осям.",
		}, []string{"axis"}),
		inputEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "input_events_total",
			Help:      "Принятые события ввода.",
		}),
	}
}
