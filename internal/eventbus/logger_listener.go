package eventbus

import (
	"context"

	"github.com/annel0/blockverse/internal/logging"
)

// StartLoggingListener подписывается на события по фильтру и пишет их в стандартный лог.
// Ошибки генерации чанков пишутся с уровнем WARN, остальное в DEBUG. Функция неблокирующая.
func StartLoggingListener(bus EventBus, f Filter) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), f, func(ctx context.Context, ev *Envelope) {
		if ev.EventType == EventChunkFailed {
			logging.GetEventBusLogger().Warn("[EventBus] %s src=%s corr=%s: %s", ev.EventType, ev.Source, ev.CorrelationID, ev.Metadata["error"])
			return
		}
		logging.GetEventBusLogger().Debug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.GetEventBusLogger().Info("🪵 LoggingListener: подписка активирована (типы: %v)", f.Types)
	return sub, nil
}
