package eventbus

import (
	"context"
	"sync/atomic"
)

type busHolder struct {
	bus EventBus
}

var globalBus atomic.Pointer[busHolder]

// Init устанавливает глобальную шину.
func Init(bus EventBus) { globalBus.Store(&busHolder{bus: bus}) }

// Global возвращает глобальную шину или nil.
func Global() EventBus {
	if h := globalBus.Load(); h != nil {
		return h.bus
	}
	return nil
}

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	bus := Global()
	if bus == nil {
		return nil
	}
	return bus.Publish(ctx, ev)
}
