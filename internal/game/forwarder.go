package game

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/world"
)

// EventSource: имя источника событий симуляции в шине
const EventSource = "blockverse.sim"

// DefaultForwarderBuffer: ёмкость очереди событий по умолчанию
const DefaultForwarderBuffer = 1024

const publishTimeout = 2 * time.Second

// BusForwarder пересылает события сессии в шину событий.
// Горутина симуляции только ставит событие в очередь; при переполнении событие отбрасывается.
type BusForwarder struct {
	bus           eventbus.EventBus
	codec         *protocol.ChunkCodec
	correlationID string

	queue   chan *eventbus.Envelope
	dropped atomic.Uint64

	sendMu sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewBusForwarder запускает фоновую публикацию. correlationID связывает события одного мира.
func NewBusForwarder(bus eventbus.EventBus, codec *protocol.ChunkCodec, correlationID string, buffer int) *BusForwarder {
	if buffer <= 0 {
		buffer = DefaultForwarderBuffer
	}
	f := &BusForwarder{
		bus:           bus,
		codec:         codec,
		correlationID: correlationID,
		queue:         make(chan *eventbus.Envelope, buffer),
		done:          make(chan struct{}),
	}
	go f.loop()
	return f
}

// OnChunkEvent реализует world.EventSink
func (f *BusForwarder) OnChunkEvent(ev world.ChunkEvent) {
	switch ev.Kind {
	case world.EventChunkResident:
		f.enqueue(eventbus.EventChunkResident, f.codec.EncodeChunk(ev.Key, ev.Chunk.Heights), eventbus.PriorityBulk, nil)
	case world.EventChunkUnloaded:
		if ev.Previous == world.ChunkResident {
			f.enqueue(eventbus.EventChunkUnloaded, protocol.EncodeChunkKey(ev.Key), eventbus.PriorityBulk, nil)
		}
	case world.EventChunkFailed:
		f.enqueue(eventbus.EventChunkFailed, protocol.EncodeChunkKey(ev.Key), eventbus.PriorityHigh, map[string]string{"error": ev.Err.Error()})
	}
}

// OnWorldLoaded реализует Observer
func (f *BusForwarder) OnWorldLoaded(frame Frame) {
	f.enqueueJSON(eventbus.EventWorldLoaded, frame, eventbus.PriorityCritical)
}

// OnSettingsChanged реализует Observer
func (f *BusForwarder) OnSettingsChanged(settings Settings) {
	f.enqueueJSON(eventbus.EventSettingsChanged, settings, eventbus.PriorityHigh)
}

// Dropped возвращает число событий, отброшенных из-за переполнения очереди
func (f *BusForwarder) Dropped() uint64 {
	return f.dropped.Load()
}

// Close публикует оставшиеся события и останавливает горутину
func (f *BusForwarder) Close() {
	f.sendMu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.sendMu.Unlock()
	<-f.done
}

func (f *BusForwarder) enqueueJSON(eventType string, v any, priority int) {
	payload, err := json.Marshal(v)
	if err != nil {
		logging.Error("Ошибка сериализации события %s: %v", eventType, err)
		return
	}
	f.enqueue(eventType, payload, priority, nil)
}

func (f *BusForwarder) enqueue(eventType string, payload []byte, priority int, metadata map[string]string) {
	env := eventbus.NewEnvelope(EventSource, eventType, payload)
	env.CorrelationID = f.correlationID
	env.Priority = priority
	env.Metadata = metadata

	f.sendMu.RLock()
	defer f.sendMu.RUnlock()
	if f.closed {
		f.dropped.Add(1)
		return
	}
	select {
	case f.queue <- env:
	default:
		f.dropped.Add(1)
	}
}

func (f *BusForwarder) loop() {
	defer close(f.done)
	for env := range f.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := f.bus.Publish(ctx, env); err != nil {
			logging.Warn("Событие %s не опубликовано: %v", env.EventType, err)
		}
		cancel()
	}
}
