package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Типы событий симуляции
const (
	EventChunkResident   = "ChunkResident"   // Payload: закодированные высоты чанка
	EventChunkUnloaded   = "ChunkUnloaded"   // Payload: координаты чанка
	EventChunkFailed     = "ChunkFailed"     // Payload: координаты чанка, ошибка в Metadata
	EventWorldLoaded     = "WorldLoaded"     // Начальное окно загружено
	EventSettingsChanged = "SettingsChanged" // Изменены FOV или дальность прорисовки
)

// Приоритеты событий. При переполнении буфера события ниже PriorityHigh отбрасываются,
// остальные ждут места.
const (
	PriorityBulk     = 1
	PriorityHigh     = 5
	PriorityCritical = 9
)

// ErrBusClosed возвращается при публикации в закрытую шину
var ErrBusClosed = errors.New("event bus closed")

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версиирования и трассировки.
type Envelope struct {
	ID            string            `json:"id"`                       // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         `json:"timestamp"`                // Время создания события (UTC).
	Source        string            `json:"source"`                   // Имя сервиса-источника.
	EventType     string            `json:"event_type"`               // Тип события (ChunkResident, WorldLoaded…).
	Version       int               `json:"version"`                  // Схема полезной нагрузки.
	CorrelationID string            `json:"correlation_id,omitempty"` // Для связывания цепочек (ID мира).
	Priority      int               `json:"priority"`                 // PriorityBulk … PriorityCritical.
	Payload       []byte            `json:"payload,omitempty"`        // Сериализованный protobuf.
	Metadata      map[string]string `json:"metadata,omitempty"`       // Произвольные метаданные.
}

// NewEnvelope создаёт событие с новым ID и текущим временем
func NewEnvelope(source, eventType string, payload []byte) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Payload:   payload,
	}
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто: все типы.
	Sources []string // Если пусто: все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий.
// Реализации: в памяти и NATS JetStream.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// memoryBus доставляет события каждому подписчику в порядке публикации:
// у подписчика своя очередь и своя горутина.
type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	capacity    int

	sendMu sync.RWMutex // Защищает buffer от отправки после закрытия
	closed bool

	dispatchDone chan struct{}
	handlers     sync.WaitGroup
}

type subscriber struct {
	filter  Filter
	handler Handler
	queue   chan *Envelope
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory шину; capacity: размер общего буфера и очереди подписчика.
func NewMemoryBus(capacity int) EventBus {
	if capacity < 1 {
		capacity = 1
	}
	mb := &memoryBus{
		subscribers:  make(map[int]*subscriber),
		buffer:       make(chan *Envelope, capacity),
		capacity:     capacity,
		dispatchDone: make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.sendMu.RLock()
	defer mb.sendMu.RUnlock()
	if mb.closed {
		return ErrBusClosed
	}

	select {
	case mb.buffer <- ev:
		mb.count(&mb.stats.Published)
		return nil
	default:
	}

	// Буфер заполнен
	if ev.Priority < PriorityHigh {
		mb.count(&mb.stats.Dropped)
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.count(&mb.stats.Published)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *memoryBus) count(counter *uint64) {
	mb.mu.Lock()
	*counter++
	mb.mu.Unlock()
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.sendMu.RLock()
	defer mb.sendMu.RUnlock()
	if mb.closed {
		return nil, ErrBusClosed
	}

	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		filter:  f,
		handler: h,
		queue:   make(chan *Envelope, mb.capacity),
		ctx:     cctx,
		cancel:  cancel,
	}

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = sub
	mb.mu.Unlock()

	mb.handlers.Add(1)
	go mb.consume(sub)

	return &memSub{bus: mb, id: id}, nil
}

// consume вызывает обработчик подписчика последовательно
func (mb *memoryBus) consume(sub *subscriber) {
	defer mb.handlers.Done()
	for {
		select {
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			sub.handler(sub.ctx, ev)
			mb.count(&mb.stats.Consumed)
		case <-sub.ctx.Done():
			return
		}
	}
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	for _, sub := range mb.subscribers {
		s.InFlight += len(sub.queue)
	}
	return s
}

// Close прекращает приём событий и дожидается доставки уже принятых
func (mb *memoryBus) Close() error {
	mb.sendMu.Lock()
	if mb.closed {
		mb.sendMu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.buffer)
	mb.sendMu.Unlock()

	<-mb.dispatchDone

	mb.mu.Lock()
	for _, sub := range mb.subscribers {
		close(sub.queue)
	}
	mb.mu.Unlock()

	mb.handlers.Wait()
	return nil
}

// dispatchLoop раскладывает события по очередям подписчиков.
// Медленный подписчик тормозит рассылку, и тогда Publish начинает отбрасывать
// события с низким приоритетом.
func (mb *memoryBus) dispatchLoop() {
	defer close(mb.dispatchDone)

	for ev := range mb.buffer {
		mb.mu.RLock()
		subs := make([]*subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			if matchFilter(ev, sub.filter) {
				subs = append(subs, sub)
			}
		}
		mb.mu.RUnlock()

		for _, sub := range subs {
			select {
			case sub.queue <- ev:
			case <-sub.ctx.Done():
			}
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	return contains(f.Types, ev.EventType) && contains(f.Sources, ev.Source)
}

// contains считает пустой список совпадением с любым значением
func contains(list []string, val string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
