package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentGenerations: предел одновременных задач генерации
const DefaultMaxConcurrentGenerations = 8

const tracerName = "github.com/annel0/blockverse/internal/world"

// ErrStreamerClosed возвращается при ожидании закрытого стримера
var ErrStreamerClosed = errors.New("chunk streamer closed")

// GenerateFunc вычисляет высоты чанка. Вызывается из фоновых горутин.
type GenerateFunc func(ctx context.Context, key vec.Vec2) (Heights, error)

// StreamerConfig содержит параметры ChunkStreamer
type StreamerConfig struct {
	RenderDistance           int
	MaxConcurrentGenerations int
	Registerer               prometheus.Registerer // nil: метрики не регистрируются
	Tracer                   trace.Tracer          // nil: глобальный провайдер otel
	Logger                   *logging.Logger       // nil: глобальный логгер
	Sink                     EventSink
	Generate                 GenerateFunc // nil: HeightField.GenerateHeights
}

type generationRequest struct {
	key    vec.Vec2
	ticket uint64
}

type generationResult struct {
	key     vec.Vec2
	ticket  uint64
	heights Heights
	err     error
}

// ChunkStreamer поддерживает окно резидентных чанков вокруг игрока.
//
// Все методы, кроме Close, вызываются только из горутины симуляции.
// Фоновые задачи вычисляют высоты и передают результат через канал;
// ChunkStore изменяется только в Drain/Settle.
type ChunkStreamer struct {
	field    *HeightField
	store    *ChunkStore
	generate GenerateFunc

	renderDistance int
	center         vec.Vec2
	centered       bool
	window         []vec.Vec2

	nextTicket uint64
	queue      []generationRequest
	sem        *semaphore.Weighted
	results    chan generationResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sink    EventSink
	metrics *streamerMetrics
	tracer  trace.Tracer
	logger  *logging.Logger
}

// NewChunkStreamer создаёт стример над полем высот и хранилищем
func NewChunkStreamer(field *HeightField, store *ChunkStore, cfg StreamerConfig) *ChunkStreamer {
	if cfg.RenderDistance <= 0 {
		cfg.RenderDistance = DefaultRenderDistance
	}
	if cfg.MaxConcurrentGenerations <= 0 {
		cfg.MaxConcurrentGenerations = DefaultMaxConcurrentGenerations
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &ChunkStreamer{
		field:          field,
		store:          store,
		generate:       cfg.Generate,
		renderDistance: clampRenderDistance(cfg.RenderDistance),
		sem:            semaphore.NewWeighted(int64(cfg.MaxConcurrentGenerations)),
		results:        make(chan generationResult, cfg.MaxConcurrentGenerations),
		ctx:            ctx,
		cancel:         cancel,
		sink:           cfg.Sink,
		metrics:        newStreamerMetrics(cfg.Registerer),
		tracer:         cfg.Tracer,
		logger:         cfg.Logger,
	}
	if s.generate == nil {
		s.generate = func(_ context.Context, key vec.Vec2) (Heights, error) {
			return field.GenerateHeights(key), nil
		}
	}
	return s
}

// Store возвращает хранилище чанков
func (s *ChunkStreamer) Store() *ChunkStore {
	return s.store
}

// Field возвращает поле высот
func (s *ChunkStreamer) Field() *HeightField {
	return s.field
}

// Center возвращает текущий центр окна
func (s *ChunkStreamer) Center() vec.Vec2 {
	return s.center
}

// RenderDistance возвращает текущую дальность в чанках
func (s *ChunkStreamer) RenderDistance() int {
	return s.renderDistance
}

// Window возвращает копию текущего окна
func (s *ChunkStreamer) Window() []vec.Vec2 {
	out := make([]vec.Vec2, len(s.window))
	copy(out, s.window)
	return out
}

// Contains проверяет, входит ли чанк в текущее окно
func (s *ChunkStreamer) Contains(key vec.Vec2) bool {
	return s.centered && InWindow(s.center, s.renderDistance, key)
}

// QueueLen возвращает число запросов, ожидающих свободного слота
func (s *ChunkStreamer) QueueLen() int {
	return len(s.queue)
}

// Update вызывается каждый тик. Окно пересчитывается только при смене чанка игрока.
func (s *ChunkStreamer) Update(position vec.Vec3Float) bool {
	center := ChunkAt(position)
	if s.centered && center == s.center {
		return false
	}
	s.Recenter(center)
	return true
}

// SetRenderDistance меняет дальность прорисовки и пересчитывает окно
func (s *ChunkStreamer) SetRenderDistance(radius int) {
	radius = clampRenderDistance(radius)
	if radius == s.renderDistance {
		return
	}
	s.renderDistance = radius
	if s.centered {
		s.Recenter(s.center)
	}
}

// Recenter пересчитывает окно вокруг center: выгружает резидентные чанки вне окна,
// забывает Pending вне окна и запрашивает генерацию недостающих.
func (s *ChunkStreamer) Recenter(center vec.Vec2) {
	s.center = center
	s.centered = true
	s.window = Window(center, s.renderDistance)

	for _, key := range s.store.Keys() {
		if !s.Contains(key) {
			s.store.Remove(key)
			s.metrics.unloaded.Inc()
			s.emit(ChunkEvent{Kind: EventChunkUnloaded, Key: key, Previous: ChunkResident})
		}
	}
	for _, key := range s.store.PendingKeys() {
		if !s.Contains(key) {
			s.store.Remove(key)
			s.emit(ChunkEvent{Kind: EventChunkUnloaded, Key: key, Previous: ChunkPending})
		}
	}

	s.requestMissing()
	s.log().Debug("Окно перестроено: центр %v, R=%d, резидентных %d, в очереди %d",
		center, s.renderDistance, s.store.Len(), len(s.queue))
}

// Drain принимает готовые результаты генерации без блокировки.
// Возвращает число обработанных результатов.
func (s *ChunkStreamer) Drain() int {
	handled := 0
	for {
		select {
		case res := <-s.results:
			s.commit(res)
			handled++
		default:
			s.pump()
			s.updateGauges()
			return handled
		}
	}
}

// Settled сообщает, что все чанки окна резидентны
func (s *ChunkStreamer) Settled() bool {
	if !s.centered {
		return false
	}
	for _, key := range s.window {
		if s.store.State(key) != ChunkResident {
			return false
		}
	}
	return true
}

// Settle блокируется, пока всё окно не станет резидентным.
// Упавшие задачи перезапускаются.
func (s *ChunkStreamer) Settle(ctx context.Context) error {
	for {
		s.Drain()
		if s.Settled() {
			return nil
		}
		s.requestMissing()

		select {
		case res := <-s.results:
			s.commit(res)
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return ErrStreamerClosed
		}
	}
}

// LoadInitial загружает начальное окно вокруг точки появления.
// Вызывается один раз до первого тика движения.
func (s *ChunkStreamer) LoadInitial(ctx context.Context, spawn vec.Vec3Float) error {
	start := time.Now()
	s.Recenter(ChunkAt(spawn))
	if err := s.Settle(ctx); err != nil {
		return fmt.Errorf("начальная загрузка окна: %w", err)
	}
	s.log().Info("🌍 Начальное окно загружено: %d чанков за %v", s.store.Len(), time.Since(start))
	return nil
}

// Close отменяет фоновые задачи и дожидается их завершения
func (s *ChunkStreamer) Close() {
	s.cancel()
	s.wg.Wait()
}

// requestMissing переводит Unloaded-чанки окна в Pending
func (s *ChunkStreamer) requestMissing() {
	for _, key := range s.window {
		if s.store.State(key) != ChunkUnloaded {
			continue
		}
		s.nextTicket++
		s.store.MarkPending(key, s.nextTicket)
		s.queue = append(s.queue, generationRequest{key: key, ticket: s.nextTicket})
		s.emit(ChunkEvent{Kind: EventChunkPending, Key: key, Previous: ChunkUnloaded})
	}
	s.pump()
	s.updateGauges()
}

// pump запускает задачи из очереди, пока есть свободные слоты.
// Слот освобождается при приёме результата в commit, поэтому
// в канале результатов никогда не больше MaxConcurrentGenerations значений.
func (s *ChunkStreamer) pump() {
	for len(s.queue) > 0 {
		req := s.queue[0]
		if ticket, ok := s.store.PendingTicket(req.key); !ok || ticket != req.ticket {
			s.queue = s.queue[1:]
			continue
		}
		if !s.sem.TryAcquire(1) {
			break
		}
		s.queue = s.queue[1:]
		s.wg.Add(1)
		go s.run(req)
	}
	if len(s.queue) == 0 {
		s.queue = nil
	}
}

// run выполняется в фоновой горутине и не трогает ChunkStore
func (s *ChunkStreamer) run(req generationRequest) {
	defer s.wg.Done()

	ctx, span := s.tracer.Start(s.ctx, "world.generate_chunk", trace.WithAttributes(
		attribute.Int("chunk.x", req.key.X),
		attribute.Int("chunk.z", req.key.Y),
		attribute.Int64("world.seed", s.field.Seed()),
	))
	start := time.Now()
	heights, err := s.safeGenerate(ctx, req.key)
	s.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	select {
	case s.results <- generationResult{key: req.key, ticket: req.ticket, heights: heights, err: err}:
	case <-s.ctx.Done():
	}
}

func (s *ChunkStreamer) safeGenerate(ctx context.Context, key vec.Vec2) (heights Heights, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника при генерации чанка %v: %v", key, r)
		}
	}()
	return s.generate(ctx, key)
}

// commit применяет результат, если чанк всё ещё в окне и ждёт именно этот запрос
func (s *ChunkStreamer) commit(res generationResult) {
	s.sem.Release(1)

	ticket, pending := s.store.PendingTicket(res.key)
	if !pending || ticket != res.ticket || !s.Contains(res.key) {
		s.metrics.discarded.Inc()
		s.emit(ChunkEvent{Kind: EventChunkDiscarded, Key: res.key, Previous: s.store.State(res.key)})
		return
	}

	if res.err != nil {
		s.store.Remove(res.key)
		s.metrics.failed.Inc()
		s.log().Error("Ошибка генерации чанка %v: %v", res.key, res.err)
		s.emit(ChunkEvent{Kind: EventChunkFailed, Key: res.key, Previous: ChunkPending, Err: res.err})
		return
	}

	chunk := s.store.Insert(res.key, res.heights)
	s.metrics.generated.Inc()
	s.emit(ChunkEvent{Kind: EventChunkResident, Key: res.key, Previous: ChunkPending, Chunk: chunk})
}

func (s *ChunkStreamer) emit(ev ChunkEvent) {
	logging.LogChunkTransition(ev.Key.X, ev.Key.Y, ev.Previous.String(), ev.Kind.String())
	if s.sink != nil {
		s.sink.OnChunkEvent(ev)
	}
}

func (s *ChunkStreamer) updateGauges() {
	s.metrics.resident.Set(float64(s.store.Len()))
	s.metrics.pending.Set(float64(s.store.PendingLen()))
	s.metrics.queued.Set(float64(len(s.queue)))
}

func (s *ChunkStreamer) log() *logging.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.DefaultLogger()
}

func clampRenderDistance(radius int) int {
	if radius < MinRenderDistance {
		return MinRenderDistance
	}
	if radius > MaxRenderDistance {
		return MaxRenderDistance
	}
	return radius
}
