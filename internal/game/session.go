package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockverse/internal/input"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/physics"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

var (
	// ErrMissingSeed возвращается, если сид мира не задан
	ErrMissingSeed = errors.New("world seed is missing")
	// ErrNotStarted возвращается при тике до загрузки начального окна
	ErrNotStarted = errors.New("session not started")
)

// Observer получает события сессии. Методы вызываются из горутины симуляции.
type Observer interface {
	world.EventSink
	OnWorldLoaded(frame Frame)
	OnSettingsChanged(settings Settings)
}

// Options: параметры сессии
type Options struct {
	Seed                     *int64
	Settings                 Settings
	MaxConcurrentGenerations int
	Spawn                    *vec.Vec3Float // Позиция глаз; nil: над поверхностью в колонке (0,0)
	Physics                  *physics.Params
	Registerer               prometheus.Registerer
	Tracer                   trace.Tracer
	Logger                   *logging.Logger
	Observer                 Observer
	Generate                 world.GenerateFunc // nil: генерация из поля высот
}

// Frame: неизменяемый снимок состояния после тика для рендера и REST
type Frame struct {
	Tick           uint64        `json:"tick"`
	Position       vec.Vec3Float `json:"position"`
	Velocity       vec.Vec3Float `json:"velocity"`
	Grounded       bool          `json:"grounded"`
	Facing         vec.Vec3Float `json:"facing"`
	PointerLocked  bool          `json:"pointer_locked"`
	Paused         bool          `json:"paused"`
	CenterChunk    vec.Vec2      `json:"center_chunk"`
	ResidentChunks int           `json:"resident_chunks"`
	PendingChunks  int           `json:"pending_chunks"`
	Settings       Settings      `json:"settings"`
}

// inbox накапливает команды других горутин до начала следующего тика
type inbox struct {
	mu       sync.Mutex
	events   []input.Event
	facing   *vec.Vec3Float
	settings *Settings
}

// Session связывает сид, стример, хранилище чанков, коллизии и интегратор.
//
// Tick вызывается только из одной горутины симуляции. Submit, SetFacing,
// UpdateSettings, Frame и ChunkHeights безопасны из любых горутин.
type Session struct {
	seed       int64
	field      *world.HeightField
	store      *world.ChunkStore
	streamer   *world.ChunkStreamer
	resolver   *physics.CollisionResolver
	integrator *physics.MovementIntegrator
	player     *physics.PlayerState
	input      *input.State
	settings   Settings
	observer   Observer
	metrics    *sessionMetrics
	logger     *logging.Logger

	tick    uint64
	started bool
	inbox   inbox

	frameMu  sync.RWMutex
	frame    Frame
	resident map[vec.Vec2]*world.Chunk // Копия набора резидентных чанков для читателей
}

// NewSession создаёт сессию. Генерация не начинается до Start.
func NewSession(opts Options) (*Session, error) {
	if opts.Seed == nil {
		return nil, ErrMissingSeed
	}
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	params := physics.DefaultParams()
	if opts.Physics != nil {
		params = *opts.Physics
	}

	seed := *opts.Seed
	field := world.NewHeightField(seed)
	store := world.NewChunkStore()
	resolver := physics.NewCollisionResolver(store)

	s := &Session{
		seed:       seed,
		field:      field,
		store:      store,
		resolver:   resolver,
		integrator: physics.NewMovementIntegratorWithParams(resolver, params),
		input:      input.NewState(),
		settings:   opts.Settings,
		observer:   opts.Observer,
		metrics:    newSessionMetrics(opts.Registerer),
		logger:     opts.Logger,
		resident:   make(map[vec.Vec2]*world.Chunk),
	}
	s.streamer = world.NewChunkStreamer(field, store, world.StreamerConfig{
		RenderDistance:           opts.Settings.RenderDistance,
		MaxConcurrentGenerations: opts.MaxConcurrentGenerations,
		Registerer:               opts.Registerer,
		Tracer:                   opts.Tracer,
		Logger:                   opts.Logger,
		Sink:                     world.EventSinkFunc(s.onChunkEvent),
		Generate:                 opts.Generate,
	})

	spawn := SpawnPoint(field, 0, 0)
	if opts.Spawn != nil {
		if !opts.Spawn.IsFinite() {
			return nil, fmt.Errorf("некорректная точка появления %v", *opts.Spawn)
		}
		spawn = *opts.Spawn
	}
	s.player = &physics.PlayerState{Position: spawn}
	s.publishFrame()

	return s, nil
}

// SpawnPoint возвращает позицию глаз игрока, стоящего на поверхности колонки (x, z)
func SpawnPoint(field *world.HeightField, x, z int) vec.Vec3Float {
	h := field.HeightAt(x, z)
	return vec.Vec3Float{
		X: float64(x),
		Y: float64(h) + physics.CollisionEpsilon + physics.PlayerHeight,
		Z: float64(z),
	}
}

// Seed возвращает сид мира
func (s *Session) Seed() int64 {
	return s.seed
}

// Start загружает начальное окно вокруг игрока. Блокируется до готовности окна.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	if err := s.streamer.LoadInitial(ctx, s.player.Position); err != nil {
		return err
	}
	s.started = true
	s.publishFrame()

	frame := s.Frame()
	s.log().Info("🎮 Сессия запущена: сид %d, позиция %v, чанков %d", s.seed, frame.Position, frame.ResidentChunks)
	if s.observer != nil {
		s.observer.OnWorldLoaded(frame)
	}
	return nil
}

// Submit ставит событие ввода в очередь следующего тика
func (s *Session) Submit(events ...input.Event) {
	s.inbox.mu.Lock()
	s.inbox.events = append(s.inbox.events, events...)
	s.inbox.mu.Unlock()
}

// SetFacing задаёт направление взгляда со следующего тика
func (s *Session) SetFacing(dir vec.Vec3Float) error {
	if !dir.IsFinite() || dir == (vec.Vec3Float{}) {
		return input.ErrInvalidFacing
	}
	s.inbox.mu.Lock()
	s.inbox.facing = &dir
	s.inbox.mu.Unlock()
	return nil
}

// UpdateSettings проверяет настройки и применяет их со следующего тика
func (s *Session) UpdateSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.inbox.mu.Lock()
	s.inbox.settings = &settings
	s.inbox.mu.Unlock()
	return nil
}

// Tick выполняет один шаг симуляции длительностью dt секунд
func (s *Session) Tick(dt float64) (physics.StepResult, error) {
	if !s.started {
		return physics.StepResult{}, ErrNotStarted
	}
	start := time.Now()

	s.applyInbox()
	s.streamer.Drain()

	from := s.player.Position
	result := s.integrator.Step(s.player, s.input.Snapshot(), dt)
	s.streamer.Update(s.player.Position)
	s.tick++

	to := s.player.Position
	logging.LogPlayerMovement(s.tick, from.X, from.Y, from.Z, to.X, to.Y, to.Z, s.player.Grounded)
	s.observeStep(result)
	s.publishFrame()

	s.metrics.ticks.Inc()
	s.metrics.tickDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// Run выполняет тики с фиксированной частотой до отмены ctx
func (s *Session) Run(ctx context.Context, tickRate int) error {
	if tickRate <= 0 {
		return fmt.Errorf("некорректная частота тиков %d", tickRate)
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if _, err := s.Tick(now.Sub(last).Seconds()); err != nil {
				return err
			}
			last = now
		}
	}
}

// Frame возвращает последний опубликованный снимок
func (s *Session) Frame() Frame {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.frame
}

// ChunkHeights возвращает высоты резидентного чанка
func (s *Session) ChunkHeights(key vec.Vec2) (world.Heights, bool) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	chunk, ok := s.resident[key]
	if !ok {
		return world.Heights{}, false
	}
	return chunk.Heights, true
}

// ResidentKeys возвращает отсортированные координаты резидентных чанков
func (s *Session) ResidentKeys() []vec.Vec2 {
	s.frameMu.RLock()
	keys := make([]vec.Vec2, 0, len(s.resident))
	for key := range s.resident {
		keys = append(keys, key)
	}
	s.frameMu.RUnlock()
	world.SortKeys(keys)
	return keys
}

// Close останавливает фоновую генерацию
func (s *Session) Close() {
	s.streamer.Close()
}

func (s *Session) applyInbox() {
	s.inbox.mu.Lock()
	events := s.inbox.events
	facing := s.inbox.facing
	settings := s.inbox.settings
	s.inbox.events, s.inbox.facing, s.inbox.settings = nil, nil, nil
	s.inbox.mu.Unlock()

	for _, ev := range events {
		s.input.Apply(ev)
	}
	s.metrics.inputEvents.Add(float64(len(events)))

	if facing != nil {
		if err := s.input.SetFacing(*facing); err != nil {
			s.log().Warn("Направление взгляда отклонено: %v", err)
		}
	}

	if settings != nil && *settings != s.settings {
		s.settings = *settings
		s.streamer.SetRenderDistance(settings.RenderDistance)
		s.log().Info("⚙️ Настройки изменены: FOV %.0f, дальность %d", settings.FOV, settings.RenderDistance)
		if s.observer != nil {
			s.observer.OnSettingsChanged(*settings)
		}
	}
}

func (s *Session) observeStep(result physics.StepResult) {
	if result.Landed {
		s.metrics.landings.Inc()
	}
	if result.Jumped {
		s.metrics.jumps.Inc()
	}
	for _, axis := range []physics.Axis{physics.AxisX, physics.AxisY, physics.AxisZ} {
		if result.Collided(axis) {
			s.metrics.collisions.WithLabelValues(axis.String()).Inc()
		}
	}
}

// onChunkEvent поддерживает копию резидентного набора и пересылает события наблюдателю
func (s *Session) onChunkEvent(ev world.ChunkEvent) {
	switch ev.Kind {
	case world.EventChunkResident:
		s.frameMu.Lock()
		s.resident[ev.Key] = ev.Chunk
		s.frameMu.Unlock()
	case world.EventChunkUnloaded:
		if ev.Previous == world.ChunkResident {
			s.frameMu.Lock()
			delete(s.resident, ev.Key)
			s.frameMu.Unlock()
		}
	}
	if s.observer != nil {
		s.observer.OnChunkEvent(ev)
	}
}

func (s *Session) publishFrame() {
	frame := Frame{
		Tick:           s.tick,
		Position:       s.player.Position,
		Velocity:       s.player.Velocity,
		Grounded:       s.player.Grounded,
		Facing:         s.input.Facing(),
		PointerLocked:  s.input.PointerLocked(),
		Paused:         s.input.Paused(),
		CenterChunk:    s.streamer.Center(),
		ResidentChunks: s.store.Len(),
		PendingChunks:  s.store.PendingLen(),
		Settings:       s.settings,
	}
	s.frameMu.Lock()
	s.frame = frame
	s.frameMu.Unlock()
}

func (s *Session) log() *logging.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.DefaultLogger()
}
