package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/eventbus"
	"github.com/annel0/blockverse/internal/game"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/storage"
)

const autosaveInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигу (по умолчанию $"+config.EnvConfigPath+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logging.SetLogDir(cfg.Logging.Dir)
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	manager := logging.GetLoggerManager()
	manager.EnableFiles()
	defer manager.CloseAll()
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logging.DefaultLogger().SetLevels(level, logging.TRACE)
		manager.SetLevels(level, logging.TRACE)
	} else {
		logging.Warn("Неизвестный уровень логирования %q: %v", cfg.Logging.Level, err)
	}

	logging.Info("🎮 Запуск Blockverse Simulation Server...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТЕЛЕМЕТРИЯ ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		log.Fatalf("❌ Ошибка инициализации OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка завершения OpenTelemetry: %v", err)
		}
	}()

	// === ХРАНИЛИЩЕ МИРОВ ===
	repo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}
	defer repo.Close()

	request := storage.WorldRequest{
		ID: cfg.World.ID,
		Settings: storage.Settings{
			FOV:            cfg.Settings.FOV,
			RenderDistance: cfg.Settings.RenderDistance,
		},
	}
	if seed, ok := cfg.World.ResolveSeed(); ok {
		request.Seed = &seed
	}
	meta, created, err := storage.LoadOrCreate(ctx, repo, request)
	if err != nil {
		logging.Error("❌ Ошибка загрузки мира: %v", err)
		log.Fatalf("❌ Ошибка загрузки мира: %v", err)
	}
	if !created {
		logging.Info("🌍 Загружен мир %s (сид %d)", meta.ID, meta.Seed)
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := openEventBus(cfg.EventBus)
	if err != nil {
		logging.Error("❌ Ошибка подключения шины событий: %v", err)
		log.Fatalf("❌ Ошибка подключения шины событий: %v", err)
	}
	eventbus.Init(bus)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Warn("Ошибка закрытия шины событий: %v", err)
		}
	}()

	if sub, err := eventbus.StartLoggingListener(bus, eventbus.Filter{}); err != nil {
		logging.Warn("LoggingListener не запущен: %v", err)
	} else {
		defer sub.Unsubscribe()
	}

	metricsExporter := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	metricsExporter.StartHTTP(fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()))
	defer metricsExporter.Stop()

	codec, err := protocol.NewChunkCodec()
	if err != nil {
		log.Fatalf("❌ Ошибка создания кодека чанков: %v", err)
	}
	defer codec.Close()

	forwarder := game.NewBusForwarder(bus, codec, meta.ID.String(), game.DefaultForwarderBuffer)

	// === СЕССИЯ ===
	session, err := game.NewSession(game.OptionsFromWorld(meta, game.Options{
		MaxConcurrentGenerations: cfg.Streaming.MaxConcurrentGenerations,
		Registerer:               prometheus.DefaultRegisterer,
		Observer:                 forwarder,
		Logger:                   logging.GetWorldLogger(),
	}))
	if err != nil {
		logging.Error("❌ Ошибка создания сессии: %v", err)
		log.Fatalf("❌ Ошибка создания сессии: %v", err)
	}

	if err := session.Start(ctx); err != nil {
		session.Close()
		forwarder.Close()
		logging.Error("❌ Ошибка загрузки начального окна: %v", err)
		log.Fatalf("❌ Ошибка загрузки начального окна: %v", err)
	}

	// === REST API ===
	gin.SetMode(gin.ReleaseMode)
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer := api.NewRestServer(api.Config{
		Port:       restPort,
		Simulation: session,
		Codec:      codec,
		WorldID:    meta.ID.String(),
		Registerer: prometheus.DefaultRegisterer,
		Logger:     logging.GetAPILogger(),
	})
	if err := restServer.Start(); err != nil {
		log.Fatalf("❌ Ошибка запуска REST API: %v", err)
	}

	tickRate := cfg.Server.GetTickRate()
	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌍 Мир: %s, сид %d", meta.ID, meta.Seed)
	logging.Info("   ⏱️  Частота тиков: %d/с", tickRate)
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)

	var saveMu sync.Mutex
	save := func(ctx context.Context) error {
		saveMu.Lock()
		defer saveMu.Unlock()
		return session.SaveState(ctx, repo, &meta)
	}

	// Автосохранение позиции игрока
	go func() {
		ticker := time.NewTicker(autosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := save(ctx); err != nil {
					logging.Warn("Автосохранение не удалось: %v", err)
				}
			}
		}
	}()

	// Цикл симуляции занимает основную горутину до сигнала
	if err := session.Run(ctx, tickRate); err != nil {
		logging.Error("❌ Цикл симуляции остановлен с ошибкой: %v", err)
	}
	logging.Info("📡 Получен сигнал завершения, остановка...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	session.Close()
	forwarder.Close()

	if err := save(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	} else {
		logging.Info("💾 Мир %s сохранён", meta.ID)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// openEventBus выбирает JetStream при заданном URL, иначе шину в памяти
func openEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("📨 Шина событий: в памяти")
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(eventbus.JetStreamOptions{
		URL:       cfg.URL,
		Stream:    cfg.Stream,
		Retention: time.Duration(cfg.Retention) * time.Hour,
	})
	if err != nil {
		return nil, err
	}
	logging.Info("📨 Шина событий: NATS JetStream %s (stream %s)", cfg.URL, cfg.Stream)
	return bus, nil
}
