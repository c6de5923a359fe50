package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockverse/internal/game"
	"github.com/annel0/blockverse/internal/input"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// Version: версия REST API
const Version = "v0.1.0"

// Simulation: то, что REST API видит в игровой сессии.
// Все методы должны быть безопасны для вызова из HTTP-горутин.
type Simulation interface {
	Seed() int64
	Frame() game.Frame
	ResidentKeys() []vec.Vec2
	ChunkHeights(key vec.Vec2) (world.Heights, bool)
	Submit(events ...input.Event)
	SetFacing(dir vec.Vec3Float) error
	UpdateSettings(settings game.Settings) error
}

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	sim        Simulation
	codec      *protocol.ChunkCodec
	worldID    string
	port       string
	monitor    *ProcessMonitor
	httpServer *http.Server
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string                // адрес для запуска сервера, например ":8088"
	Simulation Simulation            // игровая сессия
	Codec      *protocol.ChunkCodec  // nil: бинарный формат чанков недоступен
	WorldID    string                // идентификатор мира для /api/server
	Registerer prometheus.Registerer // nil: глобальный регистр
	Logger     *logging.Logger
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("rest_api"))

	loggerMw := middleware.NewRequestLogger(config.Logger)
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:  router,
		sim:     config.Simulation,
		codec:   config.Codec,
		worldID: config.WorldID,
		port:    config.Port,
		monitor: NewProcessMonitor(),
		logger:  config.Logger,
	}

	server.setupRoutes()

	return server
}

// Handler возвращает http.Handler со всеми маршрутами
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/server", rs.handleServerInfo)
		api.GET("/player", rs.handlePlayer)
		api.POST("/input", rs.handleInput)
		api.GET("/settings", rs.handleGetSettings)
		api.PUT("/settings", rs.handleUpdateSettings)
		api.GET("/chunks", rs.handleChunks)
		api.GET("/chunks/:cx/:cz", rs.handleChunk)
	}

	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InputEvent: событие ввода в JSON
type InputEvent struct {
	Action  string `json:"action" binding:"required"`
	Pressed bool   `json:"pressed"`
}

// InputRequest содержит события ввода и, опционально, направление взгляда
type InputRequest struct {
	Events []InputEvent   `json:"events"`
	Facing *vec.Vec3Float `json:"facing,omitempty"`
}

// ChunkResponse: высоты резидентного чанка, индекс x + z*16
type ChunkResponse struct {
	ChunkX  int   `json:"cx"`
	ChunkZ  int   `json:"cz"`
	Heights []int `json:"heights"`
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// handleHealth возвращает состояние процесса
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"process":     rs.monitor.Snapshot(),
		"server_time": time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о сервере и мире
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	frame := rs.sim.Frame()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data: gin.H{
			"version":         Version,
			"name":            "Blockverse Simulation Server",
			"world_id":        rs.worldID,
			"seed":            rs.sim.Seed(),
			"tick":            frame.Tick,
			"resident_chunks": frame.ResidentChunks,
			"settings":        frame.Settings,
		},
	})
}

// handlePlayer возвращает последний снимок состояния игрока
func (rs *RestServer) handlePlayer(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние игрока",
		Data:    rs.sim.Frame(),
	})
}

// handleInput ставит события ввода в очередь следующего тика.
// Запрос применяется целиком или не применяется вовсе.
func (rs *RestServer) handleInput(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if len(req.Events) == 0 && req.Facing == nil {
		fail(c, http.StatusBadRequest, "Пустой запрос ввода")
		return
	}

	events := make([]input.Event, 0, len(req.Events))
	for _, ev := range req.Events {
		action, err := input.ParseAction(ev.Action)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		events = append(events, input.Event{Action: action, Pressed: ev.Pressed})
	}

	if req.Facing != nil {
		if err := rs.sim.SetFacing(*req.Facing); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	rs.sim.Submit(events...)

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Ввод принят",
		Data:    gin.H{"events": len(events)},
	})
}

// handleGetSettings возвращает текущие настройки
func (rs *RestServer) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Настройки",
		Data:    rs.sim.Frame().Settings,
	})
}

// handleUpdateSettings меняет FOV и дальность прорисовки
func (rs *RestServer) handleUpdateSettings(c *gin.Context) {
	var settings game.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if err := rs.sim.UpdateSettings(settings); err != nil {
		if errors.Is(err, game.ErrInvalidSettings) {
			fail(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Ошибка применения настроек")
		return
	}

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Настройки будут применены в следующем тике",
		Data:    settings,
	})
}

// handleChunks возвращает координаты резидентных чанков
func (rs *RestServer) handleChunks(c *gin.Context) {
	frame := rs.sim.Frame()
	keys := rs.sim.ResidentKeys()

	chunks := make([][2]int, 0, len(keys))
	for _, key := range keys {
		chunks = append(chunks, [2]int{key.X, key.Y})
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Резидентные чанки",
		Data: gin.H{
			"center":          [2]int{frame.CenterChunk.X, frame.CenterChunk.Y},
			"render_distance": frame.Settings.RenderDistance,
			"chunks":          chunks,
		},
	})
}

// handleChunk возвращает высоты чанка: JSON или сжатый бинарный формат (?format=binary)
func (rs *RestServer) handleChunk(c *gin.Context) {
	cx, errX := strconv.Atoi(c.Param("cx"))
	cz, errZ := strconv.Atoi(c.Param("cz"))
	if errX != nil || errZ != nil {
		fail(c, http.StatusBadRequest, "Координаты чанка должны быть целыми числами")
		return
	}

	key := vec.Vec2{X: cx, Y: cz}
	heights, ok := rs.sim.ChunkHeights(key)
	if !ok {
		fail(c, http.StatusNotFound, fmt.Sprintf("Чанк (%d,%d) не загружен", cx, cz))
		return
	}

	if c.Query("format") == "binary" {
		if rs.codec == nil {
			fail(c, http.StatusNotImplemented, "Бинарный формат недоступен")
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", rs.codec.EncodeChunk(key, heights))
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Высоты чанка",
		Data:    ChunkResponse{ChunkX: cx, ChunkZ: cz, Heights: heights[:]},
	})
}

// Start запускает REST сервер в отдельной горутине
func (rs *RestServer) Start() error {
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.log().Error("❌ Ошибка REST API сервера: %v", err)
		}
	}()

	rs.log().Info("✅ REST API сервер запущен на http://localhost%s", rs.port)
	rs.log().Info("📋 Доступные эндпоинты:")
	rs.log().Info("   GET  /health              - Проверка состояния")
	rs.log().Info("   GET  /metrics             - Метрики Prometheus")
	rs.log().Info("   GET  /api/player          - Снимок состояния игрока")
	rs.log().Info("   POST /api/input           - События ввода и направление взгляда")
	rs.log().Info("   PUT  /api/settings        - FOV и дальность прорисовки")
	rs.log().Info("   GET  /api/chunks/:cx/:cz  - Высоты резидентного чанка")
	return nil
}

// Stop останавливает REST сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.httpServer == nil {
		return nil
	}
	rs.log().Info("🛑 Остановка REST API сервера...")
	if err := rs.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("остановка REST API: %w", err)
	}
	return nil
}

func (rs *RestServer) log() *logging.Logger {
	if rs.logger != nil {
		return rs.logger
	}
	return logging.DefaultLogger()
}
