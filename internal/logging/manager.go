package logging

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Компоненты сервера с отдельными логгерами
const (
	ComponentServer   = "server"
	ComponentWorld    = "world"
	ComponentStorage  = "storage"
	ComponentAPI      = "api"
	ComponentEventBus = "eventbus"
)

// LoggerManager выдаёт логгеры компонентов. Пока файлы не включены через
// EnableFiles, логгеры пишут только в консоль.
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[string]*Logger

	files        bool
	consoleLevel LogLevel
	fileLevel    LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

func newLoggerManager() *LoggerManager {
	return &LoggerManager{
		loggers:      make(map[string]*Logger),
		consoleLevel: INFO,
		fileLevel:    TRACE,
	}
}

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = newLoggerManager()
	})
	return globalManager
}

// EnableFiles включает файлы logs/<component>_<timestamp>.log для новых логгеров
func (lm *LoggerManager) EnableFiles() {
	lm.mu.Lock()
	lm.files = true
	lm.mu.Unlock()
}

// GetLogger возвращает логгер компонента, создавая его при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.RLock()
	if logger, exists := lm.loggers[component]; exists {
		lm.mu.RUnlock()
		return logger, nil
	}
	lm.mu.RUnlock()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger, nil
	}

	logger := NewWriterLogger(component, os.Stdout, lm.consoleLevel)
	if lm.files {
		var err error
		logger, err = NewLogger(component)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for %s: %w", component, err)
		}
	}
	logger.SetLevels(lm.consoleLevel, lm.fileLevel)

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный fallback при ошибке файла
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return NewWriterLogger(component, os.Stdout, INFO)
	}
	return logger
}

// SetLevels задаёт пороги всем существующим и будущим логгерам компонентов
func (lm *LoggerManager) SetLevels(consoleLevel, fileLevel LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.consoleLevel, lm.fileLevel = consoleLevel, fileLevel
	for _, logger := range lm.loggers {
		logger.SetLevels(consoleLevel, fileLevel)
	}
}

// CloseAll закрывает все логгеры
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", component, err)
		}
	}
	lm.loggers = make(map[string]*Logger)
	return lastErr
}

// ListComponents возвращает отсортированный список компонентов с логгерами
func (lm *LoggerManager) ListComponents() []string {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// Удобные функции для получения логгеров
func GetComponentLogger(component string) *Logger {
	return GetLoggerManager().MustGetLogger(component)
}

func GetWorldLogger() *Logger {
	return GetComponentLogger(ComponentWorld)
}

func GetStorageLogger() *Logger {
	return GetComponentLogger(ComponentStorage)
}

func GetAPILogger() *Logger {
	return GetComponentLogger(ComponentAPI)
}

func GetEventBusLogger() *Logger {
	return GetComponentLogger(ComponentEventBus)
}
