package api

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats: снимок ресурсов процесса симуляции
type ProcessStats struct {
	Uptime     string  `json:"uptime"`
	RSSMB      float64 `json:"rss_mb"`
	HeapMB     float64 `json:"heap_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
	NumGC      uint32  `json:"num_gc"`
}

// ProcessMonitor собирает ресурсы процесса для /health и /api/server
type ProcessMonitor struct {
	started time.Time

	once sync.Once
	proc *process.Process
}

// NewProcessMonitor создаёт монитор, отсчитывающий uptime с текущего момента
func NewProcessMonitor() *ProcessMonitor {
	return &ProcessMonitor{started: time.Now()}
}

func (pm *ProcessMonitor) process() *process.Process {
	pm.once.Do(func() {
		proc, err := process.NewProcess(int32(os.Getpid()))
		if err == nil {
			pm.proc = proc
		}
	})
	return pm.proc
}

// Snapshot возвращает текущие показатели; недоступные значения остаются нулевыми
func (pm *ProcessMonitor) Snapshot() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		Uptime:     formatUptime(time.Since(pm.started)),
		HeapMB:     toMB(m.HeapAlloc),
		Goroutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
	}

	if proc := pm.process(); proc != nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			stats.RSSMB = toMB(mem.RSS)
		}
		if pct, err := proc.CPUPercent(); err == nil {
			stats.CPUPercent = pct
			return stats
		}
	}

	// Процесс недоступен (контейнер без /proc): берём загрузку системы
	if pcts, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pcts) > 0 {
		stats.CPUPercent = pcts[0]
	}
	return stats
}

func toMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}

// formatUptime форматирует длительность как "1д 2ч 3м 4с", опуская старшие нули
func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	days, rest := total/86400, total%86400
	hours, rest := rest/3600, rest%3600
	minutes, seconds := rest/60, rest%60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}
