package nerdstats

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/mineradorx/relay/pkg/format"
)

/*
	NerdStats is a snapshot of Go runtime statistics for the process report
	at shutdown and /internal/process. Goroutine thresholds are tuned for a
	gateway whose abandoned local workers each hold one goroutine, so a
	steadily climbing count usually means a wedged model.

	See: https://pkg.go.dev/runtime#MemStats
*/

type NerdStats struct {
	LastGC time.Time

	BuildInfo *debug.BuildInfo

	GoVersion string

	HeapAlloc    uint64
	HeapSys      uint64
	HeapInuse    uint64
	HeapReleased uint64
	StackInuse   uint64
	TotalAlloc   uint64
	Mallocs      uint64
	Frees        uint64

	TotalGCTime   time.Duration
	Uptime        time.Duration
	GCCPUFraction float64

	NumGoroutines int
	NumCPU        int
	GOMAXPROCS    int
	NumGC         uint32
}

func Snapshot(startTime time.Time) *NerdStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &NerdStats{
		HeapAlloc:     m.HeapAlloc,
		HeapSys:       m.HeapSys,
		HeapInuse:     m.HeapInuse,
		HeapReleased:  m.HeapReleased,
		StackInuse:    m.StackInuse,
		TotalAlloc:    m.TotalAlloc,
		Mallocs:       m.Mallocs,
		Frees:         m.Frees,
		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		GoVersion:     runtime.Version(),
		Uptime:        time.Since(startTime),
	}

	if m.LastGC > 0 {
		stats.LastGC = time.Unix(0, int64(m.LastGC))
		stats.TotalGCTime = time.Duration(m.PauseTotalNs)
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		stats.BuildInfo = info
	}

	return stats
}

func (ps *NerdStats) GetMemoryPressure() string {
	if ps.HeapSys == 0 {
		return "LOW"
	}
	heapUsageRatio := float64(ps.HeapInuse) / float64(ps.HeapSys)
	allocsPerFree := float64(ps.Mallocs) / float64(ps.Frees+1)

	if heapUsageRatio > 0.9 && allocsPerFree > 1.5 {
		return "HIGH"
	} else if heapUsageRatio > 0.7 || allocsPerFree > 1.2 {
		return "MEDIUM"
	}
	return "LOW"
}

func (ps *NerdStats) GetGoroutineHealthStatus() string {
	switch {
	case ps.NumGoroutines > 500:
		return "CONCERNING"
	case ps.NumGoroutines > 200:
		return "ELEVATED"
	case ps.NumGoroutines > 50:
		return "NORMAL"
	default:
		return "HEALTHY"
	}
}

func (ps *NerdStats) GetBuildInfoSummary() map[string]string {
	summary := make(map[string]string)
	if ps.BuildInfo == nil {
		return summary
	}

	summary["path"] = ps.BuildInfo.Path
	summary["main_version"] = ps.BuildInfo.Main.Version

	for _, setting := range ps.BuildInfo.Settings {
		switch setting.Key {
		case "CGO_ENABLED", "GOARCH", "GOOS", "vcs.revision", "vcs.time":
			summary[setting.Key] = setting.Value
		}
	}
	return summary
}

// NetObjects is mallocs minus frees, clamped so it never wraps
func (ps *NerdStats) NetObjects() int64 {
	if ps.Frees >= ps.Mallocs {
		return 0
	}
	return int64(ps.Mallocs - ps.Frees)
}

func CalculateAverageGCPause(stats *NerdStats) string {
	if stats.NumGC == 0 {
		return "N/A"
	}
	avgPause := stats.TotalGCTime / time.Duration(stats.NumGC)
	return format.Duration(avgPause)
}
