package format

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
)

const (
	zeroPercent = "0%"
	zeroLatency = "0ms"
	neverUsed   = "never"
)

// Bytes renders a byte count with binary units (KiB, MiB...)
func Bytes(bytes uint64) string {
	return units.BytesSize(float64(bytes))
}

// Duration formats durations over a second as 1h2m3s, shorter ones as-is
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// ServicesUp renders "available/total"
func ServicesUp(available, total int) string {
	return fmt.Sprintf("%d/%d", available, total)
}

func Percentage(value float64) string {
	if value == 0 {
		return zeroPercent
	}
	if value == 100.0 {
		return "100%"
	}
	return fmt.Sprintf("%.1f%%", value)
}

// Latency renders milliseconds, switching to seconds from 1000ms. Local
// models routinely take tens of seconds so both ends matter.
func Latency(ms int64) string {
	if ms <= 0 {
		return zeroLatency
	}
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000.0)
	}
	return fmt.Sprintf("%dms", ms)
}

func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return neverUsed
	}
	return units.HumanDuration(time.Since(t)) + " ago"
}
