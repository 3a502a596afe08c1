package download

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// shortsMbps is the assumed bitrate of a rendered clip before any real
// sizes are known.
const shortsMbps = 8.0

func estimateBytesFromDuration(durationSec, mbps float64) int64 {
	if durationSec <= 0 || mbps <= 0 {
		return 0
	}
	return int64(math.Round(durationSec * mbps * 1_000_000 / 8))
}

// transferTime is how long n bytes take at mbps megabits per second.
func transferTime(n int64, mbps float64) time.Duration {
	if n <= 0 || mbps <= 0 {
		return 0
	}
	secs := float64(n) * 8 / (mbps * 1_000_000)
	return time.Duration(secs * float64(time.Second))
}

// estimateTotalETA is "" while the rate or the estimate is unknown.
func estimateTotalETA(totalBytes, doneBytes int64, mbps float64) string {
	switch {
	case totalBytes <= 0 || mbps <= 0:
		return ""
	case doneBytes >= totalBytes:
		return "0m"
	}
	return formatETA(transferTime(totalBytes-doneBytes, mbps))
}

// formatETA rounds to whole minutes: "<1m", "12m", "2h", "1h 30m".
func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return "<1m"
	}
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

// FormatBytes renders n with binary units, e.g. "12.5 MiB".
func FormatBytes(n int64) string {
	return formatBytesIEC(n)
}

func formatBytesIEC(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(iecUnits) {
		value /= 1024
		unit++
	}
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + iecUnits[unit-1]
}

var iecUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
