package analyzer

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatNanos renders a nanosecond duration with a unit suited to its size.
func FormatNanos(value int64) string {
	d := time.Duration(value)
	abs := d
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case abs >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	case abs >= time.Microsecond:
		return fmt.Sprintf("%.2fus", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// FormatMillis is FormatNanos for a millisecond value.
func FormatMillis(ms float64) string {
	return FormatNanos(int64(math.Round(ms * float64(time.Millisecond))))
}

// FormatCount renders a count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

func nanosToMillis(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}
