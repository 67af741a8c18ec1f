package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatDuration converts time.Duration to ffmpeg timestamp format. Fields
// are split after rounding to whole milliseconds so seconds never read 60.
func FormatDuration(d time.Duration) string {
	ms := d.Round(time.Millisecond).Milliseconds()
	hours := ms / 3600000
	minutes := ms / 60000 % 60
	secs := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, ms%1000)
}

// FormatSeconds renders d as plain seconds with millisecond precision, the
// form filter options such as xfade duration/offset expect.
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// Seconds converts a float second count (as used on the command line and in
// config files) to a time.Duration rounded to the nearest microsecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1e6)) * time.Microsecond
}

// ParseSeconds converts the decimal seconds ffprobe reports into a duration.
func ParseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds value %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid seconds value %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}
