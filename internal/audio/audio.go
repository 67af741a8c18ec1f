// Package audio builds the soundtrack of a slideshow: music files are looped
// until they cover the video, trimmed to its exact length and muxed in.
package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/alver/memory-ball-video/pkg/util"
)

// ErrAudioProbe is returned when a music file's duration cannot be read
var ErrAudioProbe = errors.New("failed to probe music file")

// Extensions are the accepted music types, matched case-insensitively
var Extensions = []string{".mp3", ".m4a", ".wav", ".aac"}

// Track is a probed music file
type Track struct {
	Path     string
	Duration time.Duration
}

// Discover lists the music files directly inside dir in lexical order. An
// empty or missing dir yields no files.
func Discover(dir string) ([]string, error) {
	if dir == "" || !util.DirExists(dir) {
		return nil, nil
	}
	files, err := util.ListFiles(dir, Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to read music folder %s: %w", dir, err)
	}
	return files, nil
}

// PlanPlayback returns the track indices to play, in order, wrapping back to
// the first track until the total reaches target. The last entry may run past
// target; the caller trims.
func PlanPlayback(durations []time.Duration, target time.Duration) ([]int, error) {
	if target <= 0 {
		return nil, fmt.Errorf("invalid target duration %v", target)
	}
	if len(durations) == 0 {
		return nil, fmt.Errorf("no tracks to plan")
	}
	for i, d := range durations {
		if d <= 0 {
			return nil, fmt.Errorf("track %d has no duration", i)
		}
	}

	var (
		plan  []int
		total time.Duration
	)
	for i := 0; total < target; i = (i + 1) % len(durations) {
		plan = append(plan, i)
		total += durations[i]
	}
	return plan, nil
}

// Expand maps a plan onto the track paths
func Expand(tracks []Track, plan []int) []string {
	paths := make([]string, len(plan))
	for i, idx := range plan {
		paths[i] = tracks[idx].Path
	}
	return paths
}
