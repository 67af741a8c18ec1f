// Package clips turns an ordered image list into one video timeline. Each
// image is rendered to a fixed-length clip, then adjacent clips are merged
// pairwise with a transition, round by round, until one remains.
package clips

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/internal/transitions"
)

// ErrConfiguration is returned when the transition does not fit inside the
// clips it joins
var ErrConfiguration = errors.New("invalid timing configuration")

// Engine is the subset of the media engine the assembler drives
type Engine interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	RenderImage(ctx context.Context, opts ffmpeg.StillOptions) error
	Blend(ctx context.Context, opts ffmpeg.BlendOptions) error
}

// Clip is a node of the merge tree: a rendered still when Round is zero,
// otherwise the blend of two earlier nodes.
type Clip struct {
	Path     string
	Duration time.Duration
	Index    int
	Round    int

	// Set on merged nodes only
	Transition transitions.Kind
	Offset     time.Duration
}

// IsMerge reports whether the clip was produced by a blend
func (c *Clip) IsMerge() bool {
	return c.Round > 0
}

// RoundStats summarises one reduction pass
type RoundStats struct {
	Number  int
	Inputs  int
	Merges  int
	Carried bool
}

// Timeline is the result of a full assembly
type Timeline struct {
	Path     string
	Duration time.Duration
	Clips    int
	Merges   int
	Rounds   []RoundStats
}

// ValidateTiming checks the static relation between the per-photo duration
// and the transition duration. It must pass before anything is rendered.
func ValidateTiming(photo, transition time.Duration) error {
	if photo <= 0 {
		return fmt.Errorf("%w: photo duration must be positive, got %v", ErrConfiguration, photo)
	}
	if transition <= 0 {
		return fmt.Errorf("%w: transition duration must be positive, got %v", ErrConfiguration, transition)
	}
	if transition >= photo {
		return fmt.Errorf("%w: transition duration %v must be shorter than photo duration %v",
			ErrConfiguration, transition, photo)
	}
	return nil
}

// ExpectedDuration is the length of a timeline built from clips of the
// given actual durations joined by transitions of length t
func ExpectedDuration(durations []time.Duration, t time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total - time.Duration(len(durations)-1)*t
}

// mergeTiming returns the blend offset and output length for a followed by b
func mergeTiming(a, b, t time.Duration) (offset, out time.Duration, err error) {
	if t >= a || t >= b {
		return 0, 0, fmt.Errorf("%w: transition %v does not fit clips of %v and %v",
			ErrConfiguration, t, a, b)
	}
	return a - t, a + b - t, nil
}
