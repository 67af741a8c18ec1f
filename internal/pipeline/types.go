package pipeline

import (
	"time"

	"github.com/alver/memory-ball-video/internal/ffmpeg"
)

// Options configures one slideshow build
type Options struct {
	PhotoDir string
	MusicDir string
	Output   string
	TempDir  string

	// First lists photo filenames to place at the start, in order
	First []string

	Duration    time.Duration
	Transition  time.Duration
	Transitions []string
	Mode        ffmpeg.ScaleMode
	Size        int
	FPS         int
	Workers     int
}

// Result summarises a finished build
type Result struct {
	RunID   string
	Output  string
	Elapsed time.Duration

	Images  int
	Fixed   int
	Random  int
	Missing []string

	Merges   int
	Rounds   int
	Duration time.Duration

	Passthrough bool
	Plays       int

	PublishedKey string
}
