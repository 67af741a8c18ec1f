// Package ffmpegtest provides an in-memory stand-in for the ffmpeg Executor.
// It writes empty placeholder files so path ownership and cleanup behave as
// with real media, and tracks the duration of every file it produced.
package ffmpegtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/pkg/util"
)

// Engine records every call and answers probes from its duration table
type Engine struct {
	// Adjust, when set, maps the nominal still duration to the duration the
	// "encoder" actually produced for that image.
	Adjust func(image string, nominal time.Duration) time.Duration

	// Fail, when set, is consulted before every operation; a non-nil return
	// aborts the call with that error wrapped in the matching sentinel.
	Fail func(op, path string) error

	// NoPartial makes a failing Mux leave the output path untouched, as when
	// ffmpeg fails before opening it.
	NoPartial bool

	mu        sync.Mutex
	durations map[string]time.Duration
	Renders   []ffmpeg.StillOptions
	Blends    []ffmpeg.BlendOptions
	Concats   []ffmpeg.ConcatOptions
	Muxes     []ffmpeg.MuxOptions
	Probes    []string
}

// New returns an empty fake engine
func New() *Engine {
	return &Engine{durations: make(map[string]time.Duration)}
}

// SetDuration registers an externally created file (e.g. a music track)
func (e *Engine) SetDuration(path string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.durations[path] = d
}

// Duration reports the recorded duration of path
func (e *Engine) Duration(path string) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.durations[path]
	return d, ok
}

// Counts returns how many renders and blends ran so far
func (e *Engine) Counts() (renders, blends int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Renders), len(e.Blends)
}

func (e *Engine) fail(op, path string, sentinel error) error {
	if e.Fail == nil {
		return nil
	}
	if err := e.Fail(op, path); err != nil {
		return fmt.Errorf("%w: %s: %w", sentinel, path, err)
	}
	return nil
}

func (e *Engine) produce(path string, d time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return err
	}
	e.durations[path] = d
	return nil
}

// report sends one final progress block for an operation that produced d
func report(fn ffmpeg.ProgressFunc, d time.Duration) {
	if fn == nil {
		return
	}
	fn(&ffmpeg.Progress{
		Frame: int(d.Seconds() * ffmpeg.DefaultFPS),
		FPS:   ffmpeg.DefaultFPS,
		Time:  util.FormatDuration(d),
		Speed: "1x",
	})
}

// ProbeDuration implements the engine probe
func (e *Engine) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := e.fail("probe", path, ffmpeg.ErrProbe); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Probes = append(e.Probes, path)
	d, ok := e.durations[path]
	if !ok {
		return 0, fmt.Errorf("%w: %s: no such media", ffmpeg.ErrProbe, path)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s: no duration reported", ffmpeg.ErrProbe, path)
	}
	return d, nil
}

// RenderImage implements the still renderer
func (e *Engine) RenderImage(ctx context.Context, opts ffmpeg.StillOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.fail("render", opts.Image, ffmpeg.ErrRender); err != nil {
		return err
	}

	d := opts.Duration
	if e.Adjust != nil {
		d = e.Adjust(opts.Image, opts.Duration)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Renders = append(e.Renders, opts)
	if err := e.produce(opts.Output, d); err != nil {
		return err
	}
	report(opts.ProgressFunc, d)
	return nil
}

// Blend implements the transition blender
func (e *Engine) Blend(ctx context.Context, opts ffmpeg.BlendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.fail("blend", opts.Output, ffmpeg.ErrBlend); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	first, ok1 := e.durations[opts.First]
	second, ok2 := e.durations[opts.Second]
	if !ok1 || !ok2 {
		return fmt.Errorf("%w: unknown input %s or %s", ffmpeg.ErrBlend, opts.First, opts.Second)
	}
	if opts.Overlap > first || opts.Overlap > second {
		return fmt.Errorf("%w: overlap %v exceeds input duration", ffmpeg.ErrBlend, opts.Overlap)
	}
	e.Blends = append(e.Blends, opts)
	if err := e.produce(opts.Output, opts.Duration); err != nil {
		return err
	}
	report(opts.ProgressFunc, opts.Duration)
	return nil
}

// ConcatAudio implements audio concatenation
func (e *Engine) ConcatAudio(ctx context.Context, opts ffmpeg.ConcatOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.fail("concat", opts.Output, ffmpeg.ErrConcat); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Concats = append(e.Concats, opts)
	if err := e.produce(opts.Output, opts.Duration); err != nil {
		return err
	}
	report(opts.ProgressFunc, opts.Duration)
	return nil
}

// Mux implements the final mux; the output inherits the video duration
func (e *Engine) Mux(ctx context.Context, opts ffmpeg.MuxOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.fail("mux", opts.Output, ffmpeg.ErrMux); err != nil {
		// Leave a partial file behind the way a crashed ffmpeg would
		if !e.NoPartial {
			_ = os.WriteFile(opts.Output, []byte("partial"), 0644)
		}
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Muxes = append(e.Muxes, opts)
	d := e.durations[opts.Video]
	if err := e.produce(opts.Output, d); err != nil {
		return err
	}
	report(opts.ProgressFunc, d)
	return nil
}
