package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/alver/memory-ball-video/internal/audio"
	"github.com/alver/memory-ball-video/internal/clips"
	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/alver/memory-ball-video/internal/photos"
	"github.com/alver/memory-ball-video/internal/transitions"
	"github.com/alver/memory-ball-video/internal/workspace"
	"github.com/alver/memory-ball-video/pkg/util"
	"github.com/rs/zerolog"
)

// Engine is the media engine surface a full build needs
type Engine interface {
	clips.Engine
	audio.Engine
}

// Uploader publishes a finished video and returns where it went
type Uploader interface {
	Publish(ctx context.Context, runID, file string) (string, error)
}

// Pipeline orchestrates the entire slideshow workflow
type Pipeline struct {
	logger   zerolog.Logger
	engine   Engine
	rng      *rand.Rand
	uploader Uploader
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, engine Engine, rng *rand.Rand) *Pipeline {
	if rng == nil {
		rng = NewRand(0)
	}
	return &Pipeline{
		logger: logging.WithComponent(logger, "pipeline"),
		engine: engine,
		rng:    rng,
	}
}

// WithUploader enables publishing after a successful build
func (p *Pipeline) WithUploader(u Uploader) *Pipeline {
	p.uploader = u
	return p
}

// NewRand returns the random source for a run. A zero seed draws a fresh
// seed so every run differs.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Run builds the slideshow described by opts. The scratch directory is
// removed on every exit path.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	// Stage 0: reject timing that can never merge before touching any file
	if err := clips.ValidateTiming(opts.Duration, opts.Transition); err != nil {
		return nil, err
	}
	if opts.Output == "" {
		return nil, fmt.Errorf("output path cannot be empty")
	}
	registry, err := transitions.FromNames(opts.Transitions)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("photos", opts.PhotoDir).
		Str("music", opts.MusicDir).
		Str("output", opts.Output).
		Dur("duration", opts.Duration).
		Dur("transition", opts.Transition).
		Str("mode", string(opts.Mode)).
		Msg("starting slideshow pipeline")

	// Stage 1: resolve photo order
	list, err := photos.NewBuilder(p.logger, p.rng).Build(opts.PhotoDir, opts.First)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.New(opts.TempDir, p.logger)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	// Stage 2: render and merge clips
	assembler := clips.NewAssembler(p.logger, p.engine, ws, registry, p.rng, clips.Options{
		Duration:   opts.Duration,
		Transition: opts.Transition,
		Mode:       opts.Mode,
		Size:       opts.Size,
		FPS:        opts.FPS,
		Workers:    opts.Workers,
	})
	timeline, err := assembler.Assemble(ctx, list.Paths())
	if err != nil {
		return nil, fmt.Errorf("clip assembly failed: %w", err)
	}

	// Stage 3: the soundtrack follows the file, not the arithmetic
	videoDuration, err := p.engine.ProbeDuration(ctx, timeline.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe timeline: %w", err)
	}
	if videoDuration != timeline.Duration {
		p.logger.Debug().
			Dur("expected", timeline.Duration).
			Dur("actual", videoDuration).
			Msg("timeline duration drift")
	}

	// Stage 4: soundtrack and final mux
	if err := util.EnsureDir(filepath.Dir(opts.Output)); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	composed, err := audio.NewCompositor(p.logger, p.engine, ws).Compose(ctx, timeline.Path, videoDuration, opts.MusicDir, opts.Output)
	if err != nil {
		return nil, fmt.Errorf("audio composition failed: %w", err)
	}

	result := &Result{
		RunID:       ws.ID,
		Output:      composed.Output,
		Images:      list.Len(),
		Fixed:       list.Fixed,
		Random:      list.Random(),
		Missing:     list.Missing,
		Merges:      timeline.Merges,
		Rounds:      len(timeline.Rounds),
		Duration:    videoDuration,
		Passthrough: composed.Passthrough,
		Plays:       len(composed.Plan),
	}

	// Stage 5: optional upload
	if p.uploader != nil {
		key, err := p.uploader.Publish(ctx, ws.ID, composed.Output)
		if err != nil {
			return nil, fmt.Errorf("publish failed: %w", err)
		}
		result.PublishedKey = key
	}

	result.Elapsed = time.Since(start)
	p.logger.Info().
		Str("output", result.Output).
		Int("images", result.Images).
		Int("fixed", result.Fixed).
		Int("random", result.Random).
		Int("merges", result.Merges).
		Int("rounds", result.Rounds).
		Str("duration", util.FormatDuration(result.Duration)).
		Bool("music", !result.Passthrough).
		Str("published", result.PublishedKey).
		Dur("elapsed", result.Elapsed).
		Msg("slideshow complete")

	return result, nil
}
