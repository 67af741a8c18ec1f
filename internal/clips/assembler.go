package clips

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/alver/memory-ball-video/internal/transitions"
	"github.com/alver/memory-ball-video/internal/workspace"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options controls clip rendering and merging
type Options struct {
	Duration   time.Duration
	Transition time.Duration
	Mode       ffmpeg.ScaleMode
	Size       int
	FPS        int
	Workers    int
}

// Assembler renders and merges clips inside a workspace
type Assembler struct {
	logger      zerolog.Logger
	engine      Engine
	workspace   *workspace.Workspace
	transitions *transitions.Registry
	rng         *rand.Rand
	opts        Options
}

// NewAssembler creates an assembler. A nil registry uses every transition.
func NewAssembler(logger zerolog.Logger, engine Engine, ws *workspace.Workspace, reg *transitions.Registry, rng *rand.Rand, opts Options) *Assembler {
	if reg == nil {
		reg = transitions.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Assembler{
		logger:      logging.WithComponent(logger, "clips"),
		engine:      engine,
		workspace:   ws,
		transitions: reg,
		rng:         rng,
		opts:        opts,
	}
}

// Assemble renders every image and reduces the clips to a single timeline.
// Intermediate files are released as soon as their parent exists, so on
// success only the timeline file is left in the workspace.
func (a *Assembler) Assemble(ctx context.Context, images []string) (*Timeline, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to assemble")
	}
	if err := ValidateTiming(a.opts.Duration, a.opts.Transition); err != nil {
		return nil, err
	}

	leaves, err := a.renderAll(ctx, images)
	if err != nil {
		return nil, err
	}

	timeline := &Timeline{Clips: len(leaves)}
	nodes := leaves
	for round := 1; len(nodes) > 1; round++ {
		next, stats, err := a.mergeRound(ctx, round, nodes)
		if err != nil {
			return nil, err
		}
		timeline.Rounds = append(timeline.Rounds, stats)
		timeline.Merges += stats.Merges
		nodes = next
	}

	final := nodes[0]
	duration := final.Duration
	if !final.IsMerge() {
		// A single still has no merge arithmetic to trust, ask the file
		duration, err = a.engine.ProbeDuration(ctx, final.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to probe clip %s: %w", filepath.Base(final.Path), err)
		}
	}
	timeline.Path = final.Path
	timeline.Duration = duration

	a.logger.Info().
		Int("clips", timeline.Clips).
		Int("merges", timeline.Merges).
		Int("rounds", len(timeline.Rounds)).
		Dur("duration", timeline.Duration).
		Msg("timeline assembled")

	return timeline, nil
}

// renderAll turns each image into a clip, in list order
func (a *Assembler) renderAll(ctx context.Context, images []string) ([]*Clip, error) {
	a.logger.Info().
		Int("photos", len(images)).
		Dur("duration", a.opts.Duration).
		Str("mode", string(a.opts.Mode)).
		Msg("rendering photos")

	leaves := make([]*Clip, 0, len(images))
	for i, img := range images {
		out := a.workspace.ClipPath(i)
		err := a.engine.RenderImage(ctx, ffmpeg.StillOptions{
			Image:    img,
			Output:   out,
			Duration: a.opts.Duration,
			Mode:     a.opts.Mode,
			Size:     a.opts.Size,
			FPS:      a.opts.FPS,

			ProgressFunc: ffmpeg.LogProgress(a.logger, filepath.Base(out)),
		})
		if err != nil {
			return nil, fmt.Errorf("photo %d/%d (%s): %w", i+1, len(images), filepath.Base(img), err)
		}

		done := a.workspace.MarkRendered()
		a.logger.Info().
			Int("photo", done).
			Int("total", len(images)).
			Str("image", filepath.Base(img)).
			Msg("photo rendered")

		leaves = append(leaves, &Clip{Path: out, Duration: a.opts.Duration, Index: i})
	}
	return leaves, nil
}

// mergeRound blends adjacent pairs of nodes. Pairs run concurrently up to the
// worker limit; an odd trailing node is carried into the next round as is.
func (a *Assembler) mergeRound(ctx context.Context, round int, nodes []*Clip) ([]*Clip, RoundStats, error) {
	pairs := len(nodes) / 2
	stats := RoundStats{
		Number:  round,
		Inputs:  len(nodes),
		Merges:  pairs,
		Carried: len(nodes)%2 == 1,
	}

	a.logger.Info().
		Int("round", round).
		Int("clips", len(nodes)).
		Int("merges", pairs).
		Msg("merge round")

	// Draw before fanning out so the sequence depends only on the seed
	kinds := make([]transitions.Kind, pairs)
	for i := range kinds {
		kinds[i] = a.transitions.Pick(a.rng)
	}

	next := make([]*Clip, (len(nodes)+1)/2)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i := 0; i < pairs; i++ {
		g.Go(func() error {
			merged, err := a.merge(gctx, round, i, nodes[2*i], nodes[2*i+1], kinds[i])
			if err != nil {
				return err
			}
			next[i] = merged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, fmt.Errorf("merge round %d: %w", round, err)
	}

	if stats.Carried {
		next[len(next)-1] = nodes[len(nodes)-1]
	}
	return next, stats, nil
}

// merge blends first into second using the actual durations of both files
func (a *Assembler) merge(ctx context.Context, round, index int, first, second *Clip, kind transitions.Kind) (*Clip, error) {
	d1, err := a.engine.ProbeDuration(ctx, first.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", filepath.Base(first.Path), err)
	}
	d2, err := a.engine.ProbeDuration(ctx, second.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", filepath.Base(second.Path), err)
	}

	offset, duration, err := mergeTiming(d1, d2, a.opts.Transition)
	if err != nil {
		return nil, fmt.Errorf("%s + %s: %w", filepath.Base(first.Path), filepath.Base(second.Path), err)
	}

	out := a.workspace.MergePath(round, index)
	err = a.engine.Blend(ctx, ffmpeg.BlendOptions{
		First:      first.Path,
		Second:     second.Path,
		Output:     out,
		Transition: string(kind),
		Overlap:    a.opts.Transition,
		Offset:     offset,
		Duration:   duration,

		ProgressFunc: ffmpeg.LogProgress(a.logger, filepath.Base(out)),
	})
	if err != nil {
		return nil, err
	}

	a.workspace.Release(first.Path, second.Path)
	a.workspace.MarkMerged()

	a.logger.Debug().
		Int("round", round).
		Int("pair", index).
		Str("transition", string(kind)).
		Dur("offset", offset).
		Dur("duration", duration).
		Msg("clips merged")

	return &Clip{
		Path:       out,
		Duration:   duration,
		Index:      index,
		Round:      round,
		Transition: kind,
		Offset:     offset,
	}, nil
}
