package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alver/memory-ball-video/pkg/util"
)

// RenderImage loops a single still image into a silent clip of exactly
// opts.Duration, scaled onto a square frame according to opts.Mode.
func (e *Executor) RenderImage(ctx context.Context, opts StillOptions) error {
	if opts.Image == "" || opts.Output == "" {
		return fmt.Errorf("%w: image and output paths are required", ErrRender)
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("%w: %s: invalid clip duration %v", ErrRender, opts.Image, opts.Duration)
	}

	e.logger.Debug().
		Str("image", opts.Image).
		Str("output", opts.Output).
		Dur("duration", opts.Duration).
		Str("mode", string(opts.Mode)).
		Msg("rendering still")

	runOpts := RunOptions{
		Args:            e.stillArgs(opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("still render")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrRender, opts.Image, err)
	}
	return nil
}

func (e *Executor) stillArgs(opts StillOptions) []string {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	return []string{
		"-loop", "1",
		"-i", opts.Image,
		"-t", util.FormatDuration(opts.Duration),
		"-vf", StillFilter(opts.Mode, size, fps),
		"-c:v", DefaultVideoCodec,
		"-preset", e.preset,
		"-crf", strconv.Itoa(e.crf),
		"-pix_fmt", DefaultPixelFormat,
		"-an",
		opts.Output,
	}
}
