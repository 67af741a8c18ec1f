package ffmpeg

import (
	"context"
	"fmt"
	"strconv"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/alver/memory-ball-video/pkg/util"
)

// Blend cross-fades opts.First into opts.Second with the named xfade
// transition, writing a clip of exactly opts.Duration.
func (e *Executor) Blend(ctx context.Context, opts BlendOptions) error {
	if err := validateBlendOptions(opts); err != nil {
		return fmt.Errorf("%w: %w", ErrBlend, err)
	}

	e.logger.Debug().
		Str("first", opts.First).
		Str("second", opts.Second).
		Str("output", opts.Output).
		Str("transition", opts.Transition).
		Dur("offset", opts.Offset).
		Dur("duration", opts.Duration).
		Msg("blending clips")

	runOpts := RunOptions{
		Args:            e.blendArgs(opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("blend output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %s + %s: %w", ErrBlend, opts.First, opts.Second, err)
	}
	return nil
}

// blendArgs builds the two-input xfade graph
func (e *Executor) blendArgs(opts BlendOptions) []string {
	first := ffmpeggo.Input(opts.First)
	second := ffmpeggo.Input(opts.Second)

	return ffmpeggo.Filter(
		[]*ffmpeggo.Stream{first, second},
		"xfade",
		ffmpeggo.Args{},
		ffmpeggo.KwArgs{
			"transition": opts.Transition,
			"duration":   util.FormatSeconds(opts.Overlap),
			"offset":     util.FormatSeconds(opts.Offset),
		},
	).Output(opts.Output, ffmpeggo.KwArgs{
		"c:v":     DefaultVideoCodec,
		"preset":  e.preset,
		"crf":     strconv.Itoa(e.crf),
		"pix_fmt": DefaultPixelFormat,
		"t":       util.FormatSeconds(opts.Duration),
	}).GetArgs()
}

// validateBlendOptions rejects graphs ffmpeg would silently mangle
func validateBlendOptions(opts BlendOptions) error {
	if opts.First == "" || opts.Second == "" {
		return fmt.Errorf("both input clips are required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Transition == "" {
		return fmt.Errorf("transition is required")
	}
	if opts.Overlap <= 0 {
		return fmt.Errorf("overlap must be positive, got %v", opts.Overlap)
	}
	if opts.Offset < 0 {
		return fmt.Errorf("negative offset %v: overlap exceeds first clip", opts.Offset)
	}
	if opts.Duration < opts.Offset+opts.Overlap {
		return fmt.Errorf("output duration %v shorter than offset+overlap %v", opts.Duration, opts.Offset+opts.Overlap)
	}
	return nil
}
