package ffmpeg

import (
	"context"
	"fmt"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// Mux writes opts.Output from the video and, when given, the audio track.
// The video stream is always copied. Without audio the whole file is
// stream-copied so the picture stays bit-identical.
func (e *Executor) Mux(ctx context.Context, opts MuxOptions) error {
	if opts.Video == "" || opts.Output == "" {
		return fmt.Errorf("%w: video and output paths are required", ErrMux)
	}

	e.logger.Info().
		Str("video", opts.Video).
		Str("audio", opts.Audio).
		Str("output", opts.Output).
		Msg("muxing output")

	runOpts := RunOptions{
		Args:            e.muxArgs(opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("mux output")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrMux, opts.Output, err)
	}
	return nil
}

func (e *Executor) muxArgs(opts MuxOptions) []string {
	video := ffmpeggo.Input(opts.Video)
	if opts.Audio == "" {
		return video.Output(opts.Output, ffmpeggo.KwArgs{"c": "copy"}).GetArgs()
	}

	audio := ffmpeggo.Input(opts.Audio)
	return ffmpeggo.Output(
		[]*ffmpeggo.Stream{video.Video(), audio.Audio()},
		opts.Output,
		ffmpeggo.KwArgs{
			"c:v":      "copy",
			"c:a":      e.audioCodec,
			"b:a":      e.audioBitrate,
			"shortest": "",
		},
	).GetArgs()
}
