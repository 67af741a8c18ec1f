package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alver/memory-ball-video/pkg/util"
)

// ConcatAudio joins opts.Inputs end to end with the concat demuxer and
// hard-trims the result to opts.Duration, encoding to the configured audio
// codec. Video streams (cover art) are dropped.
func (e *Executor) ConcatAudio(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("%w: no input files provided", ErrConcat)
	}
	if opts.Output == "" {
		return fmt.Errorf("%w: output path is required", ErrConcat)
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("%w: invalid target duration %v", ErrConcat, opts.Duration)
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Dur("duration", opts.Duration).
		Msg("concatenating audio")

	listFile, cleanup, err := e.createConcatFile(opts.Inputs, opts.ListFile)
	if err != nil {
		return fmt.Errorf("%w: failed to create concat file: %w", ErrConcat, err)
	}
	defer cleanup()

	runOpts := RunOptions{
		Args:            e.concatArgs(listFile, opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrConcat, opts.Output, err)
	}
	return nil
}

func (e *Executor) concatArgs(listFile string, opts ConcatOptions) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vn",
		"-t", util.FormatDuration(opts.Duration),
		"-c:a", e.audioCodec,
		"-b:a", e.audioBitrate,
		opts.Output,
	}
}

// createConcatFile writes the demuxer file list. When path is empty a
// temporary file is created and removed by the returned cleanup.
func (e *Executor) createConcatFile(inputs []string, path string) (string, func(), error) {
	var (
		f   *os.File
		err error
	)
	cleanup := func() {}
	if path == "" {
		f, err = os.CreateTemp("", "memoryball-concat-*.txt")
		if err == nil {
			cleanup = func() { _ = os.Remove(f.Name()) }
		}
	} else {
		f, err = os.Create(path)
	}
	if err != nil {
		return "", cleanup, err
	}
	defer f.Close()

	if err := writeConcatList(f, inputs); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return f.Name(), cleanup, nil
}

func writeConcatList(f *os.File, inputs []string) error {
	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapeConcatPath(absPath)); err != nil {
			return err
		}
	}
	return nil
}

// escapeConcatPath quotes a path for a single-quoted concat list entry
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
