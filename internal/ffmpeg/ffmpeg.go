package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/rs/zerolog"
)

// Engine failures. Every Executor operation wraps exactly one of these so
// callers can tell the stage apart with errors.Is.
var (
	ErrProbe  = errors.New("probe failed")
	ErrRender = errors.New("render failed")
	ErrBlend  = errors.New("blend failed")
	ErrConcat = errors.New("concat failed")
	ErrMux    = errors.New("mux failed")
)

// stderrTailLines is how many non-progress stderr lines are kept for error
// messages.
const stderrTailLines = 8

// Options configures an Executor
type Options struct {
	FFmpegPath   string
	FFprobePath  string
	Threads      int
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
}

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger       zerolog.Logger
	ffmpegPath   string
	ffprobePath  string
	threads      int
	preset       string
	crf          int
	audioCodec   string
	audioBitrate string
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegName := opts.FFmpegPath
	if ffmpegName == "" {
		ffmpegName = "ffmpeg"
	}
	ffmpegPath, err := exec.LookPath(ffmpegName)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found (%s): %w", ffmpegName, err)
	}

	ffprobeName := opts.FFprobePath
	if ffprobeName == "" {
		ffprobeName = "ffprobe"
	}
	ffprobePath, err := exec.LookPath(ffprobeName)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found (%s): %w", ffprobeName, err)
	}

	e := &Executor{
		logger:       logging.WithComponent(logger, "ffmpeg"),
		ffmpegPath:   ffmpegPath,
		ffprobePath:  ffprobePath,
		threads:      opts.Threads,
		preset:       opts.Preset,
		crf:          opts.CRF,
		audioCodec:   opts.AudioCodec,
		audioBitrate: opts.AudioBitrate,
	}
	if e.preset == "" {
		e.preset = DefaultPreset
	}
	if e.crf == 0 {
		e.crf = DefaultCRF
	}
	if e.audioCodec == "" {
		e.audioCodec = DefaultAudioCodec
	}
	if e.audioBitrate == "" {
		e.audioBitrate = DefaultAudioBitrate
	}
	return e, nil
}

// Run executes ffmpeg with the given arguments and streams progress
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	// Global options must come before the first input
	baseArgs := []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "error"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", strconv.Itoa(e.threads))
	}

	baseArgs = append(baseArgs, "-progress", "pipe:2")
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	var (
		wg   sync.WaitGroup
		tail []string
	)
	wg.Add(2)

	// Stream stderr (progress + logs)
	go func() {
		defer wg.Done()
		tail = e.streamOutput(stderr, opts.ProgressHandler, opts.LogHandler)
	}()

	// Stream stdout
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(tail) > 0 {
			return fmt.Errorf("ffmpeg execution failed: %w: %s", err, strings.Join(tail, " | "))
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// streamOutput parses ffmpeg output, calls handlers and returns the last
// few diagnostic lines.
func (e *Executor) streamOutput(r io.Reader, progressHandler func(*Progress), logHandler func(string)) []string {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}
	var tail []string

	for scanner.Scan() {
		line := scanner.Text()

		if logHandler != nil {
			logHandler(line)
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok || !isProgressKey(key) {
			if strings.TrimSpace(line) != "" {
				tail = append(tail, line)
				if len(tail) > stderrTailLines {
					tail = tail[1:]
				}
			}
			continue
		}

		value = strings.TrimSpace(value)
		switch key {
		case "frame":
			progressData.Frame, _ = strconv.Atoi(value)
		case "fps":
			progressData.FPS, _ = strconv.ParseFloat(value, 64)
		case "bitrate":
			progressData.Bitrate = value
		case "out_time":
			progressData.Time = value
		case "speed":
			progressData.Speed = value
		case "progress":
			// End of progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		}
	}

	return tail
}

// isProgressKey reports whether key looks like one of the key=value lines
// emitted by -progress.
func isProgressKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// LogProgress returns a ProgressFunc that reports each progress block at
// debug level, tagged with what is being produced.
func LogProgress(logger zerolog.Logger, output string) ProgressFunc {
	return func(p *Progress) {
		logger.Debug().
			Str("output", output).
			Int("frame", p.Frame).
			Float64("fps", p.FPS).
			Str("time", p.Time).
			Str("speed", p.Speed).
			Msg("encoding progress")
	}
}
