package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/alver/memory-ball-video/internal/workspace"
	"github.com/rs/zerolog"
)

// Engine is the subset of the media engine the compositor drives
type Engine interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	ConcatAudio(ctx context.Context, opts ffmpeg.ConcatOptions) error
	Mux(ctx context.Context, opts ffmpeg.MuxOptions) error
}

// Result describes the written output
type Result struct {
	Output      string
	Passthrough bool
	Tracks      []Track
	Plan        []int
}

// Compositor joins the timeline with its soundtrack
type Compositor struct {
	logger    zerolog.Logger
	engine    Engine
	workspace *workspace.Workspace
}

// NewCompositor creates a compositor writing intermediates into ws
func NewCompositor(logger zerolog.Logger, engine Engine, ws *workspace.Workspace) *Compositor {
	return &Compositor{
		logger:    logging.WithComponent(logger, "audio"),
		engine:    engine,
		workspace: ws,
	}
}

// Compose writes output from video, whose length is duration. When musicDir
// holds music it is looped and trimmed to exactly duration; otherwise the
// video is stream-copied unchanged. A failed mux leaves no output behind.
func (c *Compositor) Compose(ctx context.Context, video string, duration time.Duration, musicDir, output string) (*Result, error) {
	files, err := Discover(musicDir)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		if musicDir != "" {
			c.logger.Warn().Str("dir", musicDir).Msg("no music found, writing video without audio")
		}
		if err := c.mux(ctx, ffmpeg.MuxOptions{Video: video, Output: output}); err != nil {
			return nil, err
		}
		return &Result{Output: output, Passthrough: true}, nil
	}

	tracks, err := c.probe(ctx, files)
	if err != nil {
		return nil, err
	}

	durations := make([]time.Duration, len(tracks))
	for i, tr := range tracks {
		durations[i] = tr.Duration
	}
	plan, err := PlanPlayback(durations, duration)
	if err != nil {
		return nil, fmt.Errorf("failed to plan music: %w", err)
	}

	c.logger.Info().
		Int("tracks", len(tracks)).
		Int("plays", len(plan)).
		Dur("target", duration).
		Msg("looping music")

	music := c.workspace.Path("looped_music.m4a")
	err = c.engine.ConcatAudio(ctx, ffmpeg.ConcatOptions{
		Inputs:   Expand(tracks, plan),
		Output:   music,
		Duration: duration,
		ListFile: c.workspace.Path("music_list.txt"),

		ProgressFunc: ffmpeg.LogProgress(c.logger, filepath.Base(music)),
	})
	if err != nil {
		return nil, err
	}

	if err := c.mux(ctx, ffmpeg.MuxOptions{Video: video, Audio: music, Output: output}); err != nil {
		return nil, err
	}

	return &Result{Output: output, Tracks: tracks, Plan: plan}, nil
}

func (c *Compositor) probe(ctx context.Context, files []string) ([]Track, error) {
	tracks := make([]Track, 0, len(files))
	for _, f := range files {
		d, err := c.engine.ProbeDuration(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrAudioProbe, filepath.Base(f), err)
		}
		c.logger.Debug().Str("track", filepath.Base(f)).Dur("duration", d).Msg("music probed")
		tracks = append(tracks, Track{Path: f, Duration: d})
	}
	return tracks, nil
}

func (c *Compositor) mux(ctx context.Context, opts ffmpeg.MuxOptions) error {
	if opts.ProgressFunc == nil {
		opts.ProgressFunc = ffmpeg.LogProgress(c.logger, filepath.Base(opts.Output))
	}

	before, statErr := os.Stat(opts.Output)
	if err := c.engine.Mux(ctx, opts); err != nil {
		// Only remove what this mux wrote; an untouched earlier file stays
		after, err2 := os.Stat(opts.Output)
		if err2 == nil && (statErr != nil || !sameContent(before, after)) {
			if rmErr := os.Remove(opts.Output); rmErr == nil {
				c.logger.Warn().Str("output", opts.Output).Msg("removed partial output")
			}
		}
		return err
	}
	return nil
}

func sameContent(a, b os.FileInfo) bool {
	return a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}
