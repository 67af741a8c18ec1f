package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alver/memory-ball-video/internal/audio"
	"github.com/alver/memory-ball-video/internal/clips"
	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/internal/ffmpeg/ffmpegtest"
	"github.com/alver/memory-ball-video/internal/photos"
	"github.com/rs/zerolog"
)

type env struct {
	engine  *ffmpegtest.Engine
	photos  string
	music   string
	scratch string
	output  string
}

func newEnv(t *testing.T, images ...string) *env {
	t.Helper()
	e := &env{
		engine:  ffmpegtest.New(),
		photos:  t.TempDir(),
		music:   t.TempDir(),
		scratch: t.TempDir(),
		output:  filepath.Join(t.TempDir(), "out", "memoryball.mp4"),
	}
	for _, img := range images {
		if err := os.WriteFile(filepath.Join(e.photos, img), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func (e *env) addTrack(t *testing.T, name string, d time.Duration) {
	t.Helper()
	path := filepath.Join(e.music, name)
	os.WriteFile(path, nil, 0644)
	e.engine.SetDuration(path, d)
}

func (e *env) options() Options {
	return Options{
		PhotoDir:   e.photos,
		MusicDir:   e.music,
		Output:     e.output,
		TempDir:    e.scratch,
		Duration:   5 * time.Second,
		Transition: time.Second,
		Mode:       ffmpeg.ScaleBlur,
		Size:       480,
		FPS:        30,
		Workers:    2,
	}
}

func (e *env) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.scratch)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch not cleaned up: %d entries left", len(entries))
	}
}

func newPipeline(e *env) *Pipeline {
	return New(zerolog.Nop(), e.engine, NewRand(7))
}

func TestRunEndToEnd(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg", "C.png", "D.jpeg", "E.bmp")
	e.addTrack(t, "01.mp3", 6*time.Second)
	e.addTrack(t, "02.mp3", 4*time.Second)

	opts := e.options()
	opts.First = []string{"C.png", "missing.jpg"}

	res, err := newPipeline(e).Run(t.Context(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Images != 5 || res.Fixed != 1 || res.Random != 4 {
		t.Errorf("unexpected composition: %+v", res)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "missing.jpg" {
		t.Errorf("expected missing.jpg reported, got %v", res.Missing)
	}
	if res.Merges != 4 || res.Rounds != 3 {
		t.Errorf("expected 4 merges over 3 rounds, got %d/%d", res.Merges, res.Rounds)
	}
	if res.Duration != 21*time.Second {
		t.Errorf("expected 21s, got %v", res.Duration)
	}
	if res.Passthrough || res.Plays != 4 {
		t.Errorf("expected 4 plays of music, got %+v", res)
	}
	if filepath.Base(e.engine.Renders[0].Image) != "C.png" {
		t.Errorf("fixed photo not rendered first: %s", e.engine.Renders[0].Image)
	}
	if e.engine.Renders[0].Mode != ffmpeg.ScaleBlur {
		t.Errorf("scale mode not forwarded: %s", e.engine.Renders[0].Mode)
	}
	if e.engine.Concats[0].Duration != 21*time.Second {
		t.Errorf("audio not trimmed to video length: %v", e.engine.Concats[0].Duration)
	}
	if _, err := os.Stat(e.output); err != nil {
		t.Errorf("output missing: %v", err)
	}
	e.assertScratchEmpty(t)
}

func TestRunRejectsTimingBeforeRender(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg")
	opts := e.options()
	opts.Duration = 2 * time.Second
	opts.Transition = 3 * time.Second

	_, err := newPipeline(e).Run(t.Context(), opts)
	if !errors.Is(err, clips.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if renders, _ := e.engine.Counts(); renders != 0 {
		t.Errorf("expected no renders, got %d", renders)
	}
	e.assertScratchEmpty(t)
}

func TestRunEmptyInput(t *testing.T) {
	e := newEnv(t, "notes.txt")
	_, err := newPipeline(e).Run(t.Context(), e.options())
	if !errors.Is(err, photos.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := os.Stat(e.output); !os.IsNotExist(err) {
		t.Error("no output expected")
	}
}

func TestRunCleansUpOnFailure(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg", "C.jpg")
	e.engine.Fail = func(op, path string) error {
		if op == "blend" {
			return errors.New("xfade crashed")
		}
		return nil
	}

	_, err := newPipeline(e).Run(t.Context(), e.options())
	if !errors.Is(err, ffmpeg.ErrBlend) {
		t.Fatalf("expected ErrBlend, got %v", err)
	}
	e.assertScratchEmpty(t)
}

func TestRunMuxFailureRemovesOutput(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg")
	e.engine.Fail = func(op, path string) error {
		if op == "mux" {
			return errors.New("disk full")
		}
		return nil
	}

	_, err := newPipeline(e).Run(t.Context(), e.options())
	if !errors.Is(err, ffmpeg.ErrMux) {
		t.Fatalf("expected ErrMux, got %v", err)
	}
	if _, err := os.Stat(e.output); !os.IsNotExist(err) {
		t.Error("partial output left behind")
	}
	e.assertScratchEmpty(t)
}

func TestRunAudioProbeFailure(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg")
	os.WriteFile(filepath.Join(e.music, "broken.mp3"), nil, 0644)

	_, err := newPipeline(e).Run(t.Context(), e.options())
	if !errors.Is(err, audio.ErrAudioProbe) {
		t.Errorf("expected ErrAudioProbe, got %v", err)
	}
	e.assertScratchEmpty(t)
}

func TestRunWithoutMusic(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg", "C.jpg")
	opts := e.options()
	opts.MusicDir = ""

	res, err := newPipeline(e).Run(t.Context(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Passthrough {
		t.Error("expected passthrough without music")
	}
	if len(e.engine.Muxes) != 1 || e.engine.Muxes[0].Audio != "" {
		t.Errorf("expected stream copy, got %+v", e.engine.Muxes)
	}
}

type fakeUploader struct {
	runID, file string
	err         error
}

func (f *fakeUploader) Publish(ctx context.Context, runID, file string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.runID, f.file = runID, file
	return "videos/" + runID + "/" + filepath.Base(file), nil
}

func TestRunPublishes(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg")
	up := &fakeUploader{}

	res, err := newPipeline(e).WithUploader(up).Run(t.Context(), e.options())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if up.file != e.output || up.runID != res.RunID {
		t.Errorf("unexpected upload %+v", up)
	}
	if res.PublishedKey != "videos/"+res.RunID+"/memoryball.mp4" {
		t.Errorf("unexpected key %s", res.PublishedKey)
	}

	failing := newEnv(t, "A.jpg", "B.jpg")
	if _, err := newPipeline(failing).WithUploader(&fakeUploader{err: errors.New("denied")}).Run(t.Context(), failing.options()); err == nil {
		t.Error("expected publish error")
	}
}

func TestRunCancelled(t *testing.T) {
	e := newEnv(t, "A.jpg", "B.jpg", "C.jpg")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := newPipeline(e).Run(ctx, e.options()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	e.assertScratchEmpty(t)
}

func TestUnknownTransition(t *testing.T) {
	e := newEnv(t, "A.jpg")
	opts := e.options()
	opts.Transitions = []string{"spin"}
	if _, err := newPipeline(e).Run(t.Context(), opts); err == nil {
		t.Error("expected error for unknown transition")
	}
}
