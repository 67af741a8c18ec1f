package audio

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/internal/ffmpeg/ffmpegtest"
	"github.com/alver/memory-ball-video/internal/workspace"
	"github.com/rs/zerolog"
)

func TestPlanPlaybackWrapsAround(t *testing.T) {
	plan, err := PlanPlayback([]time.Duration{3 * time.Second, 4 * time.Second}, 10*time.Second)
	if err != nil {
		t.Fatalf("PlanPlayback failed: %v", err)
	}
	want := []int{0, 1, 0}
	if len(plan) != len(want) {
		t.Fatalf("expected %v, got %v", want, plan)
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Errorf("expected %v, got %v", want, plan)
		}
	}
}

func TestPlanPlaybackSingleLongTrack(t *testing.T) {
	plan, err := PlanPlayback([]time.Duration{time.Minute}, 10*time.Second)
	if err != nil {
		t.Fatalf("PlanPlayback failed: %v", err)
	}
	if len(plan) != 1 || plan[0] != 0 {
		t.Errorf("expected [0], got %v", plan)
	}
}

func TestPlanPlaybackExactBoundary(t *testing.T) {
	plan, err := PlanPlayback([]time.Duration{5 * time.Second}, 10*time.Second)
	if err != nil {
		t.Fatalf("PlanPlayback failed: %v", err)
	}
	if len(plan) != 2 {
		t.Errorf("expected two plays to reach exactly 10s, got %v", plan)
	}
}

func TestPlanPlaybackInvalid(t *testing.T) {
	if _, err := PlanPlayback([]time.Duration{time.Second}, 0); err == nil {
		t.Error("expected error for zero target")
	}
	if _, err := PlanPlayback(nil, time.Second); err == nil {
		t.Error("expected error for no tracks")
	}
	if _, err := PlanPlayback([]time.Duration{time.Second, 0}, time.Minute); err == nil {
		t.Error("expected error for zero-length track")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.MP3", "a.wav", "c.txt", "d.m4a"} {
		os.WriteFile(filepath.Join(dir, name), nil, 0644)
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	want := []string{"a.wav", "b.MP3", "d.m4a"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if filepath.Base(files[i]) != want[i] {
			t.Errorf("expected %v, got %v", want, files)
		}
	}

	if files, err := Discover(filepath.Join(dir, "absent")); err != nil || files != nil {
		t.Errorf("missing folder should yield nothing, got %v, %v", files, err)
	}
	if files, err := Discover(""); err != nil || files != nil {
		t.Errorf("empty folder name should yield nothing, got %v, %v", files, err)
	}
}

type fixture struct {
	engine *ffmpegtest.Engine
	ws     *workspace.Workspace
	comp   *Compositor
	video  string
	output string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ws, err := workspace.New(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })

	engine := ffmpegtest.New()
	video := ws.Path("merge_r2_0000.mp4")
	os.WriteFile(video, nil, 0644)
	engine.SetDuration(video, 13*time.Second)

	return &fixture{
		engine: engine,
		ws:     ws,
		comp:   NewCompositor(zerolog.Nop(), engine, ws),
		video:  video,
		output: filepath.Join(t.TempDir(), "output.mp4"),
	}
}

func (f *fixture) addMusic(t *testing.T, dir, name string, d time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	os.WriteFile(path, nil, 0644)
	f.engine.SetDuration(path, d)
}

func TestComposeLoopsAndTrims(t *testing.T) {
	f := newFixture(t)
	music := t.TempDir()
	f.addMusic(t, music, "01.mp3", 3*time.Second)
	f.addMusic(t, music, "02.mp3", 4*time.Second)

	res, err := f.comp.Compose(t.Context(), f.video, 13*time.Second, music, f.output)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if res.Passthrough {
		t.Error("expected music to be muxed")
	}

	if len(f.engine.Concats) != 1 {
		t.Fatalf("expected one concat, got %d", len(f.engine.Concats))
	}
	concat := f.engine.Concats[0]
	if concat.Duration != 13*time.Second {
		t.Errorf("audio must be trimmed to exactly 13s, got %v", concat.Duration)
	}
	wantOrder := []string{"01.mp3", "02.mp3", "01.mp3", "02.mp3"}
	if len(concat.Inputs) != len(wantOrder) {
		t.Fatalf("expected %v, got %v", wantOrder, concat.Inputs)
	}
	for i, in := range concat.Inputs {
		if filepath.Base(in) != wantOrder[i] {
			t.Errorf("expected %v, got %v", wantOrder, concat.Inputs)
			break
		}
	}

	mux := f.engine.Muxes[0]
	if mux.Video != f.video || mux.Audio != concat.Output || mux.Output != f.output {
		t.Errorf("unexpected mux: %+v", mux)
	}
	if d, _ := f.engine.Duration(f.output); d != 13*time.Second {
		t.Errorf("output should keep the video duration, got %v", d)
	}
}

func TestComposePassthrough(t *testing.T) {
	for name, dir := range map[string]string{
		"no folder":      "",
		"missing folder": filepath.Join(t.TempDir(), "absent"),
		"empty folder":   t.TempDir(),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.comp.Compose(t.Context(), f.video, 13*time.Second, dir, f.output)
			if err != nil {
				t.Fatalf("Compose failed: %v", err)
			}
			if !res.Passthrough {
				t.Error("expected passthrough")
			}
			if len(f.engine.Concats) != 0 {
				t.Error("passthrough must not build audio")
			}
			if len(f.engine.Muxes) != 1 || f.engine.Muxes[0].Audio != "" {
				t.Errorf("expected stream copy mux, got %+v", f.engine.Muxes)
			}
		})
	}
}

func TestComposeProbeFailure(t *testing.T) {
	f := newFixture(t)
	music := t.TempDir()
	f.addMusic(t, music, "good.mp3", 3*time.Second)
	f.addMusic(t, music, "silent.wav", 0)

	_, err := f.comp.Compose(t.Context(), f.video, 13*time.Second, music, f.output)
	if !errors.Is(err, ErrAudioProbe) {
		t.Errorf("expected ErrAudioProbe, got %v", err)
	}
	if !errors.Is(err, ffmpeg.ErrProbe) {
		t.Errorf("expected underlying ErrProbe, got %v", err)
	}
	if len(f.engine.Muxes) != 0 {
		t.Error("nothing should be muxed after a probe failure")
	}
}

func TestComposeMuxFailureRemovesOutput(t *testing.T) {
	f := newFixture(t)
	f.engine.Fail = func(op, path string) error {
		if op == "mux" {
			return errors.New("disk full")
		}
		return nil
	}

	_, err := f.comp.Compose(t.Context(), f.video, 13*time.Second, "", f.output)
	if !errors.Is(err, ffmpeg.ErrMux) {
		t.Errorf("expected ErrMux, got %v", err)
	}
	if _, err := os.Stat(f.output); !os.IsNotExist(err) {
		t.Error("partial output was left behind")
	}
}

func TestComposeConcatFailure(t *testing.T) {
	f := newFixture(t)
	music := t.TempDir()
	f.addMusic(t, music, "a.mp3", 30*time.Second)
	f.engine.Fail = func(op, path string) error {
		if op == "concat" {
			return errors.New("bad stream")
		}
		return nil
	}

	_, err := f.comp.Compose(t.Context(), f.video, 13*time.Second, music, f.output)
	if !errors.Is(err, ffmpeg.ErrConcat) {
		t.Errorf("expected ErrConcat, got %v", err)
	}
}

func TestComposeMuxFailureKeepsUntouchedFile(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.output, []byte("earlier video"), 0644); err != nil {
		t.Fatal(err)
	}
	f.engine.NoPartial = true
	f.engine.Fail = func(op, path string) error {
		if op == "mux" {
			return errors.New("invalid argument")
		}
		return nil
	}

	if _, err := f.comp.Compose(t.Context(), f.video, 13*time.Second, "", f.output); !errors.Is(err, ffmpeg.ErrMux) {
		t.Fatalf("expected ErrMux, got %v", err)
	}
	data, err := os.ReadFile(f.output)
	if err != nil {
		t.Fatalf("existing file was removed: %v", err)
	}
	if string(data) != "earlier video" {
		t.Errorf("existing file was modified: %q", data)
	}
}

func TestComposeMuxFailureRemovesOverwrittenFile(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(f.output, []byte("earlier video"), 0644); err != nil {
		t.Fatal(err)
	}
	f.engine.Fail = func(op, path string) error {
		if op == "mux" {
			return errors.New("disk full")
		}
		return nil
	}

	if _, err := f.comp.Compose(t.Context(), f.video, 13*time.Second, "", f.output); !errors.Is(err, ffmpeg.ErrMux) {
		t.Fatalf("expected ErrMux, got %v", err)
	}
	if _, err := os.Stat(f.output); !os.IsNotExist(err) {
		t.Error("truncated output was left behind")
	}
}

func TestComposeLogsEncodingProgress(t *testing.T) {
	f := newFixture(t)
	music := t.TempDir()
	f.addMusic(t, music, "a.mp3", 30*time.Second)

	var buf bytes.Buffer
	comp := NewCompositor(zerolog.New(&buf).Level(zerolog.DebugLevel), f.engine, f.ws)
	if _, err := comp.Compose(t.Context(), f.video, 13*time.Second, music, f.output); err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	for _, out := range []string{"looped_music.m4a", filepath.Base(f.output)} {
		if !strings.Contains(buf.String(), `"output":"`+out+`","frame"`) {
			t.Errorf("no progress logged for %s: %s", out, buf.String())
		}
	}
}
