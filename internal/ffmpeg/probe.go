package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/alver/memory-ball-video/pkg/util"
)

// ProbeMedia extracts metadata from a media file
func (e *Executor) ProbeMedia(ctx context.Context, filePath string) (*MediaInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrProbe)
	}

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s: %w: %s", ErrProbe, filePath, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrProbe, filePath, err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to parse ffprobe output: %w", ErrProbe, filePath, err)
	}

	info := &MediaInfo{
		FilePath: filePath,
	}

	if probe.Format.Duration != "" {
		if dur, err := util.ParseSeconds(probe.Format.Duration); err == nil {
			info.Duration = dur
		}
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			info.VideoCodec = stream.CodecName
		case "audio":
			info.HasAudio = true
			info.AudioCodec = stream.CodecName
		}
	}

	return info, nil
}

// ProbeDuration returns the container duration of a media file. A file
// without a positive duration is a probe failure.
func (e *Executor) ProbeDuration(ctx context.Context, filePath string) (time.Duration, error) {
	info, err := e.ProbeMedia(ctx, filePath)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, fmt.Errorf("%w: %s: no duration reported", ErrProbe, filePath)
	}

	e.logger.Debug().
		Str("file", filePath).
		Dur("duration", info.Duration).
		Msg("probed duration")

	return info.Duration, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}
