package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alver/memory-ball-video/internal/clips"
	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/internal/publish"
	"github.com/alver/memory-ball-video/internal/transitions"
	"github.com/alver/memory-ball-video/pkg/util"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	TempDir     string `yaml:"temp_dir"`
	Concurrency int    `yaml:"concurrency"`

	// Slideshow settings
	Slideshow SlideshowConfig `yaml:"slideshow"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Audio settings
	Audio AudioConfig `yaml:"audio"`

	// Publish settings
	Publish PublishConfig `yaml:"publish"`
}

type SlideshowConfig struct {
	Duration    float64  `yaml:"duration"`
	Transition  float64  `yaml:"transition"`
	Mode        string   `yaml:"mode"`
	Size        int      `yaml:"size"`
	FPS         int      `yaml:"fps"`
	Output      string   `yaml:"output"`
	Transitions []string `yaml:"transitions,omitempty"`
	Seed        int64    `yaml:"seed"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type AudioConfig struct {
	Codec   string `yaml:"codec"`
	Bitrate string `yaml:"bitrate"`
}

type PublishConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Load reads configuration from file or returns defaults. Environment
// overrides are applied on top of either.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Slideshow.Size <= 0 {
		return fmt.Errorf("size must be positive, got %d", c.Slideshow.Size)
	}
	if c.Slideshow.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.Slideshow.FPS)
	}
	if _, err := ffmpeg.ParseScaleMode(c.Slideshow.Mode); err != nil {
		return err
	}
	if _, err := transitions.FromNames(c.Slideshow.Transitions); err != nil {
		return err
	}
	return clips.ValidateTiming(c.PhotoDuration(), c.TransitionDuration())
}

// PhotoDuration is how long each photo stays on screen
func (c *Config) PhotoDuration() time.Duration {
	return util.Seconds(c.Slideshow.Duration)
}

// TransitionDuration is the overlap between adjacent photos
func (c *Config) TransitionDuration() time.Duration {
	return util.Seconds(c.Slideshow.Transition)
}

// PublishTarget converts the publish section for the uploader
func (c *Config) PublishTarget() publish.Config {
	return publish.Config{
		Bucket:       c.Publish.Bucket,
		Prefix:       c.Publish.Prefix,
		Region:       c.Publish.Region,
		Profile:      c.Publish.Profile,
		UsePathStyle: c.Publish.UsePathStyle,
	}
}

// FFmpegOptions converts the engine sections for the executor
func (c *Config) FFmpegOptions() ffmpeg.Options {
	return ffmpeg.Options{
		FFmpegPath:   c.FFmpeg.BinaryPath,
		FFprobePath:  c.FFmpeg.ProbePath,
		Threads:      c.FFmpeg.Threads,
		Preset:       c.FFmpeg.Preset,
		CRF:          c.FFmpeg.CRF,
		AudioCodec:   c.Audio.Codec,
		AudioBitrate: c.Audio.Bitrate,
	}
}

func (c *Config) applyEnv() {
	setString(&c.TempDir, "MEMORYBALL_TEMP_DIR")
	setString(&c.FFmpeg.BinaryPath, "MEMORYBALL_FFMPEG")
	setString(&c.FFmpeg.ProbePath, "MEMORYBALL_FFPROBE")
	setString(&c.Publish.Bucket, "S3_BUCKET")
	setString(&c.Publish.Prefix, "S3_PREFIX")
	setString(&c.Publish.Region, "S3_REGION")
	setString(&c.Publish.Profile, "S3_PROFILE")
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Publish.UsePathStyle = b
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func defaultConfig() *Config {
	return &Config{
		TempDir:     os.TempDir(),
		Concurrency: 1,
		Slideshow: SlideshowConfig{
			Duration:   5,
			Transition: 1,
			Mode:       string(ffmpeg.ScaleCrop),
			Size:       ffmpeg.DefaultSize,
			FPS:        ffmpeg.DefaultFPS,
			Output:     "output.mp4",
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     ffmpeg.DefaultPreset,
			CRF:        ffmpeg.DefaultCRF,
		},
		Audio: AudioConfig{
			Codec:   ffmpeg.DefaultAudioCodec,
			Bitrate: ffmpeg.DefaultAudioBitrate,
		},
	}
}

// DefaultPath is where `config init` writes
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".memoryball", "config.yaml")
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		DefaultPath(),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
