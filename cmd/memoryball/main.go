package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alver/memory-ball-video/internal/config"
	"github.com/alver/memory-ball-video/internal/ffmpeg"
	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/alver/memory-ball-video/internal/pipeline"
	"github.com/alver/memory-ball-video/internal/publish"
	"github.com/alver/memory-ball-video/internal/transitions"
	"github.com/alver/memory-ball-video/pkg/util"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile    string
	verbose    bool
	jsonOutput bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("memoryball failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "memoryball",
	Short:         "memoryball - slideshow videos for the Memory Ball",
	Long:          "Builds a square slideshow video from a folder of photos with random transitions and looped background music.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(logging.Options{Verbose: verbose, JSON: jsonOutput})

		// .env is optional
		_ = godotenv.Load()

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "log as JSON")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
}

var createFlags struct {
	photos     string
	output     string
	music      string
	first      []string
	duration   float64
	transition float64
	mode       string
	size       int
	seed       int64
	workers    int
	s3Bucket   string
	s3Prefix   string
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Build a slideshow video from a photo folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		applyCreateFlags(cmd, cfg)

		if err := cfg.Validate(); err != nil {
			return err
		}
		mode, err := ffmpeg.ParseScaleMode(cfg.Slideshow.Mode)
		if err != nil {
			return err
		}

		engine, err := ffmpeg.New(log.Logger, cfg.FFmpegOptions())
		if err != nil {
			return err
		}

		pipe := pipeline.New(log.Logger, engine, pipeline.NewRand(cfg.Slideshow.Seed))
		if target := cfg.PublishTarget(); target.Enabled() {
			uploader, err := publish.NewS3(cmd.Context(), log.Logger, target)
			if err != nil {
				return err
			}
			pipe.WithUploader(uploader)
		}

		result, err := pipe.Run(cmd.Context(), pipeline.Options{
			PhotoDir:    createFlags.photos,
			MusicDir:    createFlags.music,
			Output:      cfg.Slideshow.Output,
			TempDir:     cfg.TempDir,
			First:       createFlags.first,
			Duration:    cfg.PhotoDuration(),
			Transition:  cfg.TransitionDuration(),
			Transitions: cfg.Slideshow.Transitions,
			Mode:        mode,
			Size:        cfg.Slideshow.Size,
			FPS:         cfg.Slideshow.FPS,
			Workers:     cfg.Concurrency,
		})
		if err != nil {
			return err
		}

		for _, name := range result.Missing {
			fmt.Fprintf(os.Stderr, "warning: fixed photo %s not found\n", name)
		}
		fmt.Printf("%s (%s, %d photos)\n", result.Output, util.FormatDuration(result.Duration), result.Images)
		if result.PublishedKey != "" {
			fmt.Printf("s3://%s/%s\n", cfg.Publish.Bucket, result.PublishedKey)
		}
		return nil
	},
}

// applyCreateFlags lets explicitly set flags win over the config file
func applyCreateFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Slideshow.Output = createFlags.output
	}
	if flags.Changed("duration") {
		cfg.Slideshow.Duration = createFlags.duration
	}
	if flags.Changed("transition") {
		cfg.Slideshow.Transition = createFlags.transition
	}
	if flags.Changed("mode") {
		cfg.Slideshow.Mode = createFlags.mode
	}
	if flags.Changed("size") {
		cfg.Slideshow.Size = createFlags.size
	}
	if flags.Changed("seed") {
		cfg.Slideshow.Seed = createFlags.seed
	}
	if flags.Changed("workers") {
		cfg.Concurrency = createFlags.workers
	}
	if flags.Changed("s3-bucket") {
		cfg.Publish.Bucket = createFlags.s3Bucket
	}
	if flags.Changed("s3-prefix") {
		cfg.Publish.Prefix = createFlags.s3Prefix
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultPath()
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var listCmd = &cobra.Command{
	Use:       "list [transitions|modes]",
	Short:     "List available resources",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"transitions", "modes"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "transitions":
			for _, k := range transitions.All {
				fmt.Println(k)
			}
		case "modes":
			for _, m := range ffmpeg.ScaleModes {
				fmt.Printf("%-8s %s\n", m, m.Description())
			}
		default:
			return fmt.Errorf("unknown resource %q", args[0])
		}
		return nil
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVarP(&createFlags.photos, "photos", "p", "", "folder of photos (required)")
	f.StringVarP(&createFlags.output, "output", "o", "output.mp4", "output video file")
	f.StringVarP(&createFlags.music, "music", "m", "", "folder of background music")
	f.StringArrayVar(&createFlags.first, "first", nil, "photo filename to show first; repeat to set the order")
	f.Float64VarP(&createFlags.duration, "duration", "d", 5, "seconds per photo")
	f.Float64VarP(&createFlags.transition, "transition", "t", 1, "transition length in seconds")
	f.StringVar(&createFlags.mode, "mode", string(ffmpeg.ScaleCrop), "scale mode: crop, pad, blur or stretch")
	f.IntVar(&createFlags.size, "size", ffmpeg.DefaultSize, "output width and height in pixels")
	f.Int64Var(&createFlags.seed, "seed", 0, "random seed (0 picks one)")
	f.IntVar(&createFlags.workers, "workers", 1, "parallel merges per round")
	f.StringVar(&createFlags.s3Bucket, "s3-bucket", "", "upload the result to this bucket")
	f.StringVar(&createFlags.s3Prefix, "s3-prefix", "", "key prefix for uploads")
	_ = createCmd.MarkFlagRequired("photos")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
