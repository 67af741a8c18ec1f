// Package publish uploads finished videos to S3 or an S3-compatible store.
package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Config selects the destination. Region and Profile fall back to the
// standard AWS configuration chain when empty.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Profile      string
	UsePathStyle bool
}

// Enabled reports whether a bucket is configured
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads videos under a key prefix
type Publisher struct {
	logger zerolog.Logger
	client putter
	bucket string
	prefix string
}

// NewS3 creates a publisher using the default AWS configuration chain
func NewS3(ctx context.Context, logger zerolog.Logger, cfg Config) (*Publisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("no bucket configured")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newPublisher(logger, client, cfg), nil
}

func newPublisher(logger zerolog.Logger, client putter, cfg Config) *Publisher {
	return &Publisher{
		logger: logging.WithComponent(logger, "publish"),
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}
}

// Key returns the object key for a run's output file
func (p *Publisher) Key(runID, file string) string {
	return path.Join(p.prefix, runID, filepath.Base(file))
}

// Publish uploads file and returns its object key
func (p *Publisher) Publish(ctx context.Context, runID, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", file, err)
	}

	key := p.Key(runID, file)
	p.logger.Info().
		Str("bucket", p.bucket).
		Str("key", key).
		Int64("bytes", info.Size()).
		Msg("uploading video")

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("video/mp4"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", p.bucket, key, err)
	}
	return key, nil
}
