// Package photos resolves the ordered set of images a slideshow is built
// from: a caller-chosen head followed by a shuffled tail.
package photos

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"

	"github.com/alver/memory-ball-video/internal/logging"
	"github.com/alver/memory-ball-video/pkg/util"
	"github.com/rs/zerolog"
)

// ErrEmptyInput is returned when the source folder holds no usable image
var ErrEmptyInput = errors.New("no usable images found")

// Extensions are the accepted image types, matched case-insensitively
var Extensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// Image is a source image discovered in the photo folder
type Image struct {
	Name string
	Path string
}

// List is the resolved image order for one run
type List struct {
	Images []Image

	// Fixed is the number of leading images taken from the priority list
	Fixed int

	// Missing holds priority names that could not be placed
	Missing []string
}

// Len returns the number of images
func (l *List) Len() int {
	return len(l.Images)
}

// Random returns the number of shuffled images after the fixed head
func (l *List) Random() int {
	return len(l.Images) - l.Fixed
}

// Paths returns the image paths in order
func (l *List) Paths() []string {
	paths := make([]string, len(l.Images))
	for i, img := range l.Images {
		paths[i] = img.Path
	}
	return paths
}

// Builder resolves image lists
type Builder struct {
	logger zerolog.Logger
	rng    *rand.Rand
}

// NewBuilder creates a builder drawing its shuffle from rng
func NewBuilder(logger zerolog.Logger, rng *rand.Rand) *Builder {
	return &Builder{
		logger: logging.WithComponent(logger, "photos"),
		rng:    rng,
	}
}

// Discover lists the images directly inside dir, sorted by name
func Discover(dir string) ([]Image, error) {
	files, err := util.ListFiles(dir, Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo folder %s: %w", dir, err)
	}

	images := make([]Image, 0, len(files))
	for _, f := range files {
		images = append(images, Image{Name: filepath.Base(f), Path: f})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}

// Build resolves the image order for dir. Names in first are placed at the
// head in the given order; a name that is absent, or already placed by an
// earlier entry, is reported in List.Missing and skipped. Every remaining
// image follows in uniformly random order.
func (b *Builder) Build(dir string, first []string) (*List, error) {
	images, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyInput, dir)
	}

	pool := make(map[string]Image, len(images))
	for _, img := range images {
		pool[img.Name] = img
	}

	list := &List{Images: make([]Image, 0, len(images))}
	for _, name := range first {
		img, ok := pool[name]
		if !ok {
			b.logger.Warn().Str("photo", name).Msg("fixed photo not found, skipping")
			list.Missing = append(list.Missing, name)
			continue
		}
		list.Images = append(list.Images, img)
		delete(pool, name)
	}
	list.Fixed = len(list.Images)

	// Walk the sorted discovery order so a seeded source is reproducible
	rest := make([]Image, 0, len(pool))
	for _, img := range images {
		if _, ok := pool[img.Name]; ok {
			rest = append(rest, img)
		}
	}
	b.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	list.Images = append(list.Images, rest...)

	b.logger.Info().
		Int("total", list.Len()).
		Int("fixed", list.Fixed).
		Int("random", list.Random()).
		Int("missing", len(list.Missing)).
		Msg("photo order resolved")

	return list, nil
}
