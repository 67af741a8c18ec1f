package ffmpeg

import (
	"fmt"
	"strings"
)

// ScaleMode selects how a non-square image is mapped onto the square frame
type ScaleMode string

const (
	// ScaleCrop scales to cover the frame and crops the center
	ScaleCrop ScaleMode = "crop"
	// ScalePad scales to fit and letterboxes with black bars
	ScalePad ScaleMode = "pad"
	// ScaleBlur centers the image over a blurred, enlarged copy of itself
	ScaleBlur ScaleMode = "blur"
	// ScaleStretch scales both axes independently
	ScaleStretch ScaleMode = "stretch"
)

// ScaleModes lists every supported mode in display order
var ScaleModes = []ScaleMode{ScaleCrop, ScalePad, ScaleBlur, ScaleStretch}

// ParseScaleMode validates a mode name
func ParseScaleMode(s string) (ScaleMode, error) {
	mode := ScaleMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range ScaleModes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown scale mode %q (want one of crop, pad, blur, stretch)", s)
}

// Description returns a one-line explanation for help output
func (m ScaleMode) Description() string {
	switch m {
	case ScaleCrop:
		return "crop center to square (no black bars, may lose edges)"
	case ScalePad:
		return "add black bars to show the full image"
	case ScaleBlur:
		return "blurred background with the original centered"
	case ScaleStretch:
		return "stretch to fit (distorts the image)"
	default:
		return ""
	}
}

// FilterBuilder helps construct ffmpeg filter chains
type FilterBuilder struct {
	filters []string
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{
		filters: make([]string, 0),
	}
}

// Scale adds a plain scale filter
func (fb *FilterBuilder) Scale(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		// Return self without adding filter - allows chaining to continue
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("scale=%d:%d", width, height))
	return fb
}

// ScaleToCover scales preserving aspect ratio so both sides are at least size
func (fb *FilterBuilder) ScaleToCover(size int) *FilterBuilder {
	return fb.scaleAspect(size, "increase")
}

// ScaleToFit scales preserving aspect ratio so both sides are at most size
func (fb *FilterBuilder) ScaleToFit(size int) *FilterBuilder {
	return fb.scaleAspect(size, "decrease")
}

func (fb *FilterBuilder) scaleAspect(size int, policy string) *FilterBuilder {
	if size <= 0 {
		return fb
	}
	fb.filters = append(fb.filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=%s", size, size, policy))
	return fb
}

// CenterCrop adds a crop filter anchored at the frame center
func (fb *FilterBuilder) CenterCrop(width, height int) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("crop=%d:%d", width, height))
	return fb
}

// Pad centers the picture on a width x height canvas of the given color
func (fb *FilterBuilder) Pad(width, height int, color string) *FilterBuilder {
	if width <= 0 || height <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("pad=%d:%d:-1:-1:%s", width, height, color))
	return fb
}

// BoxBlur adds a box blur with the given radius
func (fb *FilterBuilder) BoxBlur(radius int) *FilterBuilder {
	if radius <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("boxblur=%d", radius))
	return fb
}

// FPS adds an fps filter
func (fb *FilterBuilder) FPS(fps int) *FilterBuilder {
	if fps <= 0 {
		return fb
	}
	fb.filters = append(fb.filters, fmt.Sprintf("fps=%d", fps))
	return fb
}

// Format forces a pixel format
func (fb *FilterBuilder) Format(pixFmt string) *FilterBuilder {
	fb.filters = append(fb.filters, "format="+pixFmt)
	return fb
}

// SetSAR sets the sample aspect ratio
func (fb *FilterBuilder) SetSAR(sar int) *FilterBuilder {
	fb.filters = append(fb.filters, fmt.Sprintf("setsar=%d", sar))
	return fb
}

// Custom adds a custom filter string
func (fb *FilterBuilder) Custom(filter string) *FilterBuilder {
	if filter == "" {
		return fb
	}
	fb.filters = append(fb.filters, filter)
	return fb
}

// Build returns the complete filter string joined with commas
func (fb *FilterBuilder) Build() string {
	if len(fb.filters) == 0 {
		return ""
	}
	return strings.Join(fb.filters, ",")
}

// ScaleFilter returns the filter graph mapping any input onto a size x size
// frame according to mode. Unknown modes fall back to crop.
func ScaleFilter(mode ScaleMode, size int) string {
	switch mode {
	case ScalePad:
		return NewFilterBuilder().ScaleToFit(size).Pad(size, size, "black").Build()
	case ScaleBlur:
		bg := NewFilterBuilder().ScaleToCover(size).CenterCrop(size, size).BoxBlur(20).Build()
		fg := NewFilterBuilder().ScaleToFit(size).Build()
		return fmt.Sprintf("split[original][copy];[copy]%s[bg];[original]%s[fg];[bg][fg]overlay=(W-w)/2:(H-h)/2", bg, fg)
	case ScaleStretch:
		return NewFilterBuilder().Scale(size, size).Build()
	default:
		return NewFilterBuilder().ScaleToCover(size).CenterCrop(size, size).Build()
	}
}

// StillFilter is ScaleFilter followed by the frame rate and pixel format
// normalisation every clip needs so clips can be blended with each other.
func StillFilter(mode ScaleMode, size, fps int) string {
	return NewFilterBuilder().
		Custom(ScaleFilter(mode, size)).
		FPS(fps).
		Format(DefaultPixelFormat).
		SetSAR(1).
		Build()
}
