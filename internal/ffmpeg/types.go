package ffmpeg

import "time"

// MediaInfo contains metadata about a media file
type MediaInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings
const (
	DefaultCRF          = 23
	DefaultPreset       = "ultrafast"
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "192k"
	DefaultPixelFormat  = "yuv420p"
	DefaultFPS          = 30
	DefaultSize         = 480
)

// StillOptions configures rendering one image into a fixed-length clip
type StillOptions struct {
	Image    string
	Output   string
	Duration time.Duration
	Mode     ScaleMode
	Size     int
	FPS      int

	ProgressFunc ProgressFunc
}

// BlendOptions configures a cross-fade between two clips. Offset is the
// point in First where the transition starts; Duration is the length of the
// blended output.
type BlendOptions struct {
	First      string
	Second     string
	Output     string
	Transition string
	Overlap    time.Duration
	Offset     time.Duration
	Duration   time.Duration

	ProgressFunc ProgressFunc
}

// ConcatOptions defines audio concatenation parameters
type ConcatOptions struct {
	Inputs []string
	Output string
	// Duration hard-trims the concatenated stream
	Duration time.Duration
	// ListFile is where the concat demuxer list is written; a temp file is
	// used when empty.
	ListFile string

	ProgressFunc ProgressFunc
}

// MuxOptions combines a video with an optional audio track. With no Audio
// the video is stream-copied into Output unchanged.
type MuxOptions struct {
	Video  string
	Audio  string
	Output string

	ProgressFunc ProgressFunc
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)
