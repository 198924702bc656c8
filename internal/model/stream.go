package model

import "fmt"

// StreamDescriptor is one selectable encoding of an extracted video. It is
// immutable once mapped from the extractor for a given media handle.
type StreamDescriptor struct {
	Itag        int    // encoding identifier within the media handle
	MimeType    string // e.g. "video/mp4; codecs=..."
	Quality     string // human label, e.g. "720p"; empty for audio-only
	Height      int    // vertical resolution, 0 for audio-only
	Size        int64  // approximate content length in bytes, 0 if unknown
	AudioOnly   bool
	Progressive bool // video with embedded audio, no merge required
}

// SizeMB returns the approximate size in megabytes.
func (s StreamDescriptor) SizeMB() float64 {
	return float64(s.Size) / (1024 * 1024)
}

// Label renders the descriptor the way it is shown on a quality button,
// e.g. "720p (22.1 MB)".
func (s StreamDescriptor) Label() string {
	if s.Size <= 0 {
		return s.Quality
	}
	return fmt.Sprintf("%s (%.1f MB)", s.Quality, s.SizeMB())
}

// ArtifactRole tags what a downloaded file contains.
type ArtifactRole string

const (
	RoleVideoOnly   ArtifactRole = "video-only"
	RoleAudioOnly   ArtifactRole = "audio-only"
	RoleMergedFinal ArtifactRole = "merged-final"
)

// Artifact is a file produced by the pipeline together with its role.
type Artifact struct {
	Path string
	Role ArtifactRole
}
