package transcode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Package transcode wraps the external ffmpeg binary. Commands are invoked
// with argument arrays only; titles and paths never pass through a shell.

// Codec settings for the merge step: the video stream is copied, audio is
// encoded to AAC.
const (
	ffmpegCommand = "ffmpeg"
	audioCodec    = "aac"
)

// ErrUnavailable is returned when ffmpeg is not installed or not runnable.
// The pipeline degrades gracefully on it instead of failing the operation.
var ErrUnavailable = errors.New("ffmpeg not available")

// Transcoder merges or converts downloaded streams.
type Transcoder interface {
	Available() bool
	Merge(ctx context.Context, videoPath, audioPath, outPath string) error
	ToMP3(ctx context.Context, audioPath, outPath string) error
}

// FFmpeg is the production transcoder.
type FFmpeg struct {
	path string
}

// Detect probes for the ffmpeg binary. A missing binary is not an error;
// the returned transcoder simply reports itself unavailable.
func Detect() *FFmpeg {
	path, err := exec.LookPath(ffmpegCommand)
	if err != nil {
		return &FFmpeg{}
	}
	return &FFmpeg{path: path}
}

// Available reports whether ffmpeg can be invoked.
func (f *FFmpeg) Available() bool {
	return f.path != ""
}

// Merge multiplexes a video-only and an audio-only file into one container,
// copying the video stream and encoding audio to AAC.
func (f *FFmpeg) Merge(ctx context.Context, videoPath, audioPath, outPath string) error {
	if !f.Available() {
		return ErrUnavailable
	}
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", audioCodec,
		outPath,
	}
	return f.run(ctx, args)
}

// ToMP3 converts a downloaded audio container to mp3 at the best VBR
// quality.
func (f *FFmpeg) ToMP3(ctx context.Context, audioPath, outPath string) error {
	if !f.Available() {
		return ErrUnavailable
	}
	args := []string{
		"-y",
		"-i", audioPath,
		"-q:a", "0",
		"-map", "a",
		outPath,
	}
	return f.run(ctx, args)
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.path, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, string(output))
	}
	return nil
}
