package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ytfetch-bot/internal/model"
	"ytfetch-bot/internal/platform"
	"ytfetch-bot/internal/session"
	"ytfetch-bot/internal/transcode"
)

// Package pipeline fetches the selected streams to the scratch directory,
// invokes ffmpeg for merge/convert steps, and produces the single final
// artifact. Every path it creates is registered on the session before the
// next step runs, so cleanup covers partial failures.

// ErrTooLarge rejects a stream whose reported size exceeds the configured
// upload limit before any bytes are fetched.
var ErrTooLarge = errors.New("stream exceeds the size limit")

// ErrNoAudioStream is returned when a non-progressive video has no
// compatible audio-only encoding to merge with.
var ErrNoAudioStream = errors.New("no audio stream found")

// Fetcher opens the content behind a stream descriptor. extract.Media
// satisfies it; tests provide fakes.
type Fetcher interface {
	Open(ctx context.Context, desc model.StreamDescriptor) (io.ReadCloser, int64, error)
}

// ProgressFunc receives coarse user-facing status updates. It must tolerate
// being called from the download goroutine.
type ProgressFunc func(text string)

// Result is the outcome of one pipeline run.
type Result struct {
	Artifact model.Artifact
	NoAudio  bool // video delivered without audio (ffmpeg missing)
	RawAudio bool // audio delivered in its original container (ffmpeg missing)
}

// Pipeline drives download and transcode for one operation at a time.
type Pipeline struct {
	dir      string
	maxBytes int64
	ffmpeg   transcode.Transcoder
	log      *slog.Logger
}

// New creates a pipeline writing into dir. maxBytes of 0 disables the size
// guard.
func New(dir string, maxBytes int64, tc transcode.Transcoder, log *slog.Logger) *Pipeline {
	return &Pipeline{
		dir:      dir,
		maxBytes: maxBytes,
		ffmpeg:   tc,
		log:      log.With("component", "pipeline"),
	}
}

// FetchVideo produces the final video artifact for the selected encoding.
// audio is the best audio-only encoding of the same media handle, or nil if
// it has none; it is only consulted for non-progressive selections.
func (p *Pipeline) FetchVideo(ctx context.Context, src Fetcher, sel model.StreamDescriptor, audio *model.StreamDescriptor, sess *session.Session, progress ProgressFunc) (*Result, error) {
	if err := p.checkSize(sel); err != nil {
		return nil, err
	}

	base := fmt.Sprintf("video_%d_%s", sess.UserID, uuid.NewString())

	if sel.Progressive {
		path := filepath.Join(p.dir, base+".mp4")
		sess.Register(path)
		progress("📥 Downloading video...")
		if err := p.download(ctx, src, sel, path, progress); err != nil {
			return nil, err
		}
		progress("✅ Video download complete. Processing...")
		return &Result{Artifact: model.Artifact{Path: path, Role: model.RoleMergedFinal}}, nil
	}

	if audio == nil {
		return nil, ErrNoAudioStream
	}

	videoPath := filepath.Join(p.dir, base+"_video.mp4")
	sess.Register(videoPath)
	progress("📥 Downloading video part...")
	if err := p.download(ctx, src, sel, videoPath, progress); err != nil {
		return nil, err
	}
	progress("✅ Video part downloaded.")

	audioPath := filepath.Join(p.dir, base+"_audio.m4a")
	sess.Register(audioPath)
	progress("📥 Downloading audio part...")
	if err := p.download(ctx, src, *audio, audioPath, progress); err != nil {
		return nil, err
	}
	progress("✅ Audio part downloaded. Merging...")

	if !p.ffmpeg.Available() {
		p.log.Warn("ffmpeg missing, delivering video without audio", "user", sess.UserID)
		progress("⚠️ FFmpeg not found. Sending video without audio...")
		return &Result{
			Artifact: model.Artifact{Path: videoPath, Role: model.RoleVideoOnly},
			NoAudio:  true,
		}, nil
	}

	finalPath := filepath.Join(p.dir, "final_"+base+".mp4")
	sess.Register(finalPath)
	if err := p.ffmpeg.Merge(ctx, videoPath, audioPath, finalPath); err != nil {
		return nil, fmt.Errorf("merging streams: %w", err)
	}
	progress("⚙️ Processing complete. Uploading...")

	return &Result{Artifact: model.Artifact{Path: finalPath, Role: model.RoleMergedFinal}}, nil
}

// FetchAudio produces the final audio artifact: the best audio-only
// encoding, converted to mp3 when ffmpeg is present.
func (p *Pipeline) FetchAudio(ctx context.Context, src Fetcher, audio model.StreamDescriptor, title string, sess *session.Session, progress ProgressFunc) (*Result, error) {
	if err := p.checkSize(audio); err != nil {
		return nil, err
	}

	audioPath := filepath.Join(p.dir, fmt.Sprintf("audio_%d_%s.m4a", sess.UserID, uuid.NewString()))
	sess.Register(audioPath)
	progress("📥 Downloading audio...")
	if err := p.download(ctx, src, audio, audioPath, progress); err != nil {
		return nil, err
	}
	progress("✅ Audio download complete. Processing...")

	if !p.ffmpeg.Available() {
		p.log.Warn("ffmpeg missing, delivering original audio container", "user", sess.UserID)
		progress("⚠️ FFmpeg not found. Sending original audio format...")
		return &Result{
			Artifact: model.Artifact{Path: audioPath, Role: model.RoleAudioOnly},
			RawAudio: true,
		}, nil
	}

	mp3Path := filepath.Join(p.dir, platform.SanitizeFilename(title)+".mp3")
	sess.Register(mp3Path)
	if err := p.ffmpeg.ToMP3(ctx, audioPath, mp3Path); err != nil {
		return nil, fmt.Errorf("converting audio: %w", err)
	}
	progress("📤 Uploading...")

	return &Result{Artifact: model.Artifact{Path: mp3Path, Role: model.RoleAudioOnly}}, nil
}

func (p *Pipeline) checkSize(desc model.StreamDescriptor) error {
	if p.maxBytes > 0 && desc.Size > p.maxBytes {
		return fmt.Errorf("%w: %.1f MB", ErrTooLarge, desc.SizeMB())
	}
	return nil
}

// download copies one stream to path, pushing throttled percentage updates.
func (p *Pipeline) download(ctx context.Context, src Fetcher, desc model.StreamDescriptor, path string, progress ProgressFunc) error {
	stream, size, err := src.Open(ctx, desc)
	if err != nil {
		return fmt.Errorf("opening stream %d: %w", desc.Itag, err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(newProgressWriter(file, size, progress), stream); err != nil {
		return fmt.Errorf("downloading to %s: %w", path, err)
	}
	p.log.Info("stream downloaded", "itag", desc.Itag, "path", path, "bytes", size)
	return nil
}
