package extract

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"ytfetch-bot/internal/model"
)

// Package extract adapts the youtube library into the bot's domain: it turns
// a URL into a media handle with an immutable list of stream descriptors and
// opens individual streams for download.

// mp4 container filters matching what Telegram clients play inline.
const (
	videoMimePrefix = "video/mp4"
	audioMimePrefix = "audio/mp4"
)

// Media is the in-memory handle for one extracted video: its display
// metadata plus every selectable encoding. Streams are immutable once
// mapped.
type Media struct {
	ID       string
	Title    string
	Author   string
	Duration time.Duration
	Views    int
	Streams  []model.StreamDescriptor

	client *youtube.Client
	video  *youtube.Video
}

// Extractor turns a URL into a media handle.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Media, error)
}

// Client is the production extractor.
type Client struct {
	yt youtube.Client
}

// NewClient creates an extractor backed by the youtube library.
func NewClient() *Client {
	return &Client{}
}

// Extract fetches metadata for the URL and maps every format into a stream
// descriptor. It performs no downloads.
func (c *Client) Extract(ctx context.Context, url string) (*Media, error) {
	video, err := c.yt.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", url, err)
	}

	streams := make([]model.StreamDescriptor, 0, len(video.Formats))
	for _, f := range video.Formats {
		streams = append(streams, model.StreamDescriptor{
			Itag:        f.ItagNo,
			MimeType:    f.MimeType,
			Quality:     f.QualityLabel,
			Height:      f.Height,
			Size:        f.ContentLength,
			AudioOnly:   strings.HasPrefix(f.MimeType, "audio/"),
			Progressive: strings.HasPrefix(f.MimeType, "video/") && f.AudioChannels > 0,
		})
	}

	return &Media{
		ID:       video.ID,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
		Views:    video.Views,
		Streams:  streams,
		client:   &c.yt,
		video:    video,
	}, nil
}

// Open starts downloading the stream behind a descriptor. The caller owns
// the returned reader.
func (m *Media) Open(ctx context.Context, desc model.StreamDescriptor) (io.ReadCloser, int64, error) {
	if m.client == nil || m.video == nil {
		return nil, 0, fmt.Errorf("media handle %q has no source", m.ID)
	}
	formats := m.video.Formats.Itag(desc.Itag)
	if len(formats) == 0 {
		return nil, 0, fmt.Errorf("itag %d not present in media %q", desc.Itag, m.ID)
	}
	return m.client.GetStreamContext(ctx, m.video, &formats[0])
}

// VideoStreams returns the selectable mp4 video encodings of the handle,
// sorted strictly descending by resolution. The order is deterministic so a
// rendered index always resolves to the same descriptor.
func (m *Media) VideoStreams() []model.StreamDescriptor {
	return VideoStreams(m.Streams)
}

// BestAudio returns the preferred audio-only encoding of the handle.
func (m *Media) BestAudio() (model.StreamDescriptor, bool) {
	return BestAudio(m.Streams)
}

// VideoStreams filters mp4 encodings that carry video and orders them by
// resolution descending. Ties break on size descending, then itag, keeping
// the ordering stable across calls.
func VideoStreams(streams []model.StreamDescriptor) []model.StreamDescriptor {
	out := make([]model.StreamDescriptor, 0, len(streams))
	for _, s := range streams {
		if strings.HasPrefix(s.MimeType, videoMimePrefix) && s.Quality != "" {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Height != out[j].Height {
			return out[i].Height > out[j].Height
		}
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Itag < out[j].Itag
	})
	return out
}

// BestAudio picks the first audio-only mp4 encoding, in the order the
// extractor reported them. ok is false when the media has none.
func BestAudio(streams []model.StreamDescriptor) (model.StreamDescriptor, bool) {
	for _, s := range streams {
		if s.AudioOnly && strings.HasPrefix(s.MimeType, audioMimePrefix) {
			return s, true
		}
	}
	return model.StreamDescriptor{}, false
}
