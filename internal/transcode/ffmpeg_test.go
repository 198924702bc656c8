package transcode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailableFFmpeg(t *testing.T) {
	f := &FFmpeg{}

	assert.False(t, f.Available())

	err := f.Merge(context.Background(), "v.mp4", "a.mp4", "out.mp4")
	require.ErrorIs(t, err, ErrUnavailable)

	err = f.ToMP3(context.Background(), "a.mp4", "out.mp3")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDetectNeverNil(t *testing.T) {
	f := Detect()
	require.NotNil(t, f)
	// Whether ffmpeg is installed depends on the host; either way the probe
	// must not panic and Available must agree with the stored path.
	assert.Equal(t, f.path != "", f.Available())
}
