package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"ytfetch-bot/internal/extract"
	"ytfetch-bot/internal/model"
	"ytfetch-bot/internal/pipeline"
	"ytfetch-bot/internal/session"
	"ytfetch-bot/internal/transcode"
)

type fakeExtractor struct {
	media *extract.Media
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (*extract.Media, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

// newOfflineBot builds a telebot instance that talks to a local stub instead
// of the real API, so handlers can run in tests without network access.
func newOfflineBot(t *testing.T) *telebot.Bot {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":10,"type":"private"}}}`))
	}))
	t.Cleanup(srv.Close)

	b, err := telebot.NewBot(telebot.Settings{
		Token:   "test-token",
		URL:     srv.URL,
		Offline: true,
	})
	require.NoError(t, err)
	return b
}

func newTestHandler(t *testing.T, ex extract.Extractor) (*Handler, *session.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewStore(logger)
	pipe := pipeline.New(t.TempDir(), 0, &transcode.FFmpeg{}, logger)
	return New(newOfflineBot(t), sessions, ex, pipe, logger), sessions
}

func textContext(b *telebot.Bot, userID int64, text string) telebot.Context {
	return b.NewContext(telebot.Update{Message: &telebot.Message{
		ID:     7,
		Text:   text,
		Sender: &telebot.User{ID: userID},
		Chat:   &telebot.Chat{ID: 10},
	}})
}

func callbackContext(b *telebot.Bot, userID int64, data string) telebot.Context {
	return b.NewContext(telebot.Update{Callback: &telebot.Callback{
		Sender: &telebot.User{ID: userID},
		Data:   data,
		Message: &telebot.Message{
			ID:   7,
			Chat: &telebot.Chat{ID: 10},
		},
	}})
}

func sampleMedia() *extract.Media {
	return &extract.Media{
		ID:     "abc123",
		Title:  "Some Video",
		Author: "Someone",
		Streams: []model.StreamDescriptor{
			{Itag: 137, MimeType: "video/mp4", Quality: "1080p", Height: 1080},
			{Itag: 136, MimeType: "video/mp4", Quality: "720p", Height: 720},
			{Itag: 140, MimeType: "audio/mp4", AudioOnly: true},
		},
	}
}

func TestHandleLinkExtractionFailureLeavesIdle(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("unreachable")}
	h, sessions := newTestHandler(t, ex)

	link := "https://youtube.example/watch?v=abc123"
	require.NoError(t, h.handleLink(textContext(h.bot, 1, link)))

	sess := sessions.Get(1)
	assert.Equal(t, 1, ex.calls)
	assert.Equal(t, model.StageIdle, sess.Stage())
	assert.Empty(t, sess.Pending(), "a failed link must register no files")
	assert.Nil(t, sess.Media())
	assert.Equal(t, link, sess.Source())
}

func TestHandleLinkIgnoresNonURLText(t *testing.T) {
	ex := &fakeExtractor{media: sampleMedia()}
	h, sessions := newTestHandler(t, ex)

	require.NoError(t, h.handleLink(textContext(h.bot, 1, "hello bot")))

	assert.Zero(t, ex.calls)
	assert.Equal(t, model.StageIdle, sessions.Get(1).Stage())
}

func TestHandleLinkRejectedWhileBusy(t *testing.T) {
	ex := &fakeExtractor{media: sampleMedia()}
	h, sessions := newTestHandler(t, ex)

	sess := sessions.Get(1)
	require.True(t, sess.TryBegin())

	require.NoError(t, h.handleLink(textContext(h.bot, 1, "https://youtube.example/watch?v=next")))

	assert.Zero(t, ex.calls, "a link during an active operation must not trigger extraction")
	assert.Equal(t, model.StageDownloading, sess.Stage())
	assert.Empty(t, sess.Source())
}

func TestSelectionFlowBackDoesNotReExtract(t *testing.T) {
	ex := &fakeExtractor{media: sampleMedia()}
	h, sessions := newTestHandler(t, ex)

	require.NoError(t, h.handleLink(textContext(h.bot, 1, "https://youtube.example/watch?v=abc123")))

	sess := sessions.Get(1)
	require.Equal(t, model.StageAwaitingOption, sess.Stage())
	require.Equal(t, 1, ex.calls)

	require.NoError(t, h.handleVideoOption(callbackContext(h.bot, 1, "")))
	assert.Equal(t, model.StageAwaitingQuality, sess.Stage())

	// The snapshot holds the rendered descending order.
	first, ok := sess.Quality(0)
	require.True(t, ok)
	assert.Equal(t, "1080p", first.Quality)

	require.NoError(t, h.handleBack(callbackContext(h.bot, 1, "")))
	assert.Equal(t, model.StageAwaitingOption, sess.Stage())
	assert.Equal(t, 1, ex.calls, "back must re-render from the held media handle, not re-extract")
}

func TestHandleVideoOptionWithoutMediaHandle(t *testing.T) {
	h, sessions := newTestHandler(t, &fakeExtractor{})

	require.NoError(t, h.handleVideoOption(callbackContext(h.bot, 1, "")))

	sess := sessions.Get(1)
	assert.Equal(t, model.StageIdle, sess.Stage())
	assert.Empty(t, sess.Pending())
}

func TestHandleAudioOptionWithoutMediaHandle(t *testing.T) {
	h, sessions := newTestHandler(t, &fakeExtractor{})

	require.NoError(t, h.handleAudioOption(callbackContext(h.bot, 1, "")))

	assert.Equal(t, model.StageIdle, sessions.Get(1).Stage())
}

func TestHandleQualityMalformedIndex(t *testing.T) {
	ex := &fakeExtractor{media: sampleMedia()}
	h, sessions := newTestHandler(t, ex)

	require.NoError(t, h.handleLink(textContext(h.bot, 1, "https://youtube.example/watch?v=abc123")))
	require.NoError(t, h.handleVideoOption(callbackContext(h.bot, 1, "")))

	require.NoError(t, h.handleQuality(callbackContext(h.bot, 1, "not-a-number")))

	sess := sessions.Get(1)
	assert.Equal(t, model.StageIdle, sess.Stage())
	assert.Empty(t, sess.Pending(), "a malformed index must not reach the pipeline")
}

func TestHandleQualityOutOfRangeIndex(t *testing.T) {
	ex := &fakeExtractor{media: sampleMedia()}
	h, sessions := newTestHandler(t, ex)

	require.NoError(t, h.handleLink(textContext(h.bot, 1, "https://youtube.example/watch?v=abc123")))
	require.NoError(t, h.handleVideoOption(callbackContext(h.bot, 1, "")))

	require.NoError(t, h.handleQuality(callbackContext(h.bot, 1, "99")))

	sess := sessions.Get(1)
	assert.Equal(t, model.StageIdle, sess.Stage())
	assert.Empty(t, sess.Pending())
}

func TestHandleQualityWithoutMediaHandle(t *testing.T) {
	h, sessions := newTestHandler(t, &fakeExtractor{})

	sess := sessions.Get(1)
	sess.SetQualities([]model.StreamDescriptor{{Itag: 136, Quality: "720p", Height: 720}})

	require.NoError(t, h.handleQuality(callbackContext(h.bot, 1, "0")))

	assert.Equal(t, model.StageIdle, sess.Stage())
	assert.Empty(t, sess.Pending())
}

func TestHandleQualityRejectsConcurrentOperation(t *testing.T) {
	ex := &fakeExtractor{media: sampleMedia()}
	h, sessions := newTestHandler(t, ex)

	require.NoError(t, h.handleLink(textContext(h.bot, 1, "https://youtube.example/watch?v=abc123")))
	require.NoError(t, h.handleVideoOption(callbackContext(h.bot, 1, "")))

	sess := sessions.Get(1)
	require.True(t, sess.TryBegin()) // an operation is already in flight

	require.NoError(t, h.handleQuality(callbackContext(h.bot, 1, "0")))

	assert.Equal(t, model.StageDownloading, sess.Stage())
	assert.Empty(t, sess.Pending(), "a rejected selection must not start the pipeline")
}
