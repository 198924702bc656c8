package bot

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v3"

	"ytfetch-bot/internal/extract"
	"ytfetch-bot/internal/model"
	"ytfetch-bot/internal/pipeline"
	"ytfetch-bot/internal/session"
)

// Package bot wires the selection flow onto the Telegram transport: link →
// video/audio choice → quality → download → delivery, with unconditional
// cleanup on every exit path.

const extractTimeout = 30 * time.Second

// Handler owns the bot's update handlers and their collaborators.
type Handler struct {
	bot       *telebot.Bot
	sessions  *session.Store
	extractor extract.Extractor
	pipe      *pipeline.Pipeline
	log       *slog.Logger
}

// New creates the handler set.
func New(b *telebot.Bot, sessions *session.Store, extractor extract.Extractor, pipe *pipeline.Pipeline, log *slog.Logger) *Handler {
	return &Handler{
		bot:       b,
		sessions:  sessions,
		extractor: extractor,
		pipe:      pipe,
		log:       log.With("component", "bot"),
	}
}

// Register attaches all command, text, and callback handlers.
func (h *Handler) Register() {
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle(telebot.OnText, h.handleLink)
	h.bot.Handle(&telebot.Btn{Unique: uniqueVideo}, h.handleVideoOption)
	h.bot.Handle(&telebot.Btn{Unique: uniqueAudio}, h.handleAudioOption)
	h.bot.Handle(&telebot.Btn{Unique: uniqueBack}, h.handleBack)
	h.bot.Handle(&telebot.Btn{Unique: uniqueQuality}, h.handleQuality)
}

func (h *Handler) handleStart(c telebot.Context) error {
	return c.Send(welcomeText, telebot.ModeMarkdown)
}

// handleLink runs extraction for a submitted URL and presents the
// video/audio choice. A link sent during an active operation is rejected
// outright. On extraction failure the session stays idle and keeps its prior
// fields except the source URL.
func (h *Handler) handleLink(c telebot.Context) error {
	link := strings.TrimSpace(c.Text())
	if !looksLikeLink(link) {
		return c.Send("📎 Please send me a video link.")
	}

	sess := h.sessions.Get(c.Sender().ID)
	if sess.Stage().IsActive() {
		return c.Send("⏳ Another download is already in progress. Please wait for it to finish.")
	}
	sess.SetSource(link)

	status, err := h.bot.Send(c.Chat(), "⏳ Analyzing video...")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	media, err := h.extractor.Extract(ctx, link)
	if err != nil {
		h.log.Error("extraction failed", "user", c.Sender().ID, "url", link, "error", err)
		sess.SetStage(model.StageIdle)
		h.edit(status, "❌ Failed to process the video link. Please check the URL and try again.")
		return nil
	}

	sess.SetMedia(media)
	h.log.Info("link extracted", "user", c.Sender().ID, "video", media.ID, "streams", len(media.Streams))
	h.edit(status, optionPrompt(media), optionKeyboard())
	return nil
}

// handleVideoOption lists the available resolutions, descending, and
// snapshots them on the session so index selection stays stable.
func (h *Handler) handleVideoOption(c telebot.Context) error {
	defer h.respond(c)

	sess := h.sessions.Get(c.Sender().ID)
	media := sess.Media()
	if media == nil {
		return c.Edit("❌ Session expired. Please send the link again.")
	}

	streams := media.VideoStreams()
	if len(streams) == 0 {
		sess.SetStage(model.StageIdle)
		return c.Edit("❌ No suitable video streams found.")
	}

	sess.SetQualities(streams)
	return c.Edit(qualityPrompt, qualityKeyboard(streams))
}

// handleAudioOption starts the audio pipeline straight away with the best
// audio-only encoding.
func (h *Handler) handleAudioOption(c telebot.Context) error {
	sess := h.sessions.Get(c.Sender().ID)
	media := sess.Media()
	if media == nil {
		h.respond(c)
		return c.Edit("❌ Session expired. Please send the link again.")
	}

	audio, ok := media.BestAudio()
	if !ok {
		h.respond(c)
		sess.SetStage(model.StageIdle)
		return c.Edit("❌ No audio stream found.")
	}

	if !sess.TryBegin() {
		return c.Respond(&telebot.CallbackResponse{Text: "⏳ Another download is already in progress."})
	}
	h.respond(c)

	status := c.Message()
	h.edit(status, "⏳ Processing audio download.")
	go h.runAudio(sess, media, audio, status)
	return nil
}

// handleBack re-renders the video/audio choice from the held media handle,
// without re-contacting the extractor.
func (h *Handler) handleBack(c telebot.Context) error {
	defer h.respond(c)

	sess := h.sessions.Get(c.Sender().ID)
	media := sess.Media()
	if media == nil {
		return c.Edit("❌ Session expired. Please send the link again.")
	}

	sess.SetStage(model.StageAwaitingOption)
	return c.Edit(optionPrompt(media), optionKeyboard())
}

// handleQuality resolves the tapped index against the session's snapshot
// and starts the video pipeline. Malformed or out-of-range indices fail
// fast without touching the pipeline.
func (h *Handler) handleQuality(c telebot.Context) error {
	sess := h.sessions.Get(c.Sender().ID)

	index, err := strconv.Atoi(c.Data())
	if err != nil {
		h.respond(c)
		sess.SetStage(model.StageIdle)
		return c.Edit("❌ Failed to select resolution. Please send the link again.")
	}

	sel, ok := sess.Quality(index)
	if !ok {
		h.respond(c)
		sess.SetStage(model.StageIdle)
		return c.Edit("❌ Failed to select resolution. Please send the link again.")
	}

	media := sess.Media()
	if media == nil {
		h.respond(c)
		sess.SetStage(model.StageIdle)
		return c.Edit("❌ Session expired. Please send the link again.")
	}

	if !sess.TryBegin() {
		return c.Respond(&telebot.CallbackResponse{Text: "⏳ Another download is already in progress."})
	}
	h.respond(c)

	status := c.Message()
	h.edit(status, "⏳ Starting download.")
	go h.runVideo(sess, media, sel, status)
	return nil
}

// runVideo executes the download/transcode pipeline for a video selection
// off the update loop, then delivers and cleans up.
func (h *Handler) runVideo(sess *session.Session, media *extract.Media, sel model.StreamDescriptor, status *telebot.Message) {
	defer sess.Finish()
	defer sess.Cleanup(h.log)

	var audio *model.StreamDescriptor
	if a, ok := media.BestAudio(); ok {
		audio = &a
	}

	res, err := h.pipe.FetchVideo(context.Background(), media, sel, audio, sess, h.progressTo(status))
	if err != nil {
		h.fail(status, sess, err)
		return
	}

	sess.SetStage(model.StageDelivering)
	video := &telebot.Video{
		File:     telebot.FromDisk(res.Artifact.Path),
		FileName: "video.mp4",
		MIME:     "video/mp4",
		Caption:  videoCaption(media.Title, sel.Quality, res.NoAudio),
	}
	if _, err := h.bot.Send(status.Chat, video); err != nil {
		h.fail(status, sess, err)
		return
	}
	h.edit(status, "✅ Complete.")
	h.log.Info("video delivered", "user", sess.UserID, "video", media.ID, "quality", sel.Quality, "role", res.Artifact.Role)
}

// runAudio executes the audio pipeline off the update loop, then delivers
// and cleans up.
func (h *Handler) runAudio(sess *session.Session, media *extract.Media, audio model.StreamDescriptor, status *telebot.Message) {
	defer sess.Finish()
	defer sess.Cleanup(h.log)

	res, err := h.pipe.FetchAudio(context.Background(), media, audio, media.Title, sess, h.progressTo(status))
	if err != nil {
		h.fail(status, sess, err)
		return
	}

	sess.SetStage(model.StageDelivering)
	mime := "audio/mpeg"
	if res.RawAudio {
		mime = "audio/mp4"
	}
	track := &telebot.Audio{
		File:      telebot.FromDisk(res.Artifact.Path),
		FileName:  filepath.Base(res.Artifact.Path),
		MIME:      mime,
		Title:     media.Title,
		Performer: media.Author,
		Caption:   audioCaption(media.Title),
	}
	if _, err := h.bot.Send(status.Chat, track); err != nil {
		h.fail(status, sess, err)
		return
	}
	h.edit(status, "✅ Complete.")
	h.log.Info("audio delivered", "user", sess.UserID, "video", media.ID, "role", res.Artifact.Role)
}

// progressTo bridges pipeline updates into edits of the status message.
func (h *Handler) progressTo(status *telebot.Message) pipeline.ProgressFunc {
	return func(text string) {
		h.edit(status, text)
	}
}

// fail reports an operation failure to the user and logs the detail. The
// deferred Cleanup/Finish on the operation goroutine return the session to
// idle.
func (h *Handler) fail(status *telebot.Message, sess *session.Session, err error) {
	h.log.Error("operation failed", "user", sess.UserID, "error", err)
	h.edit(status, "❌ Failed.\nError: "+err.Error())
}

// edit updates the status message in place; edit errors (e.g. unchanged
// text) are logged at debug and never abort the operation.
func (h *Handler) edit(status *telebot.Message, text string, opts ...interface{}) {
	if _, err := h.bot.Edit(status, text, opts...); err != nil {
		h.log.Debug("status edit failed", "error", err)
	}
}

// respond acknowledges a callback so the client stops the button spinner.
func (h *Handler) respond(c telebot.Context) {
	if err := c.Respond(); err != nil {
		h.log.Debug("callback ack failed", "error", err)
	}
}
