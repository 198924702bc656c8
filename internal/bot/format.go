package bot

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopkg.in/telebot.v3"

	"ytfetch-bot/internal/extract"
	"ytfetch-bot/internal/model"
)

// Callback button uniques. The quality buttons carry the rendered index as
// their payload.
const (
	uniqueVideo   = "opt_video"
	uniqueAudio   = "opt_audio"
	uniqueBack    = "opt_back"
	uniqueQuality = "quality"
)

const maxTitleLen = 50

const welcomeText = `🎥 *YouTube Downloader Bot* 🎥

Send me a YouTube link, and I'll help you download:
• Video in various qualities
• Audio in MP3 format

*How to use:*
1. Paste a YouTube link
2. Choose video or audio
3. Select quality (for video)
4. Wait for download

Let's start! Send me a YouTube link 🔗`

const qualityPrompt = "Select video quality:\n\nHigher quality = Larger file size"

// looksLikeLink is a cheap pre-check before handing the text to the
// extractor; anything non-URL gets a hint instead of an extraction error.
func looksLikeLink(text string) bool {
	u, err := url.Parse(text)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// optionPrompt renders the metadata header shown with the video/audio
// choice.
func optionPrompt(media *extract.Media) string {
	return fmt.Sprintf("📺 %s\n\n⏱ Duration: %s\n👁 Views: %s\n\nChoose download format:",
		truncateTitle(media.Title),
		formatDuration(media.Duration),
		formatViews(media.Views))
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLen {
		return title
	}
	return string(runes[:maxTitleLen]) + "..."
}

// formatDuration renders total minutes and seconds, e.g. "74:05" for a long
// stream.
func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// formatViews groups digits by thousands: 1234567 -> "1,234,567".
func formatViews(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		s = s[1:]
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if n < 0 {
		return "-" + b.String()
	}
	return b.String()
}

func videoCaption(title, quality string, noAudio bool) string {
	caption := fmt.Sprintf("🎥 %s\n🎬 %s", title, quality)
	if noAudio {
		caption += "\n⚠️ No audio track (ffmpeg unavailable)"
	}
	return caption
}

func audioCaption(title string) string {
	return "🎵 " + title
}

// optionKeyboard builds the video/audio choice buttons.
func optionKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	video := m.Data("🎥 Download Video", uniqueVideo)
	audio := m.Data("🎵 Download Audio (MP3)", uniqueAudio)
	m.Inline(m.Row(video), m.Row(audio))
	return m
}

// qualityKeyboard builds one button per rendered descriptor, tagged with its
// index, plus a back affordance. The button order is exactly the descriptor
// order, which the session snapshots for selection.
func qualityKeyboard(streams []model.StreamDescriptor) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(streams)+1)
	for i, s := range streams {
		rows = append(rows, m.Row(m.Data("🎥 "+s.Label(), uniqueQuality, strconv.Itoa(i))))
	}
	rows = append(rows, m.Row(m.Data("↩️ Back", uniqueBack)))
	m.Inline(rows...)
	return m
}
