package pipeline

import (
	"fmt"
	"io"
	"time"
)

// Update throttle for byte progress: at most one message per 5 percentage
// points or 2 seconds, whichever comes first, to avoid flooding the chat
// transport.
const (
	progressStepPercent = 5
	progressMinInterval = 2 * time.Second
)

// progressWriter counts bytes flowing to the underlying writer and emits
// throttled percentage updates. With an unknown total size it stays silent.
type progressWriter struct {
	w        io.Writer
	total    int64
	written  int64
	progress ProgressFunc

	lastPercent int
	lastUpdate  time.Time
	now         func() time.Time
}

func newProgressWriter(w io.Writer, total int64, progress ProgressFunc) *progressWriter {
	return &progressWriter{
		w:           w,
		total:       total,
		progress:    progress,
		lastPercent: -progressStepPercent,
		now:         time.Now,
	}
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.written += int64(n)
	if err != nil || pw.total <= 0 || pw.progress == nil {
		return n, err
	}

	percent := int(pw.written * 100 / pw.total)
	current := pw.now()
	// The 100% mark always goes out so the user never sees a stalled bar.
	completed := percent >= 100 && pw.lastPercent < 100
	if completed || percent-pw.lastPercent >= progressStepPercent || current.Sub(pw.lastUpdate) >= progressMinInterval {
		pw.lastPercent = percent
		pw.lastUpdate = current
		pw.progress(fmt.Sprintf("📥 Downloading... %d%%\n📦 %.1fMB / %.1fMB",
			percent,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024)))
	}
	return n, err
}
