package session

import (
	"log/slog"
	"os"
	"sync"

	"ytfetch-bot/internal/extract"
	"ytfetch-bot/internal/model"
)

// Package session tracks per-user transient state: the submitted link, the
// extracted media handle, the rendered quality snapshot, and the paths of
// in-flight temporary files so they can be cleaned up on any exit path.

// Session holds the state of one user. Sessions live for the process
// lifetime; there is no eviction.
type Session struct {
	UserID int64

	mu        sync.Mutex
	sourceURL string
	media     *extract.Media
	qualities []model.StreamDescriptor
	stage     model.Stage
	busy      bool
	pending   []string
}

// Store is the session registry owned by the application root.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	log      *slog.Logger
}

// NewStore creates an empty session registry.
func NewStore(log *slog.Logger) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		log:      log.With("component", "session"),
	}
}

// Get returns the session for a user, creating it on first contact.
func (st *Store) Get(userID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[userID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.sessions[userID]; ok {
		return s
	}
	s = &Session{UserID: userID, stage: model.StageIdle}
	st.sessions[userID] = s
	return s
}

// SetSource records the last submitted link. It touches nothing else, so a
// failed extraction leaves prior state intact.
func (s *Session) SetSource(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceURL = url
}

// Source returns the last submitted link.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceURL
}

// SetMedia replaces the media handle after a successful extraction. Any
// quality snapshot from a prior operation is invalidated; the new handle is
// owned exclusively by the session.
func (s *Session) SetMedia(m *extract.Media) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = m
	s.qualities = nil
	s.stage = model.StageAwaitingOption
}

// Media returns the current media handle, or nil if none.
func (s *Session) Media() *extract.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media
}

// SetQualities stores the ordered descriptor list exactly as rendered to the
// user. Selection indices resolve against this snapshot only, so a selection
// stays stable even if the underlying metadata were re-derived differently.
func (s *Session) SetQualities(list []model.StreamDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualities = list
	s.stage = model.StageAwaitingQuality
}

// Quality resolves a rendered index against the snapshot.
func (s *Session) Quality(index int) (model.StreamDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.qualities) {
		return model.StreamDescriptor{}, false
	}
	return s.qualities[index], true
}

// Stage returns the current flow stage.
func (s *Session) Stage() model.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// SetStage moves the flow to the given stage.
func (s *Session) SetStage(stage model.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

// TryBegin claims the session for one operation. It returns false if another
// operation is already in flight; the caller must report that to the user
// instead of starting a second download.
func (s *Session) TryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	s.stage = model.StageDownloading
	return true
}

// Finish releases the session after an operation ends, successfully or not.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.stage = model.StageIdle
}

// Register records a temporary file path the instant it is created, before
// any later step can fail, so cleanup always covers it.
func (s *Session) Register(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, path)
}

// Pending returns a copy of the registered paths.
func (s *Session) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.pending...)
}

// Cleanup deletes every registered path that still exists and empties the
// set. It is unconditional and idempotent: an already-absent path is a no-op
// logged at debug, never an error.
func (s *Session) Cleanup(log *slog.Logger) {
	s.mu.Lock()
	paths := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, path := range paths {
		err := os.Remove(path)
		switch {
		case err == nil:
			log.Info("removed temp file", "path", path)
		case os.IsNotExist(err):
			log.Debug("temp file already gone", "path", path)
		default:
			log.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}
}
