package server

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/prompt"
	"prompt-image-editor/internal/transform"
)

// ErrSessionNotFound is returned for unknown or evicted session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Entry is one live editing session.
type Entry struct {
	id         uuid.UUID
	dispatcher *core.Dispatcher
	created    time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

func (e *Entry) ID() string {
	return e.id.String()
}

func (e *Entry) Session() *core.Session {
	return e.dispatcher.Session()
}

func (e *Entry) Dispatcher() *core.Dispatcher {
	return e.dispatcher
}

func (e *Entry) touch() {
	e.mu.Lock()
	e.lastUsed = time.Now()
	e.mu.Unlock()
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

// SessionStore keeps editing sessions in memory, keyed by UUID.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Entry

	lib         transform.Library
	interpreter prompt.Interpreter
	logger      *slog.Logger
	brushRadius int
	blurKernel  int
}

func NewSessionStore(lib transform.Library, interpreter prompt.Interpreter, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions:    make(map[uuid.UUID]*Entry),
		lib:         lib,
		interpreter: interpreter,
		logger:      logger,
	}
}

// SetBrush configures the freehand brush of sessions created afterwards.
func (st *SessionStore) SetBrush(radius, kernel int) {
	st.brushRadius = radius
	st.blurKernel = kernel
}

// Create starts an empty session.
func (st *SessionStore) Create() (*Entry, error) {
	id := uuid.New()
	logger := st.logger.With("session", id.String())

	session := core.NewSession(st.lib, logger)
	if st.brushRadius > 0 {
		if err := session.SetBrush(st.brushRadius, st.blurKernel); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	e := &Entry{
		id:         id,
		dispatcher: core.NewDispatcher(session, st.interpreter, logger),
		created:    now,
		lastUsed:   now,
	}

	st.mu.Lock()
	st.sessions[id] = e
	st.mu.Unlock()
	return e, nil
}

// Get looks up a session by its textual ID.
func (st *SessionStore) Get(id string) (*Entry, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	st.mu.RLock()
	e, ok := st.sessions[parsed]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch()
	return e, nil
}

// Delete drops a session and reports whether it existed.
func (st *SessionStore) Delete(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[parsed]; !ok {
		return false
	}
	delete(st.sessions, parsed)
	return true
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Evict drops sessions idle for longer than maxIdle and returns how many
// were removed. Sessions with a prompt in flight are kept.
func (st *SessionStore) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for id, e := range st.sessions {
		if e.idleSince().Before(cutoff) && !e.Session().Busy() {
			delete(st.sessions, id)
			n++
		}
	}
	if n > 0 {
		st.logger.Info("SERVER: Idle sessions evicted", "count", n, "remaining", len(st.sessions))
	}
	return n
}
