package live

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/cotisation-live/internal/model"
)

// ErrSessionNotFound is returned for unknown or closed sessions.
var ErrSessionNotFound = errors.New("live session not found")

// Widget is a controller mounted on a page. All methods run on the loop.
type Widget interface {
	Start()
	Handle(ev model.Event)
	Stop()
}

// Session ties a page, its loop and the widget mounted on it.
type Session struct {
	ID     string
	Page   *StreamPage
	Loop   *Loop
	widget Widget

	mu        sync.Mutex
	lastSeen  time.Time
	streaming int
}

// Dispatch forwards a DOM event to the widget.
func (s *Session) Dispatch(ev model.Event) bool {
	s.touch()
	return s.Loop.Post(func() { s.widget.Handle(ev) })
}

// Attach marks a stream as reading the session; call the returned func when
// the stream ends.
func (s *Session) Attach() (detach func()) {
	s.mu.Lock()
	s.streaming++
	s.lastSeen = time.Now()
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.streaming--
		s.lastSeen = time.Now()
		s.mu.Unlock()
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming > 0 {
		return 0
	}
	return now.Sub(s.lastSeen)
}

func (s *Session) close() {
	s.Loop.Do(s.widget.Stop)
	s.Loop.Close()
}

// MountFunc builds the widget for a page once its id, loop and page exist.
type MountFunc func(id string, loop *Loop, page Page) (Widget, error)

// Registry holds the open sessions.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	bufferSize int
	log        *slog.Logger
}

// NewRegistry returns an empty registry whose pages buffer bufferSize patches.
func NewRegistry(bufferSize int, log *slog.Logger) *Registry {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Registry{
		sessions:   map[string]*Session{},
		bufferSize: bufferSize,
		log:        log,
	}
}

// Open creates a session, mounts its widget and starts it.
func (r *Registry) Open(mount MountFunc) (*Session, error) {
	id := uuid.New().String()
	page := NewStreamPage(r.bufferSize, r.log.With("session", id))
	loop := NewLoop()

	w, err := mount(id, loop, page)
	if err != nil {
		loop.Close()
		return nil, err
	}

	s := &Session{ID: id, Page: page, Loop: loop, widget: w, lastSeen: time.Now()}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	loop.Post(w.Start)
	return s, nil
}

// Get returns an open session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close stops and forgets a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	return nil
}

// Sweep closes sessions with no stream attached for longer than idle and
// returns how many were closed.
func (r *Registry) Sweep(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.idleSince(now) > idle {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	return len(stale)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll stops every session, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}
