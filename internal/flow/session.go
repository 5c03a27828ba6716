package flow

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greenwave-data/intersection.report/internal/timeutil"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("flow session not found")

// SampleInterval is how often a session polls its count source.
const SampleInterval = time.Second

// Session samples a live vehicle-count source once per second and feeds the
// tracker. It is created and torn down by the Manager.
type Session struct {
	ID        string
	Label     string
	StartedAt time.Time

	tracker *Tracker
	source  func() int
	clock   timeutil.Clock

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Metrics returns the session's current metrics.
func (s *Session) Metrics() Metrics {
	return s.tracker.Snapshot()
}

// Record feeds one observation directly, bypassing the sampling ticker.
func (s *Session) Record(count int) {
	s.tracker.Record(count)
}

func (s *Session) run() {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C():
			s.tracker.Record(s.source())
		}
	}
}

func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Manager owns flow sessions keyed by uuid.
type Manager struct {
	clock timeutil.Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns an empty session manager using the given clock.
func NewManager(clock timeutil.Clock) *Manager {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Manager{clock: clock, sessions: make(map[string]*Session)}
}

// Start creates a session sampling the given count source once per second.
// The label is free-form context for listings, typically a run id or an
// approach name.
func (m *Manager) Start(label string, source func() int) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Label:     label,
		StartedAt: m.clock.Now(),
		tracker:   NewTracker(DefaultAlpha, DefaultWindow),
		source:    source,
		clock:     m.clock,
		stopCh:    make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Stop halts the session's sampling and removes it, returning its final
// metrics.
func (m *Manager) Stop(id string) (Metrics, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return Metrics{}, ErrSessionNotFound
	}
	s.stop()
	return s.Metrics(), nil
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// StopAll tears down every live session. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.stop()
	}
}
