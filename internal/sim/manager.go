package sim

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a run id is unknown to the manager.
var ErrNotFound = errors.New("simulation not found")

// Manager tracks live runs by id for the HTTP layer.
type Manager struct {
	mu   sync.Mutex
	runs map[string]*Run
}

// NewManager returns an empty run manager.
func NewManager() *Manager {
	return &Manager{runs: make(map[string]*Run)}
}

// Create builds a run from cfg, starts it, and registers it.
func (m *Manager) Create(cfg Config) (*Run, error) {
	r, err := NewRun(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.Start(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.runs[r.ID] = r
	m.mu.Unlock()
	return r, nil
}

// Get returns the run with the given id.
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Remove stops the run and forgets it.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	r, ok := m.runs[id]
	if ok {
		delete(m.runs, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	r.Stop()
	return nil
}

// List returns all tracked runs, ordered by id for stable output.
func (m *Manager) List() []*Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StopAll stops every tracked run. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.Unlock()
	for _, r := range runs {
		r.Stop()
	}
}
