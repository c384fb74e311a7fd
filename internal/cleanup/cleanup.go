// Package cleanup keeps the teardown steps of a test database and runs them
// exactly once, newest first.
package cleanup

import (
	"sync"

	"go.uber.org/zap"
)

// Func is a single teardown step. It returns an error if the step fails.
type Func func() error

type step struct {
	name string
	fn   Func
}

// Manager manages the stack of teardown steps.
type Manager struct {
	mu     sync.Mutex  // Protects steps and err
	steps  []step      // LIFO
	err    error       // First error encountered during Execute
	logger *zap.Logger // Logger for reporting step errors
	once   sync.Once   // Ensures Execute runs the steps only once
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Add pushes a named step. Nil steps are ignored.
func (m *Manager) Add(name string, f Func) {
	if f == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{name: name, fn: f})
}

// Len reports how many steps are registered.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

// Execute runs every registered step in reverse order of registration. A
// failing step does not stop the remaining ones. The first error is kept and
// returned by this and every later call; later steps never run twice.
func (m *Manager) Execute() error {
	m.once.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.logger.Debug("Running cleanup steps", zap.Int("count", len(m.steps)))
		for i := len(m.steps) - 1; i >= 0; i-- {
			s := m.steps[i]
			if err := s.fn(); err != nil {
				if m.err == nil {
					m.err = err
					m.logger.Error("Cleanup step failed", zap.String("step", s.name), zap.Error(err))
				} else {
					m.logger.Error("Additional cleanup step failed", zap.String("step", s.name), zap.Error(err))
				}
				continue
			}
			m.logger.Debug("Cleanup step done", zap.String("step", s.name))
		}
		m.steps = nil

		// Ignore sync error as recommended by zap docs
		_ = m.logger.Sync()
	})
	return m.err
}
