package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// Manager owns the lifecycle of the background workers
type Manager struct {
	workers []Worker
	logger  *zap.Logger

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// NewManager creates an empty worker manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a worker; workers registered after StartAll are not started
func (m *Manager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Debug("Worker registered",
		zap.String("worker_name", w.Name()),
		zap.Int("total_workers", len(m.workers)))
}

// StartAll starts every registered worker under a shared cancellable context.
// A worker that fails to start is logged and skipped.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("workers already running")
	}

	var runCtx context.Context
	runCtx, m.cancel = context.WithCancel(ctx)
	m.running = true

	for _, w := range m.workers {
		if err := w.Start(runCtx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			continue
		}
		m.logger.Info("Worker started", zap.String("worker_name", w.Name()))
	}
	return nil
}

// StopAll cancels the shared context and stops every worker
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	m.cancel()

	failed := 0
	for _, w := range m.workers {
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to stop %d workers", failed)
	}

	m.logger.Info("All workers stopped", zap.Int("count", len(m.workers)))
	return nil
}

// Count returns the number of registered workers
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// IsRunning reports whether StartAll has been called without a matching StopAll
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
