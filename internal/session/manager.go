package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/malidaftari/assistant/internal/intent"
	"github.com/malidaftari/assistant/internal/model"
	"github.com/malidaftari/assistant/pkg/logger"
	"github.com/malidaftari/assistant/pkg/metrics"
)

// Manager creates and tracks sessions, wiring each one to the shared
// translator, query executor and advisor. A nil advisor disables the advice
// stage.
type Manager struct {
	cfg        Config
	translator intent.Translator
	executor   QueryExecutor
	advisor    Advisor
	registry   *Registry
	logger     *logger.Logger
}

// NewManager creates a session manager.
func NewManager(cfg Config, translator intent.Translator, executor QueryExecutor, advisor Advisor, log *logger.Logger) *Manager {
	return &Manager{
		cfg:        cfg.withDefaults(),
		translator: translator,
		executor:   executor,
		advisor:    advisor,
		registry:   NewRegistry(),
		logger:     log,
	}
}

// Start creates a session bound to the given scope and launches its worker.
func (m *Manager) Start(scope *model.BusinessScope) *Session {
	s := newSession(scope, m.cfg, m.translator, m.executor, m.advisor, m.logger)
	s.transition(StateActive)
	m.registry.Add(s)
	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.WithLabelValues("started").Inc()
	s.logger.Info("session started", zap.String("scope_id", scope.ID))

	go s.run(func() {
		m.registry.Remove(s.ID)
		metrics.SessionsActive.Dec()
		metrics.SessionsTotal.WithLabelValues("closed").Inc()
	})

	return s
}

// Get returns a live session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	return m.registry.Get(id)
}

// ActiveSessions returns the number of live sessions.
func (m *Manager) ActiveSessions() int {
	return m.registry.Len()
}

// Shutdown closes every session and waits for their workers, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	closed := m.registry.CloseAll(CloseReasonShutdown)
	for _, s := range closed {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// IdleTimeout exposes the configured idle bound, used by the supervisor to
// size websocket deadlines.
func (m *Manager) IdleTimeout() time.Duration {
	return m.cfg.IdleTimeout
}
