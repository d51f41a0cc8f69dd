package handler

import (
	"context"
	"net/http"
)

// StorePinger reports business store reachability. Satisfied by
// gateway.Gateway.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports live session count. Satisfied by session.Manager.
type SessionCounter interface {
	ActiveSessions() int
}

// BrokerChecker reports audit broker connectivity. Satisfied by
// audit.NatsRecorder; nil means audit runs log-only.
type BrokerChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store    StorePinger
	sessions SessionCounter
	broker   BrokerChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store StorePinger, sessions SessionCounter, broker BrokerChecker) *HealthHandler {
	return &HealthHandler{
		store:    store,
		sessions: sessions,
		broker:   broker,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "business store unreachable",
		})
		return
	}

	audit := "log"
	if h.broker != nil {
		if !h.broker.IsConnected() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": "audit broker disconnected",
			})
			return
		}
		audit = "broker"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"audit":           audit,
		"active_sessions": h.sessions.ActiveSessions(),
	})
}
