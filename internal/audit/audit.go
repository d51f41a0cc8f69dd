// Package audit records security-relevant events: identity-to-scope bindings
// and gateway denials. Entries are fire-and-forget; a recording failure never
// blocks or fails the operation being audited.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/malidaftari/assistant/pkg/logger"
)

// Kind classifies an audit entry.
type Kind string

const (
	KindScopeBound    Kind = "scope_bound"
	KindScopeRefused  Kind = "scope_refused"
	KindAccessDenied  Kind = "access_denied"
	KindQueryExecuted Kind = "query_executed"
)

// Entry is one audit record.
type Entry struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	IdentityID string    `json:"identity_id,omitempty"`
	ScopeID    string    `json:"scope_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Domain     string    `json:"domain,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RowCount   int       `json:"row_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder accepts audit entries.
type Recorder interface {
	Record(ctx context.Context, e *Entry)
}

// LogRecorder writes audit entries to the structured log. It is the fallback
// when no broker is configured and the sink of last resort on publish errors.
type LogRecorder struct {
	logger *logger.Logger
}

// NewLogRecorder creates a log-backed recorder.
func NewLogRecorder(log *logger.Logger) *LogRecorder {
	return &LogRecorder{logger: log}
}

// Record writes the entry as a structured log line.
func (r *LogRecorder) Record(_ context.Context, e *Entry) {
	r.logger.Info("audit",
		zap.String("audit_id", e.ID),
		zap.String("kind", string(e.Kind)),
		zap.String("identity_id", e.IdentityID),
		zap.String("scope_id", e.ScopeID),
		zap.String("session_id", e.SessionID),
		zap.String("domain", e.Domain),
		zap.String("reason", e.Reason),
	)
}
