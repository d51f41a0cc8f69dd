// Package gateway is the sole path to the business data store. Every request
// is re-validated against the session's scope at execution time, independent
// of upstream checks: a translator bug must not become a data leak.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/malidaftari/assistant/internal/audit"
	"github.com/malidaftari/assistant/internal/model"
	"github.com/malidaftari/assistant/pkg/logger"
	"github.com/malidaftari/assistant/pkg/metrics"
)

// Denial reasons.
const (
	ReasonScopeMissing     = "scope_missing"
	ReasonScopeMismatch    = "scope_mismatch"
	ReasonNotReadOnly      = "not_read_only"
	ReasonDomainNotAllowed = "domain_not_allowed"
)

// AccessDeniedError is a turn-scoped denial at the isolation boundary. It is
// always logged and audited, and never retried with a widened scope.
type AccessDeniedError struct {
	ScopeID string
	Domain  model.Domain
	Reason  string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// QueryError wraps a transient store failure. It is eligible for a single
// bounded retry inside the gateway.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Gateway validates and executes scoped read requests.
type Gateway struct {
	db       *ReadOnlyDB
	sem      *semaphore.Weighted
	maxRows  int
	recorder audit.Recorder
	logger   *logger.Logger
	now      func() time.Time
}

// New creates a gateway. maxConcurrent bounds in-flight store queries across
// all sessions to provide backpressure.
func New(db *ReadOnlyDB, maxRows int, maxConcurrent int64, recorder audit.Recorder, log *logger.Logger) *Gateway {
	if maxRows <= 0 {
		maxRows = 500
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Gateway{
		db:       db,
		sem:      semaphore.NewWeighted(maxConcurrent),
		maxRows:  maxRows,
		recorder: recorder,
		logger:   log,
		now:      time.Now,
	}
}

// Ping reports whether the store is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

// Execute runs one validated read request on behalf of a session. The
// sessionScope argument comes from the session itself, not from the request;
// the two must identify the same tenant or the request is denied.
func (g *Gateway) Execute(ctx context.Context, sessionScope *model.BusinessScope, req *model.QueryRequest) (*model.QueryResult, error) {
	if err := g.validate(ctx, sessionScope, req); err != nil {
		return nil, err
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, &QueryError{Err: err}
	}
	defer g.sem.Release(1)

	start := time.Now()
	result, err := g.run(ctx, sessionScope, req)
	if err != nil {
		// One bounded retry for transient store failures; never on
		// cancellation, and never with a different scope.
		if ctx.Err() != nil {
			metrics.RecordQuery(string(req.Domain), "error", time.Since(start).Seconds())
			return nil, err
		}
		g.logger.Warn("query failed, retrying once",
			zap.String("domain", string(req.Domain)),
			zap.Error(err),
		)
		result, err = g.run(ctx, sessionScope, req)
	}
	if err != nil {
		metrics.RecordQuery(string(req.Domain), "error", time.Since(start).Seconds())
		return nil, err
	}

	metrics.RecordQuery(string(req.Domain), "success", time.Since(start).Seconds())

	g.recorder.Record(ctx, &audit.Entry{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Kind:      audit.KindQueryExecuted,
		ScopeID:   sessionScope.ID,
		Domain:    string(req.Domain),
		RowCount:  result.RowCount,
		CreatedAt: time.Now(),
	})

	return result, nil
}

// validate re-checks the isolation invariants for every call.
func (g *Gateway) validate(ctx context.Context, sessionScope *model.BusinessScope, req *model.QueryRequest) error {
	deny := func(domain model.Domain, reason string) error {
		scopeID := ""
		if sessionScope != nil {
			scopeID = sessionScope.ID
		}
		g.logger.Warn("gateway denied request",
			zap.String("scope_id", scopeID),
			zap.String("domain", string(domain)),
			zap.String("reason", reason),
		)
		metrics.RecordDenial(reason)
		g.recorder.Record(ctx, &audit.Entry{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Kind:      audit.KindAccessDenied,
			ScopeID:   scopeID,
			Domain:    string(domain),
			Reason:    reason,
			CreatedAt: time.Now(),
		})
		return &AccessDeniedError{ScopeID: scopeID, Domain: domain, Reason: reason}
	}

	if req == nil || req.Scope == nil || sessionScope == nil {
		return deny("", ReasonScopeMissing)
	}
	if !req.Scope.Equal(sessionScope) {
		return deny(req.Domain, ReasonScopeMismatch)
	}
	if !sessionScope.ReadOnly || !req.Scope.ReadOnly {
		return deny(req.Domain, ReasonNotReadOnly)
	}
	if !req.Domain.Valid() || !sessionScope.Allows(req.Domain) {
		return deny(req.Domain, ReasonDomainNotAllowed)
	}
	return nil
}

func (g *Gateway) run(ctx context.Context, sessionScope *model.BusinessScope, req *model.QueryRequest) (*model.QueryResult, error) {
	now := g.now()

	rowCap := g.maxRows
	if req.Filter.Limit > 0 && req.Filter.Limit < rowCap {
		rowCap = req.Filter.Limit
	}

	// The scope argument is taken from the session, never from filter fields:
	// a crafted filter cannot widen the visible row set.
	q := buildQuery(sessionScope.ID, req.Domain, req.Filter, rowCap+1, now)

	rows, err := g.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	result := &model.QueryResult{
		RequestID: req.ID,
		Domain:    req.Domain,
		Columns:   columns,
	}

	for rows.Next() {
		if len(result.Rows) == rowCap {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &QueryError{Err: err}
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Err: err}
	}
	result.RowCount = len(result.Rows)

	if sq, keys := buildSummary(sessionScope.ID, req.Domain, req.Filter, now); keys != nil {
		summary, err := g.runSummary(ctx, sq, keys)
		if err != nil {
			// Aggregates enrich the response; their failure does not void the
			// rows already retrieved.
			g.logger.Warn("summary query failed",
				zap.String("domain", string(req.Domain)),
				zap.Error(err),
			)
		} else {
			result.Summary = summary
		}
	}

	return result, nil
}

func (g *Gateway) runSummary(ctx context.Context, q builtQuery, keys []string) (map[string]float64, error) {
	values := make([]float64, len(keys))
	ptrs := make([]any, len(keys))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := g.db.QueryRowContext(ctx, q.sql, q.args...).Scan(ptrs...); err != nil {
		return nil, err
	}
	summary := make(map[string]float64, len(keys))
	for i, k := range keys {
		summary[k] = values[i]
	}
	return summary, nil
}

// AsAccessDenied extracts an AccessDeniedError from an error chain.
func AsAccessDenied(err error) (*AccessDeniedError, bool) {
	var ad *AccessDeniedError
	if errors.As(err, &ad) {
		return ad, true
	}
	return nil, false
}

// IsQueryError reports whether err is a store failure.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
