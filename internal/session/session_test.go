package session

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malidaftari/assistant/internal/gateway"
	"github.com/malidaftari/assistant/internal/intent"
	"github.com/malidaftari/assistant/internal/model"
	"github.com/malidaftari/assistant/pkg/logger"
)

type stubTranslator struct {
	fn func(text string, scope *model.BusinessScope) (intent.Outcome, error)
}

func (s *stubTranslator) Translate(_ context.Context, text string, _ []model.HistoryEntry, scope *model.BusinessScope) (intent.Outcome, error) {
	return s.fn(text, scope)
}

type stubExecutor struct {
	fn func(ctx context.Context, scope *model.BusinessScope, req *model.QueryRequest) (*model.QueryResult, error)
}

func (s *stubExecutor) Execute(ctx context.Context, scope *model.BusinessScope, req *model.QueryRequest) (*model.QueryResult, error) {
	return s.fn(ctx, scope, req)
}

type stubAdvisor struct {
	fn func(ctx context.Context, history []model.HistoryEntry, result *model.QueryResult) (string, error)
}

func (s *stubAdvisor) Generate(ctx context.Context, history []model.HistoryEntry, result *model.QueryResult) (string, error) {
	return s.fn(ctx, history, result)
}

func (s *stubAdvisor) Name() string { return "stub" }

func dataTranslator() intent.Translator {
	return &stubTranslator{fn: func(text string, scope *model.BusinessScope) (intent.Outcome, error) {
		return intent.Outcome{
			Kind: intent.KindDataQuery,
			Request: &model.QueryRequest{
				ID:     intent.NewRequestID(),
				Domain: model.DomainSales,
				Scope:  scope,
			},
		}, nil
	}}
}

func okExecutor(rows int) QueryExecutor {
	return &stubExecutor{fn: func(_ context.Context, _ *model.BusinessScope, req *model.QueryRequest) (*model.QueryResult, error) {
		return &model.QueryResult{
			RequestID: req.ID,
			Domain:    req.Domain,
			RowCount:  rows,
		}, nil
	}}
}

func okAdvisor(text string) Advisor {
	return &stubAdvisor{fn: func(context.Context, []model.HistoryEntry, *model.QueryResult) (string, error) {
		return text, nil
	}}
}

func testConfig() Config {
	return Config{
		HistoryMaxTurns:  50,
		IdleTimeout:      5 * time.Second,
		CloseGracePeriod: 50 * time.Millisecond,
		TranslateTimeout: time.Second,
		QueryTimeout:     time.Second,
		AdviceTimeout:    time.Second,
	}
}

func startSession(t *testing.T, cfg Config, tr intent.Translator, ex QueryExecutor, ad Advisor) *Session {
	t.Helper()
	m := NewManager(cfg, tr, ex, ad, logger.NewNop())
	sess := m.Start(model.NewBusinessScope("biz-1", model.AllDomains()))
	t.Cleanup(func() {
		sess.Close(CloseReasonShutdown)
		select {
		case <-sess.Done():
		case <-time.After(2 * time.Second):
		}
	})
	return sess
}

func nextFrame(t *testing.T, sess *Session) *model.ServerFrame {
	t.Helper()
	select {
	case f, ok := <-sess.Frames():
		require.True(t, ok, "frame stream closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestDataTurnProducesOrderedResponse(t *testing.T) {
	sess := startSession(t, testConfig(), dataTranslator(), okExecutor(3), okAdvisor("Restock soon."))

	require.NoError(t, sess.Submit("show sales"))

	frame := nextFrame(t, sess)
	assert.Equal(t, model.FrameResponse, frame.Type)
	require.NotNil(t, frame.Response)
	assert.Contains(t, frame.Response.DataSummary, "3 sales records")
	assert.Equal(t, "Restock soon.", frame.Response.Advice)

	assert.Equal(t, StateActive, sess.State())
	assert.Equal(t, 1, sess.HistoryLen())
}

func TestAdviceOnlyTurn(t *testing.T) {
	tr := &stubTranslator{fn: func(string, *model.BusinessScope) (intent.Outcome, error) {
		return intent.Outcome{Kind: intent.KindAdviceOnly}, nil
	}}
	executed := int32(0)
	ex := &stubExecutor{fn: func(context.Context, *model.BusinessScope, *model.QueryRequest) (*model.QueryResult, error) {
		atomic.AddInt32(&executed, 1)
		return nil, nil
	}}

	sess := startSession(t, testConfig(), tr, ex, okAdvisor("Keep daily records."))

	require.NoError(t, sess.Submit("hello"))

	frame := nextFrame(t, sess)
	assert.Equal(t, model.FrameResponse, frame.Type)
	assert.Equal(t, "Keep daily records.", frame.Response.Advice)
	assert.Empty(t, frame.Response.DataSummary)
	// No query runs for an advice-only turn.
	assert.Equal(t, int32(0), atomic.LoadInt32(&executed))
}

func TestTurnsSerializedInOrder(t *testing.T) {
	var inflight, peak int32
	ex := &stubExecutor{fn: func(_ context.Context, _ *model.BusinessScope, req *model.QueryRequest) (*model.QueryResult, error) {
		n := atomic.AddInt32(&inflight, 1)
		if n > atomic.LoadInt32(&peak) {
			atomic.StoreInt32(&peak, n)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inflight, -1)
		return &model.QueryResult{RequestID: req.ID, Domain: req.Domain}, nil
	}}

	tr := &stubTranslator{fn: func(text string, scope *model.BusinessScope) (intent.Outcome, error) {
		return intent.Outcome{
			Kind:    intent.KindDataQuery,
			Request: &model.QueryRequest{ID: text, Domain: model.DomainSales, Scope: scope},
		}, nil
	}}

	sess := startSession(t, testConfig(), tr, ex, nil)

	const turns = 5
	for i := 0; i < turns; i++ {
		require.NoError(t, sess.Submit(fmt.Sprintf("turn-%d", i)))
	}

	for i := 0; i < turns; i++ {
		frame := nextFrame(t, sess)
		require.Equal(t, model.FrameResponse, frame.Type)
		// Responses come back in submission order.
		assert.Equal(t, fmt.Sprintf("turn-%d", i), frame.Response.Result.RequestID)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestHistoryEviction(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryMaxTurns = 3

	sess := startSession(t, cfg, dataTranslator(), okExecutor(1), nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, sess.Submit("show sales"))
		nextFrame(t, sess)
	}

	assert.Equal(t, 3, sess.HistoryLen())
}

func TestTranslateErrorYieldsErrorFrame(t *testing.T) {
	tr := &stubTranslator{fn: func(string, *model.BusinessScope) (intent.Outcome, error) {
		return intent.Outcome{}, &intent.Error{Reason: intent.Unparseable}
	}}

	sess := startSession(t, testConfig(), tr, okExecutor(1), nil)

	require.NoError(t, sess.Submit("???"))

	frame := nextFrame(t, sess)
	assert.Equal(t, model.FrameError, frame.Type)
	assert.Equal(t, CodeUnparseable, frame.Code)

	// The session survives the failed turn.
	assert.Equal(t, StateActive, sess.State())
	assert.Equal(t, 1, sess.HistoryLen())
}

func TestAccessDeniedMessageLeaksNothing(t *testing.T) {
	ex := &stubExecutor{fn: func(context.Context, *model.BusinessScope, *model.QueryRequest) (*model.QueryResult, error) {
		return nil, &gateway.AccessDeniedError{ScopeID: "biz-1", Domain: model.DomainSales, Reason: "scope_mismatch"}
	}}

	sess := startSession(t, testConfig(), dataTranslator(), ex, nil)

	require.NoError(t, sess.Submit("show sales"))

	frame := nextFrame(t, sess)
	assert.Equal(t, model.FrameError, frame.Type)
	assert.Equal(t, CodeAccessDenied, frame.Code)
	assert.NotContains(t, frame.Error, "biz-1")
	assert.NotContains(t, frame.Error, "scope_mismatch")
}

func TestQueryFailureDegradesGracefully(t *testing.T) {
	ex := &stubExecutor{fn: func(context.Context, *model.BusinessScope, *model.QueryRequest) (*model.QueryResult, error) {
		return nil, &gateway.QueryError{Err: fmt.Errorf("store offline")}
	}}

	sess := startSession(t, testConfig(), dataTranslator(), ex, nil)

	require.NoError(t, sess.Submit("show sales"))

	frame := nextFrame(t, sess)
	assert.Equal(t, model.FrameError, frame.Type)
	assert.Equal(t, CodeQueryFailed, frame.Code)
	assert.Equal(t, StateActive, sess.State())
}

func TestAdviceFailureStillReturnsData(t *testing.T) {
	ad := &stubAdvisor{fn: func(context.Context, []model.HistoryEntry, *model.QueryResult) (string, error) {
		return "", fmt.Errorf("provider unavailable")
	}}

	sess := startSession(t, testConfig(), dataTranslator(), okExecutor(2), ad)

	require.NoError(t, sess.Submit("show sales"))

	frame := nextFrame(t, sess)
	assert.Equal(t, model.FrameResponse, frame.Type)
	assert.Contains(t, frame.Response.DataSummary, "2 sales records")
	assert.Empty(t, frame.Response.Advice)
}

func TestIdleTimeoutClosesSession(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 50 * time.Millisecond

	sess := startSession(t, cfg, dataTranslator(), okExecutor(1), nil)

	frame := nextFrame(t, sess)
	assert.Equal(t, model.FrameClosed, frame.Type)
	assert.Equal(t, CloseReasonIdle, frame.Code)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close after idle timeout")
	}
	assert.Equal(t, StateClosed, sess.State())
	assert.Nil(t, sess.Scope())
}

func TestCloseCancelsInflightTurn(t *testing.T) {
	started := make(chan struct{})
	ex := &stubExecutor{fn: func(ctx context.Context, _ *model.BusinessScope, _ *model.QueryRequest) (*model.QueryResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	sess := startSession(t, testConfig(), dataTranslator(), ex, nil)

	require.NoError(t, sess.Submit("show sales"))
	<-started

	sess.Close(CloseReasonDisconnect)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
	}

	// The cancelled turn is discarded, not retained as partial history.
	assert.Equal(t, 0, sess.HistoryLen())
	assert.Equal(t, StateClosed, sess.State())
}

func TestSubmitAfterCloseFails(t *testing.T) {
	sess := startSession(t, testConfig(), dataTranslator(), okExecutor(1), nil)

	sess.Close(CloseReasonDisconnect)
	<-sess.Done()

	assert.ErrorIs(t, sess.Submit("show sales"), ErrClosed)
}

func TestManagerTracksSessions(t *testing.T) {
	m := NewManager(testConfig(), dataTranslator(), okExecutor(1), nil, logger.NewNop())

	sess := m.Start(model.NewBusinessScope("biz-1", model.AllDomains()))
	assert.Equal(t, 1, m.ActiveSessions())

	got, ok := m.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	assert.Equal(t, 0, m.ActiveSessions())
}
