package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/malidaftari/assistant/internal/intent"
	"github.com/malidaftari/assistant/internal/model"
	"github.com/malidaftari/assistant/pkg/logger"
)

// QueryExecutor executes validated read requests. Satisfied by
// gateway.Gateway.
type QueryExecutor interface {
	Execute(ctx context.Context, scope *model.BusinessScope, req *model.QueryRequest) (*model.QueryResult, error)
}

// Advisor generates advisory text. Satisfied by advice.Limited.
type Advisor interface {
	Generate(ctx context.Context, history []model.HistoryEntry, result *model.QueryResult) (string, error)
	Name() string
}

// Config bounds one session's behavior.
type Config struct {
	HistoryMaxTurns  int
	IdleTimeout      time.Duration
	CloseGracePeriod time.Duration
	TranslateTimeout time.Duration
	QueryTimeout     time.Duration
	AdviceTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.HistoryMaxTurns <= 0 {
		c.HistoryMaxTurns = 50
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 15 * time.Minute
	}
	if c.CloseGracePeriod <= 0 {
		c.CloseGracePeriod = 5 * time.Second
	}
	if c.TranslateTimeout <= 0 {
		c.TranslateTimeout = 5 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 10 * time.Second
	}
	if c.AdviceTimeout <= 0 {
		c.AdviceTimeout = 60 * time.Second
	}
	return c
}

// Close reasons, surfaced in the final frame.
const (
	CloseReasonDisconnect = "disconnect"
	CloseReasonIdle       = "idle_timeout"
	CloseReasonFault      = "fault"
	CloseReasonShutdown   = "shutdown"
)

// Submit errors.
var (
	ErrClosed = errors.New("session closed")
	ErrBusy   = errors.New("session busy")
)

// Session is one active conversation. It is exclusively owned by its worker
// goroutine: turns are processed one at a time and history is touched only by
// the worker. The scope reference is immutable for the session's lifetime.
type Session struct {
	ID string

	cfg        Config
	translator intent.Translator
	executor   QueryExecutor
	advisor    Advisor
	logger     *logger.Logger

	mu           sync.RWMutex
	scope        *model.BusinessScope
	state        State
	createdAt    time.Time
	lastActivity time.Time
	historyLen   int

	history []*model.Turn

	inbox  chan string
	frames chan *model.ServerFrame

	ctx       context.Context
	cancel    context.CancelFunc
	closing   chan struct{}
	closeOnce sync.Once
	reason    string
	done      chan struct{}
}

func newSession(scope *model.BusinessScope, cfg Config, translator intent.Translator, executor QueryExecutor, advisor Advisor, log *logger.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now()

	return &Session{
		ID:           id,
		cfg:          cfg.withDefaults(),
		translator:   translator,
		executor:     executor,
		advisor:      advisor,
		logger:       log.WithSession(id, scope.ID),
		scope:        scope,
		state:        StateAuthenticating,
		createdAt:    now,
		lastActivity: now,
		inbox:        make(chan string, 8),
		frames:       make(chan *model.ServerFrame, 16),
		ctx:          ctx,
		cancel:       cancel,
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Scope returns the session's scope; nil once the session has closed and
// released it.
func (s *Session) Scope() *model.BusinessScope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// Frames returns the ordered stream of outbound frames. Closed when the
// session finishes.
func (s *Session) Frames() <-chan *model.ServerFrame {
	return s.frames
}

// Done is closed when the session's worker has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// HistoryLen returns the number of retained turns.
func (s *Session) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyLen
}

// Submit enqueues one turn of user text. Turns are processed strictly in
// order; ErrBusy signals the client is sending faster than the session can
// serialize.
func (s *Session) Submit(text string) error {
	select {
	case <-s.closing:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- text:
		return nil
	case <-s.closing:
		return ErrClosed
	default:
		return ErrBusy
	}
}

// Close begins teardown. Any in-flight turn may finish within the grace
// period, after which it is cancelled; its partial results are discarded.
// Close is safe to call from any goroutine and idempotent.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.reason = reason
		if s.state != StateClosed && s.state != StateClosing {
			s.state = StateClosing
		}
		s.mu.Unlock()
		close(s.closing)
		time.AfterFunc(s.cfg.CloseGracePeriod, s.cancel)
	})
}

// advance moves the pipeline to the next state unless the session is already
// closing; the caller aborts the turn when advance reports false.
func (s *Session) advance(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosing || s.state == StateClosed {
		return false
	}
	s.transitionLocked(to)
	return true
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// run is the session worker. It exits on close or idle timeout and never
// processes two turns concurrently.
func (s *Session) run(onExit func()) {
	defer close(s.done)

	idle := time.NewTimer(s.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-s.closing:
			s.finish(onExit)
			return

		case text := <-s.inbox:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			s.processTurn(text)
			idle.Reset(s.cfg.IdleTimeout)

		case <-idle.C:
			s.logger.Info("session idle, closing")
			s.Close(CloseReasonIdle)
		}
	}
}

func (s *Session) finish(onExit func()) {
	s.mu.Lock()
	reason := s.reason
	s.state = StateClosed
	s.scope = nil // release the scope reference
	s.mu.Unlock()

	s.emit(&model.ServerFrame{
		Type:      model.FrameClosed,
		SessionID: s.ID,
		Code:      reason,
		Timestamp: time.Now(),
	})

	s.cancel()
	close(s.frames)
	s.logger.Info("session closed", zap.String("reason", reason))
	if onExit != nil {
		onExit()
	}
}

// emit sends a frame in order, giving up only when the session context is
// gone (the supervisor has stopped reading).
func (s *Session) emit(f *model.ServerFrame) {
	select {
	case s.frames <- f:
	case <-s.ctx.Done():
	}
}
