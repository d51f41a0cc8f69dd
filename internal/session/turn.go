package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/malidaftari/assistant/internal/advice"
	"github.com/malidaftari/assistant/internal/gateway"
	"github.com/malidaftari/assistant/internal/intent"
	"github.com/malidaftari/assistant/internal/model"
	"github.com/malidaftari/assistant/pkg/metrics"
)

// Turn error codes surfaced to the client.
const (
	CodeUnparseable       = "unparseable"
	CodeUnsupportedDomain = "unsupported_domain"
	CodeAccessDenied      = "access_denied"
	CodeQueryFailed       = "query_failed"
	CodeAdviceUnavailable = "advice_unavailable"
	CodeTimeout           = "timeout"
	CodeInternal          = "internal"
)

// processTurn drives one turn through translate, query, advise and respond.
// It runs only on the session worker, so history and turn fields need no
// locking. A session closing mid-turn cancels the turn; cancelled turns are
// dropped from history.
func (s *Session) processTurn(text string) {
	s.touch()
	start := time.Now()
	kind := string(intent.KindAdviceOnly)

	turn := &model.Turn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Text:      text,
		CreatedAt: time.Now(),
		Outcome:   model.OutcomePending,
	}

	if !s.advance(StateAwaitingTranslation) {
		turn.Outcome = model.OutcomeCanceled
		return
	}

	tctx, tcancel := context.WithTimeout(s.ctx, s.cfg.TranslateTimeout)
	outcome, err := s.translator.Translate(tctx, text, s.historyEntries(), s.Scope())
	tcancel()
	if err != nil {
		s.failTurn(turn, kind, start, s.translateFailure(turn, err))
		return
	}

	var result *model.QueryResult
	if outcome.Kind == intent.KindDataQuery {
		kind = string(intent.KindDataQuery)
		turn.Request = outcome.Request

		if !s.advance(StateAwaitingQuery) {
			turn.Outcome = model.OutcomeCanceled
			return
		}

		qctx, qcancel := context.WithTimeout(s.ctx, s.cfg.QueryTimeout)
		result, err = s.executor.Execute(qctx, s.Scope(), outcome.Request)
		qcancel()
		if err != nil {
			s.failTurn(turn, kind, start, s.queryFailure(turn, err))
			return
		}
	}

	if s.advisor == nil && result == nil {
		s.failTurn(turn, kind, start, turnError{
			code: CodeAdviceUnavailable,
			text: "Advice is not available right now. Try asking about your sales, expenses, products or inventory.",
		})
		return
	}

	var adviceText string
	if s.advisor != nil {
		if !s.advance(StateAwaitingAdvice) {
			turn.Outcome = model.OutcomeCanceled
			return
		}

		actx, acancel := context.WithTimeout(s.ctx, s.cfg.AdviceTimeout)
		adviceText, err = s.advisor.Generate(actx, s.promptHistory(text), result)
		acancel()
		if err != nil {
			if s.canceled(err) {
				turn.Outcome = model.OutcomeCanceled
				return
			}
			if result == nil {
				// An advice-only turn has nothing else to offer.
				s.failTurn(turn, kind, start, turnError{
					code: CodeTimeout,
					text: "I could not come up with advice in time. Please try again.",
				})
				return
			}
			// A data turn still carries its rows; present them without advice.
			s.logger.Warn("advice backend failed", zap.Error(err))
			adviceText = ""
		}
	}

	if !s.advance(StateResponding) {
		turn.Outcome = model.OutcomeCanceled
		return
	}

	resp, cerr := advice.Compose(turn, result, adviceText)
	if cerr != nil {
		s.failTurn(turn, kind, start, turnError{
			code: CodeInternal,
			text: "Something went wrong preparing your answer. Please try again.",
		})
		return
	}

	turn.Response = resp
	turn.Outcome = model.OutcomeAnswered
	s.emit(&model.ServerFrame{
		Type:      model.FrameResponse,
		SessionID: s.ID,
		TurnID:    turn.ID,
		Response:  resp,
		Timestamp: time.Now(),
	})

	s.appendHistory(turn)
	s.advance(StateActive)
	metrics.RecordTurn(kind, string(model.OutcomeAnswered), time.Since(start).Seconds())
}

type turnError struct {
	code     string
	text     string
	canceled bool
}

// failTurn finalizes an errored turn: the client gets an error frame with a
// stable code, the turn stays in history so follow-ups have context, and the
// pipeline returns to Active. Cancelled turns skip all of that.
func (s *Session) failTurn(turn *model.Turn, kind string, start time.Time, te turnError) {
	if te.canceled {
		turn.Outcome = model.OutcomeCanceled
		return
	}

	turn.Outcome = model.OutcomeError
	s.emit(&model.ServerFrame{
		Type:      model.FrameError,
		SessionID: s.ID,
		TurnID:    turn.ID,
		Error:     te.text,
		Code:      te.code,
		Timestamp: time.Now(),
	})

	s.appendHistory(turn)
	s.advance(StateActive)
	metrics.RecordTurn(kind, string(model.OutcomeError), time.Since(start).Seconds())
}

func (s *Session) translateFailure(turn *model.Turn, err error) turnError {
	if ie, ok := intent.AsIntentError(err); ok {
		switch ie.Reason {
		case intent.UnsupportedDomain:
			return turnError{
				code: CodeUnsupportedDomain,
				text: "I can only help with sales, expenses, products and inventory. Could you ask about one of those?",
			}
		default:
			return turnError{
				code: CodeUnparseable,
				text: "I did not understand that. Could you rephrase your question?",
			}
		}
	}
	if s.canceled(err) {
		return turnError{canceled: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return turnError{
			code: CodeTimeout,
			text: "That took too long to understand. Please try again.",
		}
	}
	s.logger.Error("translation failed", zap.Error(err))
	return turnError{
		code: CodeInternal,
		text: "Something went wrong. Please try again.",
	}
}

func (s *Session) queryFailure(turn *model.Turn, err error) turnError {
	if _, ok := gateway.AsAccessDenied(err); ok {
		// The denial details stay in the audit trail; the client learns
		// nothing about what exists outside its scope.
		return turnError{
			code: CodeAccessDenied,
			text: "You do not have access to that data.",
		}
	}
	if s.canceled(err) {
		return turnError{canceled: true}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return turnError{
			code: CodeTimeout,
			text: "Fetching your data took too long. Please try again.",
		}
	}
	if gateway.IsQueryError(err) {
		s.logger.Error("query failed after retry", zap.Error(err))
		return turnError{
			code: CodeQueryFailed,
			text: "I could not fetch your data right now. Please try again in a moment.",
		}
	}
	s.logger.Error("query failed", zap.Error(err))
	return turnError{
		code: CodeInternal,
		text: "Something went wrong. Please try again.",
	}
}

// canceled reports whether the error stems from session teardown rather than
// a stage timeout. Stage deadlines derive from s.ctx, so context.Canceled
// here means the grace period expired.
func (s *Session) canceled(err error) bool {
	if s.ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}

// appendHistory retains a finalized turn, evicting the oldest beyond the
// bound.
func (s *Session) appendHistory(turn *model.Turn) {
	s.history = append(s.history, turn)
	if len(s.history) > s.cfg.HistoryMaxTurns {
		drop := len(s.history) - s.cfg.HistoryMaxTurns
		s.history = append([]*model.Turn(nil), s.history[drop:]...)
	}
	s.mu.Lock()
	s.historyLen = len(s.history)
	s.mu.Unlock()
}

// historyEntries flattens retained turns into role/content pairs.
func (s *Session) historyEntries() []model.HistoryEntry {
	entries := make([]model.HistoryEntry, 0, len(s.history)*2)
	for _, t := range s.history {
		entries = append(entries, model.HistoryEntry{Role: "user", Content: t.Text})
		if t.Response == nil {
			continue
		}
		content := t.Response.Advice
		if content == "" {
			content = t.Response.DataSummary
		}
		if content != "" {
			entries = append(entries, model.HistoryEntry{Role: "assistant", Content: content})
		}
	}
	return entries
}

// promptHistory is historyEntries plus the in-flight user message, which is
// not yet in history.
func (s *Session) promptHistory(text string) []model.HistoryEntry {
	return append(s.historyEntries(), model.HistoryEntry{Role: "user", Content: text})
}
