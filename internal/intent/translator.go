// Package intent classifies conversation turns into structured, scoped read
// requests or advice-only turns. The classification strategy sits behind the
// Translator interface with a closed set of outcomes so a model-backed
// classifier can replace the rules without touching the pipeline.
package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/malidaftari/assistant/internal/model"
)

// Reason classifies a translation failure.
type Reason string

const (
	// Unparseable means the turn could not be classified at all.
	Unparseable Reason = "unparseable"
	// UnsupportedDomain means the turn asks for data outside the fixed set of
	// allowed domains. The translator refuses rather than guessing.
	UnsupportedDomain Reason = "unsupported_domain"
)

// Error is a turn-scoped translation failure; the user is prompted to
// rephrase.
type Error struct {
	Reason Reason
}

func (e *Error) Error() string {
	return fmt.Sprintf("intent error: %s", e.Reason)
}

// AsIntentError extracts an intent Error from an error chain.
func AsIntentError(err error) (*Error, bool) {
	var ie *Error
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Kind is the closed set of successful classifications.
type Kind string

const (
	KindDataQuery  Kind = "data_query"
	KindAdviceOnly Kind = "advice_only"
)

// Outcome is the result of translating one turn. Request is non-nil exactly
// when Kind is KindDataQuery.
type Outcome struct {
	Kind    Kind
	Request *model.QueryRequest
}

// Translator converts a turn into an outcome. The scope parameter is opaque
// and non-overridable: implementations stamp it onto the produced request and
// must never derive a scope from the text, so prompt content cannot widen
// access.
type Translator interface {
	Translate(ctx context.Context, text string, history []model.HistoryEntry, scope *model.BusinessScope) (Outcome, error)
}

// NewRequestID mints an identifier for a query request.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}
