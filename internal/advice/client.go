// Package advice provides advice-generation backend clients and the response
// composer.
package advice

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/malidaftari/assistant/internal/model"
)

// Backend generates free-form advisory text from conversation history and
// optional query context. A backend failure means "no advice available"; it
// is never fatal to the turn.
type Backend interface {
	// Generate returns advisory text for the conversation. The result, when
	// present, is supplied as context so the advice can reference the data
	// the user just asked about.
	Generate(ctx context.Context, history []model.HistoryEntry, result *model.QueryResult) (string, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of advice provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewBackend creates a backend for the given provider.
func NewBackend(provider Provider, apiKey, model string) (Backend, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicBackend(apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIBackend(apiKey, model)
	default:
		return nil, fmt.Errorf("unknown advice provider: %s", provider)
	}
}

// Limited wraps a backend with a concurrency bound so many sessions cannot
// fan out unbounded calls to the provider.
type Limited struct {
	backend Backend
	sem     *semaphore.Weighted
}

// NewLimited bounds concurrent Generate calls to maxCalls.
func NewLimited(backend Backend, maxCalls int64) *Limited {
	if maxCalls <= 0 {
		maxCalls = 16
	}
	return &Limited{
		backend: backend,
		sem:     semaphore.NewWeighted(maxCalls),
	}
}

// Generate acquires a slot and delegates to the wrapped backend.
func (l *Limited) Generate(ctx context.Context, history []model.HistoryEntry, result *model.QueryResult) (string, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer l.sem.Release(1)
	return l.backend.Generate(ctx, history, result)
}

// Name returns the wrapped provider name.
func (l *Limited) Name() string {
	return l.backend.Name()
}
