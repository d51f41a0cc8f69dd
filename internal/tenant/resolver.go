// Package tenant resolves an authenticated identity to the single business
// scope the caller may act as. Resolution happens once per session; the
// resulting BusinessScope is immutable and shared by reference downstream.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/malidaftari/assistant/internal/audit"
	"github.com/malidaftari/assistant/internal/model"
	"github.com/malidaftari/assistant/pkg/logger"
)

// AuthReason classifies an authorization failure.
type AuthReason string

const (
	// NoScopeAssigned means the identity maps to zero businesses, or to a
	// selection it does not own.
	NoScopeAssigned AuthReason = "no_scope_assigned"
	// AmbiguousScope means the identity maps to more than one business and no
	// explicit selection was supplied. Ambiguity always fails closed; the
	// resolver never picks a default.
	AmbiguousScope AuthReason = "ambiguous_scope"
)

// AuthorizationError is fatal to session start.
type AuthorizationError struct {
	Reason AuthReason
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed: %s", e.Reason)
}

// AsAuthorizationError extracts an AuthorizationError from an error chain.
func AsAuthorizationError(err error) (*AuthorizationError, bool) {
	var ae *AuthorizationError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Identity is the opaque authenticated-identity handle supplied by the
// external auth collaborator. The resolver performs no credential
// verification; it trusts this handle.
type Identity struct {
	UserID      string
	BusinessIDs []string
	// Selected is the explicit out-of-band business selection. It is never
	// parsed from conversation text.
	Selected string
}

// Resolver maps identities to business scopes.
type Resolver struct {
	recorder audit.Recorder
	logger   *logger.Logger
}

// NewResolver creates a resolver.
func NewResolver(recorder audit.Recorder, log *logger.Logger) *Resolver {
	return &Resolver{recorder: recorder, logger: log}
}

// Resolve produces the single BusinessScope for the identity, or an
// AuthorizationError. Every outcome is audited.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (*model.BusinessScope, error) {
	businessID, reason := pick(id)
	if reason != "" {
		r.recorder.Record(ctx, &audit.Entry{
			ID:         uuid.Must(uuid.NewV7()).String(),
			Kind:       audit.KindScopeRefused,
			IdentityID: id.UserID,
			Reason:     string(reason),
			CreatedAt:  time.Now(),
		})
		r.logger.Warn("scope resolution refused",
			zap.String("user_id", id.UserID),
			zap.String("reason", string(reason)),
		)
		return nil, &AuthorizationError{Reason: reason}
	}

	scope := model.NewBusinessScope(businessID, model.AllDomains())

	r.recorder.Record(ctx, &audit.Entry{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Kind:       audit.KindScopeBound,
		IdentityID: id.UserID,
		ScopeID:    scope.ID,
		CreatedAt:  time.Now(),
	})
	r.logger.Info("scope resolved",
		zap.String("user_id", id.UserID),
		zap.String("scope_id", scope.ID),
	)

	return scope, nil
}

func pick(id Identity) (string, AuthReason) {
	switch {
	case len(id.BusinessIDs) == 0:
		return "", NoScopeAssigned

	case id.Selected != "":
		for _, b := range id.BusinessIDs {
			if b == id.Selected {
				return b, ""
			}
		}
		// Selecting a business the identity does not own is treated the same
		// as owning none: fail closed without revealing whether it exists.
		return "", NoScopeAssigned

	case len(id.BusinessIDs) == 1:
		return id.BusinessIDs[0], ""

	default:
		return "", AmbiguousScope
	}
}
