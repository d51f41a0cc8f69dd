package tenant

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malidaftari/assistant/internal/audit"
	"github.com/malidaftari/assistant/pkg/logger"
)

// captureRecorder collects audit entries for assertions.
type captureRecorder struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (c *captureRecorder) Record(_ context.Context, e *audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *captureRecorder) last() *audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil
	}
	return c.entries[len(c.entries)-1]
}

func TestResolveSingleBusiness(t *testing.T) {
	rec := &captureRecorder{}
	r := NewResolver(rec, logger.NewNop())

	scope, err := r.Resolve(context.Background(), Identity{
		UserID:      "user-1",
		BusinessIDs: []string{"biz-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "biz-1", scope.ID)
	assert.True(t, scope.ReadOnly)

	entry := rec.last()
	require.NotNil(t, entry)
	assert.Equal(t, audit.KindScopeBound, entry.Kind)
	assert.Equal(t, "biz-1", entry.ScopeID)
}

func TestResolveNoBusinesses(t *testing.T) {
	rec := &captureRecorder{}
	r := NewResolver(rec, logger.NewNop())

	scope, err := r.Resolve(context.Background(), Identity{UserID: "user-1"})

	require.Error(t, err)
	assert.Nil(t, scope)

	ae, ok := AsAuthorizationError(err)
	require.True(t, ok)
	assert.Equal(t, NoScopeAssigned, ae.Reason)
	assert.Equal(t, audit.KindScopeRefused, rec.last().Kind)
}

func TestResolveAmbiguousFailsClosed(t *testing.T) {
	rec := &captureRecorder{}
	r := NewResolver(rec, logger.NewNop())

	scope, err := r.Resolve(context.Background(), Identity{
		UserID:      "user-1",
		BusinessIDs: []string{"biz-1", "biz-2"},
	})

	require.Error(t, err)
	assert.Nil(t, scope)

	ae, ok := AsAuthorizationError(err)
	require.True(t, ok)
	assert.Equal(t, AmbiguousScope, ae.Reason)
}

func TestResolveExplicitSelection(t *testing.T) {
	rec := &captureRecorder{}
	r := NewResolver(rec, logger.NewNop())

	scope, err := r.Resolve(context.Background(), Identity{
		UserID:      "user-1",
		BusinessIDs: []string{"biz-1", "biz-2"},
		Selected:    "biz-2",
	})

	require.NoError(t, err)
	assert.Equal(t, "biz-2", scope.ID)
}

func TestResolveSelectionNotOwned(t *testing.T) {
	rec := &captureRecorder{}
	r := NewResolver(rec, logger.NewNop())

	scope, err := r.Resolve(context.Background(), Identity{
		UserID:      "user-1",
		BusinessIDs: []string{"biz-1"},
		Selected:    "biz-9",
	})

	require.Error(t, err)
	assert.Nil(t, scope)

	// Selecting someone else's business looks exactly like owning none.
	ae, ok := AsAuthorizationError(err)
	require.True(t, ok)
	assert.Equal(t, NoScopeAssigned, ae.Reason)
}
