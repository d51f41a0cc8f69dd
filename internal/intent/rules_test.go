package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malidaftari/assistant/internal/model"
)

func translate(t *testing.T, text string) (Outcome, error) {
	t.Helper()
	scope := model.NewBusinessScope("biz-1", model.AllDomains())
	return NewRuleTranslator().Translate(context.Background(), text, nil, scope)
}

func TestTranslateDataQueries(t *testing.T) {
	tests := []struct {
		text   string
		domain model.Domain
		rng    model.RangeKind
	}{
		{"show me last month's sales", model.DomainSales, model.RangeLastMonth},
		{"what is the total revenue today", model.DomainSales, model.RangeToday},
		{"list my expenses this month", model.DomainExpenses, model.RangeThisMonth},
		{"how many products do I have", model.DomainProducts, model.RangeNone},
		{"show inventory batches", model.DomainInventory, model.RangeNone},
		{"nionyeshe mauzo ya leo", model.DomainSales, model.RangeToday},
		{"jumla ya gharama mwezi huu", model.DomainExpenses, model.RangeThisMonth},
		{"show sales for the last 30 days", model.DomainSales, model.RangeLastNDays},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			outcome, err := translate(t, tt.text)
			require.NoError(t, err)
			require.Equal(t, KindDataQuery, outcome.Kind)
			require.NotNil(t, outcome.Request)
			assert.Equal(t, tt.domain, outcome.Request.Domain)
			assert.Equal(t, tt.rng, outcome.Request.Filter.Range.Kind)
			assert.Equal(t, "biz-1", outcome.Request.Scope.ID)
		})
	}
}

func TestTranslateAdviceOnly(t *testing.T) {
	for _, text := range []string{
		"hello",
		"how can i grow my business",
		"should i lower my prices",
		"habari, nisaidie na ushauri",
	} {
		t.Run(text, func(t *testing.T) {
			outcome, err := translate(t, text)
			require.NoError(t, err)
			assert.Equal(t, KindAdviceOnly, outcome.Kind)
			assert.Nil(t, outcome.Request)
		})
	}
}

func TestTranslateUnsupportedDomain(t *testing.T) {
	outcome, err := translate(t, "show me my customers")
	require.Error(t, err)
	assert.Empty(t, outcome.Kind)

	ie, ok := AsIntentError(err)
	require.True(t, ok)
	assert.Equal(t, UnsupportedDomain, ie.Reason)
}

func TestTranslateUnparseable(t *testing.T) {
	for _, text := range []string{"", "   ", "show me the xyzzy"} {
		_, err := translate(t, text)
		require.Error(t, err, "text %q", text)
		ie, ok := AsIntentError(err)
		require.True(t, ok)
		assert.Equal(t, Unparseable, ie.Reason)
	}
}

func TestTranslateStockQuestionsAreProductQueries(t *testing.T) {
	outcome, err := translate(t, "show items running low on stock")
	require.NoError(t, err)
	require.Equal(t, KindDataQuery, outcome.Kind)
	assert.Equal(t, model.DomainProducts, outcome.Request.Domain)
	assert.True(t, outcome.Request.Filter.LowStock)

	outcome, err = translate(t, "show my best selling products")
	require.NoError(t, err)
	require.Equal(t, KindDataQuery, outcome.Kind)
	assert.Equal(t, model.DomainProducts, outcome.Request.Domain)
	assert.Equal(t, 10, outcome.Request.Filter.TopN)
}

func TestTranslateDeterministic(t *testing.T) {
	const text = "show me sales and expenses for last month"

	first, err := translate(t, text)
	require.NoError(t, err)
	require.Equal(t, KindDataQuery, first.Kind)

	for i := 0; i < 20; i++ {
		next, err := translate(t, text)
		require.NoError(t, err)
		assert.Equal(t, first.Kind, next.Kind)
		assert.Equal(t, first.Request.Domain, next.Request.Domain)
		assert.Equal(t, first.Request.Filter, next.Request.Filter)
	}
}

func TestTranslateNeverWidensScope(t *testing.T) {
	scope := model.NewBusinessScope("biz-1", model.AllDomains())
	outcome, err := NewRuleTranslator().Translate(context.Background(),
		"show sales for business biz-2", nil, scope)

	require.NoError(t, err)
	require.Equal(t, KindDataQuery, outcome.Kind)
	// The scope comes from the session, not from the text.
	assert.Same(t, scope, outcome.Request.Scope)
}
