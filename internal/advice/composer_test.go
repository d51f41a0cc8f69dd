package advice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malidaftari/assistant/internal/model"
)

func TestComposeDataBeforeAdvice(t *testing.T) {
	turn := &model.Turn{ID: "turn-1"}
	result := &model.QueryResult{
		RequestID: "req-1",
		Domain:    model.DomainSales,
		RowCount:  3,
		Summary:   map[string]float64{"revenue": 1500, "units_sold": 12},
	}

	resp, err := Compose(turn, result, "Consider restocking your top seller.")
	require.NoError(t, err)

	assert.Equal(t, "turn-1", resp.TurnID)
	assert.Same(t, result, resp.Result)
	assert.Contains(t, resp.DataSummary, "3 sales records")
	assert.Contains(t, resp.DataSummary, "Revenue: 1500.00")
	assert.Equal(t, "Consider restocking your top seller.", resp.Advice)
}

func TestComposeResultAlone(t *testing.T) {
	turn := &model.Turn{ID: "turn-1"}
	result := &model.QueryResult{Domain: model.DomainExpenses, RowCount: 1}

	resp, err := Compose(turn, result, "   ")
	require.NoError(t, err)

	assert.Empty(t, resp.Advice)
	assert.Contains(t, resp.DataSummary, "1 expense record")
}

func TestComposeAdviceAlone(t *testing.T) {
	turn := &model.Turn{ID: "turn-1"}

	resp, err := Compose(turn, nil, "Track your daily sales to spot trends.")
	require.NoError(t, err)

	assert.Nil(t, resp.Result)
	assert.Empty(t, resp.DataSummary)
	assert.Equal(t, "Track your daily sales to spot trends.", resp.Advice)
}

func TestComposeNothing(t *testing.T) {
	turn := &model.Turn{ID: "turn-1"}

	resp, err := Compose(turn, nil, "")
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestSummarizeEmptyResult(t *testing.T) {
	s := Summarize(&model.QueryResult{Domain: model.DomainProducts})
	assert.Contains(t, s, "No products records found")
}

func TestSummarizeTruncation(t *testing.T) {
	s := Summarize(&model.QueryResult{
		Domain:    model.DomainSales,
		RowCount:  500,
		Truncated: true,
	})
	assert.Contains(t, s, "500")
	assert.Contains(t, s, "first")
}

func TestSummarizeStableKeyOrder(t *testing.T) {
	r := &model.QueryResult{
		Domain:   model.DomainSales,
		RowCount: 2,
		Summary:  map[string]float64{"units_sold": 5, "revenue": 90},
	}
	s := Summarize(r)
	assert.Less(t, strings.Index(s, "Revenue"), strings.Index(s, "Units sold"))
}
