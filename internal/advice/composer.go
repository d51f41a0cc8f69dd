package advice

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/malidaftari/assistant/internal/model"
)

// ErrNoContent means a response was requested with neither data nor advice.
// The session state machine prevents this in normal operation.
var ErrNoContent = errors.New("no content to compose")

// Compose merges a query result and advisory text into a single ordered
// response: data summary first, advice after. When the backend produced no
// usable advice the result stands alone; advice is never fabricated.
func Compose(turn *model.Turn, result *model.QueryResult, adviceText string) (*model.Response, error) {
	adviceText = strings.TrimSpace(adviceText)

	if result == nil && adviceText == "" {
		return nil, ErrNoContent
	}

	resp := &model.Response{
		TurnID:    turn.ID,
		Advice:    adviceText,
		CreatedAt: time.Now(),
	}

	if result != nil {
		resp.Result = result
		resp.DataSummary = Summarize(result)
	}

	return resp, nil
}

// Summarize renders a query result as a short human-readable digest.
func Summarize(r *model.QueryResult) string {
	var b strings.Builder

	switch {
	case r.RowCount == 0:
		fmt.Fprintf(&b, "No %s records found for this period.", r.Domain)
	case r.RowCount == 1:
		fmt.Fprintf(&b, "Found 1 %s record.", singular(r.Domain))
	default:
		fmt.Fprintf(&b, "Found %d %s records.", r.RowCount, singular(r.Domain))
	}

	if r.Truncated {
		b.WriteString(" Showing the first ")
		fmt.Fprintf(&b, "%d only.", r.RowCount)
	}

	if len(r.Summary) > 0 {
		keys := make([]string, 0, len(r.Summary))
		for k := range r.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s: %.2f.", label(k), r.Summary[k])
		}
	}

	return b.String()
}

func singular(d model.Domain) string {
	switch d {
	case model.DomainSales:
		return "sales"
	case model.DomainExpenses:
		return "expense"
	case model.DomainProducts:
		return "product"
	case model.DomainInventory:
		return "inventory"
	}
	return string(d)
}

func label(key string) string {
	return strings.ToUpper(key[:1]) + strings.ReplaceAll(key[1:], "_", " ")
}
