package advice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/malidaftari/assistant/internal/model"
)

// systemPrompt frames the assistant for the advice backend. It deliberately
// carries no tenant identifier: all data the backend sees has already been
// scoped by the gateway, and scope identifiers must never surface in output.
const systemPrompt = `You are a business assistant for small business owners.
You help with questions about their sales, inventory, products and expenses,
and you give practical, concise business advice.

Rules:
- Answer in the language the user writes in (English or Swahili).
- When data is provided below, ground your answer in that data.
- Never invent numbers that are not in the provided data.
- Keep answers short and actionable.`

// buildPrompt assembles the message sequence for a provider call: system
// framing, bounded history, and the query result rendered as context.
func buildPrompt(history []model.HistoryEntry, result *model.QueryResult) (string, []model.HistoryEntry) {
	system := systemPrompt
	if result != nil {
		system += "\n\nData retrieved for the user's latest question:\n" + renderResult(result)
	}
	return system, history
}

// renderResult flattens a query result into prompt context. Rows are already
// capped by the gateway.
func renderResult(r *model.QueryResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "domain: %s\nrows: %d", r.Domain, r.RowCount)
	if r.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString("\n")

	keys := make([]string, 0, len(r.Summary))
	for k := range r.Summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %.2f\n", k, r.Summary[k])
	}

	if len(r.Rows) > 0 {
		b.WriteString(strings.Join(r.Columns, " | "))
		b.WriteString("\n")
		for _, row := range r.Rows {
			parts := make([]string, len(row))
			for i, v := range row {
				parts[i] = fmt.Sprint(v)
			}
			b.WriteString(strings.Join(parts, " | "))
			b.WriteString("\n")
		}
	}

	return b.String()
}
