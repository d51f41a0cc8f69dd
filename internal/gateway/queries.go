package gateway

import (
	"time"

	"github.com/malidaftari/assistant/internal/model"
)

// builtQuery is a parameterized statement ready for execution. The scope
// predicate is always the first condition and its argument is bound by the
// gateway from the session scope, never taken from request filter fields.
type builtQuery struct {
	sql  string
	args []any
}

const dateLayout = "2006-01-02"

// buildQuery maps a domain and filter onto a fixed parameterized statement.
// limit already includes the +1 probe row used to detect truncation.
func buildQuery(scopeID string, domain model.Domain, f model.Filter, limit int, now time.Time) builtQuery {
	switch domain {
	case model.DomainSales:
		return buildSales(scopeID, f, limit, now)
	case model.DomainExpenses:
		return buildExpenses(scopeID, f, limit, now)
	case model.DomainProducts:
		return buildProducts(scopeID, f, limit)
	case model.DomainInventory:
		return buildInventory(scopeID, limit)
	}
	return builtQuery{}
}

func buildSales(scopeID string, f model.Filter, limit int, now time.Time) builtQuery {
	q := builtQuery{
		sql: `SELECT id, product_id, quantity, price, total_amount, sale_date
FROM sales
WHERE business_id = ?`,
		args: []any{scopeID},
	}
	q = appendRange(q, "sale_date", f.Range, now)
	q.sql += "\nORDER BY sale_date DESC, created_at DESC\nLIMIT ?"
	q.args = append(q.args, limit)
	return q
}

func buildExpenses(scopeID string, f model.Filter, limit int, now time.Time) builtQuery {
	q := builtQuery{
		sql: `SELECT id, name, amount, expense_date
FROM expenses
WHERE business_id = ?`,
		args: []any{scopeID},
	}
	if f.Category != "" {
		q.sql += "\nAND name LIKE ?"
		q.args = append(q.args, "%"+f.Category+"%")
	}
	q = appendRange(q, "expense_date", f.Range, now)
	q.sql += "\nORDER BY expense_date DESC\nLIMIT ?"
	q.args = append(q.args, limit)
	return q
}

func buildProducts(scopeID string, f model.Filter, limit int) builtQuery {
	if f.TopN > 0 {
		n := f.TopN
		if n > limit {
			n = limit
		}
		return builtQuery{
			sql: `SELECT p.id, p.name, SUM(s.quantity) AS total_sold, SUM(s.total_amount) AS revenue
FROM products p
JOIN sales s ON s.product_id = p.id AND s.business_id = ?
WHERE p.business_id = ?
GROUP BY p.id, p.name
ORDER BY total_sold DESC
LIMIT ?`,
			args: []any{scopeID, scopeID, n},
		}
	}

	q := builtQuery{
		sql: `SELECT id, name, quantity, initial_quantity
FROM products
WHERE business_id = ?`,
		args: []any{scopeID},
	}
	if f.LowStock {
		q.sql += "\nAND quantity < 10 AND quantity >= 0"
	}
	q.sql += "\nORDER BY quantity ASC, name ASC\nLIMIT ?"
	q.args = append(q.args, limit)
	return q
}

func buildInventory(scopeID string, limit int) builtQuery {
	return builtQuery{
		sql: `SELECT id, name, rough_cost, status, created_at
FROM inventories
WHERE business_id = ?
ORDER BY created_at DESC
LIMIT ?`,
		args: []any{scopeID, limit},
	}
}

// buildSummary returns the aggregate companion query for domains that have
// one, or an empty query otherwise. Keys name the summary fields.
func buildSummary(scopeID string, domain model.Domain, f model.Filter, now time.Time) (builtQuery, []string) {
	switch domain {
	case model.DomainSales:
		q := builtQuery{
			sql:  `SELECT COALESCE(SUM(total_amount), 0), COALESCE(SUM(quantity), 0) FROM sales WHERE business_id = ?`,
			args: []any{scopeID},
		}
		q = appendRange(q, "sale_date", f.Range, now)
		return q, []string{"revenue", "units_sold"}

	case model.DomainExpenses:
		q := builtQuery{
			sql:  `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE business_id = ?`,
			args: []any{scopeID},
		}
		if f.Category != "" {
			q.sql += " AND name LIKE ?"
			q.args = append(q.args, "%"+f.Category+"%")
		}
		q = appendRange(q, "expense_date", f.Range, now)
		return q, []string{"total_expenses"}
	}
	return builtQuery{}, nil
}

func appendRange(q builtQuery, column string, r model.DateRange, now time.Time) builtQuery {
	if r.IsZero() {
		return q
	}
	from, to := r.Resolve(now)
	if !from.IsZero() {
		q.sql += "\nAND " + column + " >= ?"
		q.args = append(q.args, from.Format(dateLayout))
	}
	if !to.IsZero() {
		q.sql += "\nAND " + column + " < ?"
		q.args = append(q.args, to.Format(dateLayout))
	}
	return q
}
