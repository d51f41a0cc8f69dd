package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/malidaftari/assistant/internal/model"
)

// Keyword tables. English plus the Swahili business vocabulary the assistant's
// users actually type.
var (
	dataIndicators = []string{
		"show", "display", "list", "get", "how many", "how much",
		"what is the", "what are", "what were", "total", "revenue", "profit",
		"nionyeshe", "orodha", "ni ngapi", "jumla", "kiasi",
	}

	adviceIndicators = []string{
		"hello", "hi", "how are you", "what can you do",
		"help", "advice", "advise", "suggest", "recommend", "strategy",
		"how can i", "should i", "what should",
		"habari", "mambo", "saidia", "ushauri", "pendekeza", "ninawezaje",
	}

	domainKeywords = map[model.Domain][]string{
		model.DomainSales: {
			"sale", "sales", "sold", "revenue", "income", "profit",
			"mauzo", "mapato", "faida",
		},
		model.DomainInventory: {
			"inventory", "inventories", "stock", "batch", "batches",
			"hifadhi",
		},
		model.DomainProducts: {
			"product", "products", "item", "items", "best selling", "best seller",
			"bidhaa",
		},
		model.DomainExpenses: {
			"expense", "expenses", "cost", "costs", "spent", "spending",
			"gharama",
		},
	}

	// Domains the user may ask about but this system does not serve. Matching
	// one of these (and no supported domain) is a refusal, not a guess.
	unsupportedKeywords = []string{
		"customer", "customers", "supplier", "suppliers", "payroll",
		"salary", "salaries", "staff", "employee", "employees",
		"loan", "loans", "debt", "debts", "tax", "taxes",
	}

	lastNDaysRe = regexp.MustCompile(`last (\d+) days`)
)

// domainOrder fixes tie-breaking so classification is deterministic.
var domainOrder = []model.Domain{
	model.DomainSales,
	model.DomainExpenses,
	model.DomainInventory,
	model.DomainProducts,
}

// RuleTranslator is the keyword-scoring classification strategy. It is
// deterministic: identical text always yields identical domain and filters.
type RuleTranslator struct{}

// NewRuleTranslator creates the rules-based translator.
func NewRuleTranslator() *RuleTranslator {
	return &RuleTranslator{}
}

// Translate classifies one turn. The scope is stamped onto any produced
// request as-is; nothing in the text can substitute a different scope.
func (t *RuleTranslator) Translate(_ context.Context, text string, _ []model.HistoryEntry, scope *model.BusinessScope) (Outcome, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Outcome{}, &Error{Reason: Unparseable}
	}

	dataScore := countMatches(lower, dataIndicators)
	adviceScore := countMatches(lower, adviceIndicators)

	domain, domainScore := detectDomain(lower)
	dataScore += domainScore

	if dataScore <= adviceScore {
		return Outcome{Kind: KindAdviceOnly}, nil
	}

	if domain == "" {
		if countMatches(lower, unsupportedKeywords) > 0 {
			return Outcome{}, &Error{Reason: UnsupportedDomain}
		}
		return Outcome{}, &Error{Reason: Unparseable}
	}

	filter := extractFilter(lower)

	// Stock-level and best-seller questions are product questions even when
	// the wording leans on sales or inventory vocabulary.
	if filter.LowStock || filter.TopN > 0 {
		domain = model.DomainProducts
	}

	req := &model.QueryRequest{
		ID:     NewRequestID(),
		Domain: domain,
		Filter: filter,
		Scope:  scope,
	}

	return Outcome{Kind: KindDataQuery, Request: req}, nil
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func detectDomain(text string) (model.Domain, int) {
	best := model.Domain("")
	bestScore := 0
	for _, d := range domainOrder {
		score := countMatches(text, domainKeywords[d])
		if score > bestScore {
			best = d
			bestScore = score
		}
	}
	return best, bestScore
}

func extractFilter(text string) model.Filter {
	var f model.Filter

	switch {
	case strings.Contains(text, "today") || strings.Contains(text, "leo"):
		f.Range = model.DateRange{Kind: model.RangeToday}
	case strings.Contains(text, "yesterday") || strings.Contains(text, "jana"):
		f.Range = model.DateRange{Kind: model.RangeYesterday}
	case strings.Contains(text, "this week") || strings.Contains(text, "wiki hii"):
		f.Range = model.DateRange{Kind: model.RangeThisWeek}
	case strings.Contains(text, "last month") || strings.Contains(text, "mwezi uliopita"):
		f.Range = model.DateRange{Kind: model.RangeLastMonth}
	case strings.Contains(text, "this month") || strings.Contains(text, "mwezi huu"):
		f.Range = model.DateRange{Kind: model.RangeThisMonth}
	default:
		if m := lastNDaysRe.FindStringSubmatch(text); m != nil {
			days, _ := strconv.Atoi(m[1])
			f.Range = model.DateRange{Kind: model.RangeLastNDays, Days: days}
		}
	}

	if strings.Contains(text, "low stock") || strings.Contains(text, "running low") ||
		strings.Contains(text, "out of stock") {
		f.LowStock = true
	}

	if strings.Contains(text, "best selling") || strings.Contains(text, "best seller") ||
		strings.Contains(text, "top selling") || strings.Contains(text, "zinazouzwa zaidi") {
		f.TopN = 10
	}

	return f
}
