// Package planner turns a raw query string into a normalized search query
// with derived filters.
package planner

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tripnote/tripnote/internal/analyzer"
	"github.com/tripnote/tripnote/internal/domain/search/query"
)

// Amount bounds derived from price keywords.
const (
	ExpensiveMin = 50.0
	CheapMax     = 20.0
)

var (
	expensiveWords = []string{"expensive", "costly"}
	cheapWords     = []string{"cheap", "budget"}
)

// typeKeywords maps query keywords to a record type. Every entry is tested
// in order and the last matching one wins.
var typeKeywords = []struct {
	keyword string
	typ     string
}{
	{"temple", "culture"},
	{"museum", "culture"},
	{"restaurant", "food"},
	{"food", "food"},
	{"hotel", "accommodation"},
	{"flight", "transport"},
}

// Planner parses queries. It is safe for concurrent use.
type Planner struct {
	analyzer *analyzer.Analyzer
	now      func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock overrides the clock used for relative date ranges.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// New creates a Planner backed by a.
func New(a *analyzer.Analyzer, opts ...Option) *Planner {
	p := &Planner{analyzer: a, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse analyzes q once and derives search terms and filters from it.
func (p *Planner) Parse(q string) query.Query {
	e := p.analyzer.Analyze(q)
	lower := strings.ToLower(q)

	out := query.Query{
		Original:    q,
		Entities:    e,
		SearchTerms: searchTerms(e.Nouns, e.Adjectives),
	}
	if len(e.Places) > 0 {
		out.Filters.Location = e.Places[0]
	}
	if len(e.People) > 0 {
		out.Filters.Person = e.People[0]
	}
	out.Filters.Amount = amountRange(lower)
	out.Filters.DateRange = p.dateRange(lower)
	out.Filters.Type = typeOf(lower)
	return out
}

func searchTerms(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, w := range list {
			w = strings.ToLower(w)
			if utf8.RuneCountInString(w) <= 2 || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// amountRange applies the price keywords. When both groups occur the
// keyword appearing later in the query wins and the other bound stays unset.
func amountRange(lower string) query.AmountRange {
	exp := lastIndex(lower, expensiveWords)
	cheap := lastIndex(lower, cheapWords)
	var r query.AmountRange
	switch {
	case exp < 0 && cheap < 0:
	case exp > cheap:
		v := ExpensiveMin
		r.Min = &v
	default:
		v := CheapMax
		r.Max = &v
	}
	return r
}

func lastIndex(s string, words []string) int {
	best := -1
	for _, w := range words {
		if i := strings.LastIndex(s, w); i > best {
			best = i
		}
	}
	return best
}

func (p *Planner) dateRange(lower string) query.DateRange {
	now := p.now()
	var r query.DateRange
	if strings.Contains(lower, "last week") {
		start := now.AddDate(0, 0, -7)
		r.Start = &start
	}
	if strings.Contains(lower, "this month") {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		r.Start = &start
	}
	return r
}

func typeOf(lower string) string {
	typ := ""
	for _, k := range typeKeywords {
		if strings.Contains(lower, k.keyword) {
			typ = k.typ
		}
	}
	return typ
}
