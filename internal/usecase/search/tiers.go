package search

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tripnote/tripnote/internal/analyzer"
	"github.com/tripnote/tripnote/internal/domain/search/query"
	"github.com/tripnote/tripnote/internal/domain/search/request"
	"github.com/tripnote/tripnote/internal/domain/search/tier"
	"github.com/tripnote/tripnote/internal/index"
	"github.com/tripnote/tripnote/internal/metrics"
)

// Tier score multipliers.
const (
	exactScale        = 0.9
	prefixCredit      = 0.5
	fuzzyScale        = 0.8
	searchTermsScale  = 0.6
	entityScale       = 0.7
	locationScale     = 0.8
	personFilterScale = 0.9
)

// exactTier scores records by the share of query tokens found in the token
// index. An exact token hit counts 1, a prefix hit 0.5.
func (s *Service) exactTier(snap *index.Snapshot, q string, opts *request.Options) []candidate {
	tokens := queryTokens(q)
	if len(tokens) == 0 {
		return nil
	}

	type acc struct {
		entry   *index.Entry
		credit  map[string]float64
		fields  []string
		seenFld map[string]bool
	}
	byKey := make(map[string]*acc)
	var order []string

	note := func(tok string, ref index.Ref, credit float64) {
		if !opts.Includes(ref.Collection) {
			return
		}
		e := snap.Entry(ref)
		if e == nil {
			return
		}
		key := e.Key()
		a, ok := byKey[key]
		if !ok {
			a = &acc{entry: e, credit: make(map[string]float64), seenFld: make(map[string]bool)}
			byKey[key] = a
			order = append(order, key)
		}
		if credit > a.credit[tok] {
			a.credit[tok] = credit
		}
		if !a.seenFld[ref.Field] {
			a.seenFld[ref.Field] = true
			a.fields = append(a.fields, ref.Field)
		}
	}

	ti := snap.Tokens()
	for _, tok := range tokens {
		for _, ref := range ti.Exact(tok) {
			note(tok, ref, 1)
		}
		for _, ref := range ti.Prefix(tok) {
			note(tok, ref, prefixCredit)
		}
	}

	out := make([]candidate, 0, len(order))
	for _, key := range order {
		a := byKey[key]
		sum := 0.0
		for _, c := range a.credit {
			sum += c
		}
		score := exactScale * sum / float64(len(tokens))
		if score < opts.Threshold() {
			continue
		}
		out = append(out, candidate{entry: a.entry, score: score, fields: a.fields})
	}
	return out
}

// queryTokens returns the distinct non-stopword tokens of q.
func queryTokens(q string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range index.Tokenize(q) {
		if seen[tok] || analyzer.IsStopword(tok) {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// fuzzyTier searches every selected collection concurrently and scales
// the similarity (1 - distance) by scale. Candidates under minScore are
// dropped. A collection that panics contributes nothing.
func (s *Service) fuzzyTier(
	snap *index.Snapshot, pattern string, cols []string, scale, minScore float64,
) []candidate {
	if pattern == "" || len(cols) == 0 {
		return nil
	}
	per := make([][]candidate, len(cols))

	var g errgroup.Group
	for i, col := range cols {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					per[i] = nil
					s.logger.Error("fuzzy search panicked",
						zap.String("collection", col),
						zap.String("pattern", pattern),
						zap.String("panic", fmt.Sprint(r)),
					)
				}
			}()
			per[i] = s.searchCollection(snap, col, pattern, scale, minScore)
			return nil
		})
	}
	_ = g.Wait()

	var out []candidate
	for _, c := range per {
		out = append(out, c...)
	}
	return out
}

func (s *Service) searchCollection(snap *index.Snapshot, col, pattern string, scale, minScore float64) []candidate {
	if s.beforeCollection != nil {
		s.beforeCollection(col)
	}
	hits := snap.SearchFuzzy(col, pattern)
	out := make([]candidate, 0, len(hits))
	for _, h := range hits {
		score := (1 - h.Distance) * scale
		if score < minScore {
			continue
		}
		out = append(out, candidate{entry: h.Entry, score: score, fields: h.Fields})
	}
	return out
}

// semanticTier runs the planner-derived sub-queries. withTerms adds the
// joined search terms pass, which goes through the fuzzy tier and its
// threshold before being scaled down.
func (s *Service) semanticTier(
	snap *index.Snapshot, planned query.Query, cols []string, threshold float64, withTerms bool,
) []candidate {
	var out []candidate

	if withTerms && len(planned.SearchTerms) > 0 {
		joined := strings.Join(planned.SearchTerms, " ")
		for _, c := range s.fuzzyTier(snap, joined, cols, fuzzyScale, threshold) {
			c.score *= searchTermsScale
			out = append(out, c)
		}
	}

	sub := func(pattern string, scale float64) {
		out = append(out, s.fuzzyTier(snap, pattern, cols, scale, 0)...)
	}
	for _, p := range planned.Entities.People {
		sub(p, entityScale)
	}
	for _, p := range planned.Entities.Places {
		sub(p, entityScale)
	}
	if planned.Filters.Location != "" {
		sub(planned.Filters.Location, locationScale)
	}
	if planned.Filters.Person != "" {
		sub(planned.Filters.Person, personFilterScale)
	}

	metrics.SearchCandidatesTotal.WithLabelValues(string(tier.Semantic)).Add(float64(len(out)))
	return out
}
