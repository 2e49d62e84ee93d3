package search

import (
	"sort"
	"strings"

	"github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/domain/search/result"
	"github.com/tripnote/tripnote/internal/domain/search/tier"
	"github.com/tripnote/tripnote/internal/index"
)

// candidate is one tier's opinion about an entry.
type candidate struct {
	entry  *index.Entry
	score  float64
	fields []string
}

type fused struct {
	entry  *index.Entry
	score  float64
	fields []string
	first  tier.Tier
}

// fuser merges candidates from every tier keyed by "collection:id".
// The highest score wins; provenance tags from every contributor accumulate.
type fuser struct {
	byKey map[string]*fused
}

func newFuser() *fuser {
	return &fuser{byKey: make(map[string]*fused)}
}

func (f *fuser) add(t tier.Tier, cands []candidate) {
	for _, c := range cands {
		tags := make([]string, 0, len(c.fields))
		for _, field := range c.fields {
			tags = append(tags, t.Tag(field))
		}
		key := c.entry.Key()
		cur, ok := f.byKey[key]
		if !ok {
			f.byKey[key] = &fused{entry: c.entry, score: c.score, fields: tags, first: t}
			continue
		}
		if c.score > cur.score {
			cur.score = c.score
		}
		cur.fields = append(cur.fields, tags...)
	}
}

func (f *fuser) len() int { return len(f.byKey) }

// results sorts by score descending and truncates to limit (limit <= 0 keeps all).
// Ties fall back to the tier that first saw the record, then collection
// order, then id.
func (f *fuser) results(limit int, queryWords []string) []result.Result {
	all := make([]*fused, 0, len(f.byKey))
	for _, v := range f.byKey {
		all = append(all, v)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.first.Rank() != b.first.Rank() {
			return a.first.Rank() < b.first.Rank()
		}
		if a.entry.Collection != b.entry.Collection {
			return collectionRank(a.entry.Collection) < collectionRank(b.entry.Collection)
		}
		return a.entry.Record.ID < b.entry.Record.ID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make([]result.Result, 0, len(all))
	for _, v := range all {
		rec := v.entry.Record
		out = append(out, result.New(rec, v.score, v.fields, snippet(&rec, queryWords)))
	}
	return out
}

func collectionRank(name string) int {
	for i, c := range record.Collections() {
		if c == name {
			return i
		}
	}
	return len(record.Collections())
}

// queryWords splits a query into lowercase words for snippet scoring.
func queryWords(q string) []string {
	return strings.Fields(strings.ToLower(q))
}
