package index

import (
	"time"

	"github.com/tripnote/tripnote/internal/domain/record"
	"github.com/tripnote/tripnote/internal/fuzzy"
)

// fuzzyKeys are the weighted keys of every per-collection fuzzy index.
var fuzzyKeys = []fuzzy.Key{
	{Name: KeyTitle, Weight: 0.3},
	{Name: KeyName, Weight: 0.3},
	{Name: KeyDescription, Weight: 0.2},
	{Name: KeyContent, Weight: 0.2},
	{Name: KeyLocation, Weight: 0.15},
	{Name: KeyTags, Weight: 0.1},
	{Name: KeySearchText, Weight: 0.1},
}

// Hit is one fuzzy match inside a collection.
type Hit struct {
	Entry    *Entry
	Distance float64
	Fields   []string
}

// Snapshot is one fully built, immutable index state.
type Snapshot struct {
	generation uint64
	builtAt    time.Time
	entries    map[string][]Entry
	fuzzy      map[string]*fuzzy.Index
	tokens     *TokenIndex
	failed     []string
}

func emptySnapshot() *Snapshot {
	s := &Snapshot{
		entries: make(map[string][]Entry),
		fuzzy:   make(map[string]*fuzzy.Index),
		tokens:  newTokenIndex(),
	}
	s.tokens.seal()
	return s
}

func newSnapshot(gen uint64, builtAt time.Time, loaded map[string][]record.Record, failed []string, cfg fuzzy.Config) *Snapshot {
	s := &Snapshot{
		generation: gen,
		builtAt:    builtAt,
		entries:    make(map[string][]Entry, len(loaded)),
		fuzzy:      make(map[string]*fuzzy.Index, len(loaded)),
		tokens:     newTokenIndex(),
		failed:     failed,
	}
	for _, col := range record.Collections() {
		recs := loaded[col]
		entries := make([]Entry, 0, len(recs))
		docs := make([]fuzzy.Document, 0, len(recs))
		for _, r := range recs {
			e := newEntry(col, r)
			entries = append(entries, e)
		}
		for pos := range entries {
			f := entries[pos].fields()
			docs = append(docs, f)
			for _, name := range tokenFields {
				ref := Ref{Collection: col, Pos: pos, Field: name}
				for _, v := range f[name] {
					s.tokens.add(ref, v)
				}
			}
		}
		s.entries[col] = entries
		s.fuzzy[col] = fuzzy.NewIndex(fuzzyKeys, docs, cfg)
	}
	s.tokens.seal()
	return s
}

// Generation increases with every successful rebuild; 0 means never built.
func (s *Snapshot) Generation() uint64 { return s.generation }

// BuiltAt returns when the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Failed lists the collections that could not be loaded and were indexed empty.
func (s *Snapshot) Failed() []string { return append([]string(nil), s.failed...) }

// Tokens returns the cross-collection token index.
func (s *Snapshot) Tokens() *TokenIndex { return s.tokens }

// Entries returns the entries of collection. The slice must not be modified.
func (s *Snapshot) Entries(collection string) []Entry { return s.entries[collection] }

// Entry resolves a token index reference.
func (s *Snapshot) Entry(ref Ref) *Entry {
	entries := s.entries[ref.Collection]
	if ref.Pos < 0 || ref.Pos >= len(entries) {
		return nil
	}
	return &entries[ref.Pos]
}

// Len returns the total number of entries.
func (s *Snapshot) Len() int {
	n := 0
	for _, e := range s.entries {
		n += len(e)
	}
	return n
}

// SearchFuzzy runs pattern against one collection. Unknown collections yield nothing.
func (s *Snapshot) SearchFuzzy(collection, pattern string) []Hit {
	idx, ok := s.fuzzy[collection]
	if !ok {
		return nil
	}
	entries := s.entries[collection]
	matches := idx.Search(pattern)
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, Hit{Entry: &entries[m.Index], Distance: m.Distance, Fields: m.Keys})
	}
	return hits
}
