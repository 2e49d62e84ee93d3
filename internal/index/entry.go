package index

import (
	"strings"

	"github.com/tripnote/tripnote/internal/domain/record"
)

// Fuzzy keys and their weights. Title and name are both indexed since
// collections disagree on which one holds the display text.
const (
	KeyTitle       = "title"
	KeyName        = "name"
	KeyDescription = "description"
	KeyContent     = "content"
	KeyLocation    = "location"
	KeyTags        = "tags"
	KeySearchText  = "searchText"
)

// Entry is a denormalized projection of a record tagged with its collection.
type Entry struct {
	Collection string
	Record     record.Record
	// SearchText is the lowercase concatenation of the searchable fields.
	SearchText string
}

// Key returns the cross-collection identity "collection:id".
func (e *Entry) Key() string { return record.Key(e.Collection, e.Record.ID) }

func newEntry(collection string, rec record.Record) Entry {
	rec = rec.Clone()
	rec.Type = collection
	return Entry{Collection: collection, Record: rec, SearchText: searchText(&rec)}
}

func searchText(r *record.Record) string {
	parts := make([]string, 0, 5+len(r.Tags))
	for _, s := range []string{r.Title, r.Name, r.Description, r.Content, r.Location} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, r.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

// fields returns the per-key values of the entry, in the shape the fuzzy
// index and the token index consume.
func (e *Entry) fields() map[string][]string {
	r := &e.Record
	return map[string][]string{
		KeyTitle:       nonEmpty(r.Title),
		KeyName:        nonEmpty(r.Name),
		KeyDescription: nonEmpty(r.Description),
		KeyContent:     nonEmpty(r.Content),
		KeyLocation:    nonEmpty(r.Location),
		KeyTags:        r.Tags,
		KeySearchText:  nonEmpty(e.SearchText),
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
