package record

import (
	"fmt"
	"strings"
	"time"
)

// Collection names. The order of Collections() is the indexing order.
const (
	Pins      = "pins"
	People    = "people"
	Journal   = "journal"
	Expenses  = "expenses"
	Checklist = "checklist"
	Learning  = "learning"
	Food      = "food"
	Gear      = "gear"
)

var collections = []string{Pins, People, Journal, Expenses, Checklist, Learning, Food, Gear}

// Collections returns the known collection names in fixed order.
func Collections() []string {
	out := make([]string, len(collections))
	copy(out, collections)
	return out
}

// IsKnownCollection reports whether name is one of the fixed collections.
func IsKnownCollection(name string) bool {
	for _, c := range collections {
		if c == name {
			return true
		}
	}
	return false
}

// Record is one entry of a collection. Collections disagree on whether the
// display field is "title" or "name", so both are carried.
type Record struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Title       string   `json:"title,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content,omitempty"`
	Location    string   `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`

	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Date     string   `json:"date,omitempty"`
	Category string   `json:"category,omitempty"`
	Person   string   `json:"person,omitempty"`
}

// DisplayTitle returns Title, falling back to Name.
func (r *Record) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Body returns Description, falling back to Content when Description is blank.
func (r *Record) Body() string {
	if strings.TrimSpace(r.Description) != "" {
		return r.Description
	}
	return r.Content
}

// Clone returns a copy that shares no memory with r.
func (r *Record) Clone() Record {
	c := *r
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Amount != nil {
		v := *r.Amount
		c.Amount = &v
	}
	return c
}

// Key returns the cross-collection identity "collection:id".
func (r *Record) Key() string { return Key(r.Type, r.ID) }

// Key builds the cross-collection identity used for deduplication.
func Key(collection, id string) string { return collection + ":" + id }

// Normalize trims tags and drops empty and duplicate ones, keeping the first occurrence.
func (r *Record) Normalize() {
	if len(r.Tags) == 0 {
		return
	}
	seen := make(map[string]bool, len(r.Tags))
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	r.Tags = tags
}

// Validate checks identity, collection and timestamp ordering.
// Timestamps that do not parse as RFC 3339 are not compared.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record id is required")
	}
	if !IsKnownCollection(r.Type) {
		return fmt.Errorf("unknown collection %q", r.Type)
	}
	seen := make(map[string]bool, len(r.Tags))
	for _, t := range r.Tags {
		if seen[t] {
			return fmt.Errorf("duplicate tag %q", t)
		}
		seen[t] = true
	}
	if r.CreatedAt == "" || r.UpdatedAt == "" {
		return nil
	}
	created, errC := time.Parse(time.RFC3339, r.CreatedAt)
	updated, errU := time.Parse(time.RFC3339, r.UpdatedAt)
	if errC != nil || errU != nil {
		return nil
	}
	if updated.Before(created) {
		return fmt.Errorf("updatedAt %s precedes createdAt %s", r.UpdatedAt, r.CreatedAt)
	}
	return nil
}

// Touch stamps UpdatedAt (and CreatedAt when empty) with now.
func (r *Record) Touch(now time.Time) {
	ts := now.UTC().Format(time.RFC3339)
	if r.CreatedAt == "" {
		r.CreatedAt = ts
	}
	r.UpdatedAt = ts
}
