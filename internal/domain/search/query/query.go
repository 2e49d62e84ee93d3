package query

import (
	"time"

	"github.com/tripnote/tripnote/internal/domain/entity"
)

// AmountRange bounds a money amount. Nil ends are open.
type AmountRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsEmpty reports whether neither bound is set.
func (a AmountRange) IsEmpty() bool { return a.Min == nil && a.Max == nil }

// DateRange bounds a time window. Nil ends are open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsEmpty reports whether neither bound is set.
func (d DateRange) IsEmpty() bool { return d.Start == nil && d.End == nil }

// Filters are the structured constraints derived from a query.
type Filters struct {
	Location  string      `json:"location,omitempty"`
	Person    string      `json:"person,omitempty"`
	Amount    AmountRange `json:"amount"`
	DateRange DateRange   `json:"dateRange"`
	Type      string      `json:"type,omitempty"`
}

// Query is the normalized form of one user query.
type Query struct {
	Original    string          `json:"original"`
	Entities    entity.Entities `json:"entities"`
	SearchTerms []string        `json:"searchTerms"`
	Filters     Filters         `json:"filters"`
}
