// Package enrichment defines the contract of the optional remote call that
// suggests alternate search terms when local retrieval is weak.
package enrichment

import (
	"strings"

	"github.com/tripnote/tripnote/internal/domain/record"
)

// MaxContext is the number of local candidates sent along with a query.
const MaxContext = 3

// Request is the payload sent to the enrichment service.
type Request struct {
	Query   string          `json:"query"`
	Context []record.Record `json:"context"`
}

// Response is what the enrichment service returns on success.
type Response struct {
	SearchTerms []string       `json:"searchTerms"`
	Filters     map[string]any `json:"filters"`
	Suggestions []string       `json:"suggestions"`
}

// Fallback is the response substituted when the call fails.
func Fallback(query string) Response {
	return Response{
		SearchTerms: []string{query},
		Filters:     map[string]any{},
		Suggestions: []string{},
	}
}

// Terms returns the trimmed, non-empty search terms.
func (r *Response) Terms() []string {
	out := make([]string, 0, len(r.SearchTerms))
	for _, t := range r.SearchTerms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
