package request

import (
	"fmt"

	"github.com/tripnote/tripnote/internal/domain/record"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength   = 4096
	DefaultLimit     = 20
	MaxLimit         = 500
	DefaultThreshold = 0.3
)

// Options is a validated set of search options.
type Options struct {
	modules   []string
	limit     int
	threshold float64
}

// New validates and normalizes search options.
// Defaults: limit=20, threshold=0.3. A zero threshold is kept as "use default";
// pass a negative limit or a threshold outside 0..1 to get an error.
// Unknown module names are kept: they simply match nothing.
func New(modules []string, limit int, threshold float64) (Options, error) {
	if limit < 0 {
		return Options{}, fmt.Errorf("limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if threshold < 0 || threshold > 1 {
		return Options{}, fmt.Errorf("threshold must be between 0 and 1")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	var mods []string
	if len(modules) > 0 {
		seen := make(map[string]bool, len(modules))
		for _, m := range modules {
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			mods = append(mods, m)
		}
	}

	return Options{modules: mods, limit: limit, threshold: threshold}, nil
}

// Default returns options with default limit and threshold over all collections.
func Default() Options {
	return Options{limit: DefaultLimit, threshold: DefaultThreshold}
}

// ValidateQuery checks the raw query text.
func ValidateQuery(q string) error {
	if len(q) > MaxQueryLength {
		return fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	return nil
}

// Modules returns the collection restriction (nil means all collections).
func (o *Options) Modules() []string { return o.modules }

// Limit returns the maximum results to return.
func (o *Options) Limit() int { return o.limit }

// Threshold returns the minimum caller-facing score for fuzzy candidates.
func (o *Options) Threshold() float64 { return o.threshold }

// Includes reports whether the collection is searched under these options.
func (o *Options) Includes(collection string) bool {
	if len(o.modules) == 0 {
		return true
	}
	for _, m := range o.modules {
		if m == collection {
			return true
		}
	}
	return false
}

// Collections returns the known collections selected by the options, in index order.
func (o *Options) Collections() []string {
	var out []string
	for _, c := range record.Collections() {
		if o.Includes(c) {
			out = append(out, c)
		}
	}
	return out
}

// CacheKey renders the options as a stable string for result caching.
func (o *Options) CacheKey() string {
	return fmt.Sprintf("%v|%d|%.4f", o.modules, o.limit, o.threshold)
}
