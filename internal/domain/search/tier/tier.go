package tier

// Tier is one retrieval strategy run during a search call.
type Tier string

// Tiers in priority order.
const (
	Exact    Tier = "exact"
	Fuzzy    Tier = "fuzzy"
	Semantic Tier = "semantic"
)

// Rank orders tiers: lower runs first and wins provenance ties.
func (t Tier) Rank() int {
	switch t {
	case Exact:
		return 0
	case Fuzzy:
		return 1
	case Semantic:
		return 2
	}
	return 3
}

// IsValid checks if the tier is one of the supported values.
func (t Tier) IsValid() bool {
	return t == Exact || t == Fuzzy || t == Semantic
}

// Tag builds a provenance tag such as "fuzzy:title".
func (t Tier) Tag(field string) string {
	return string(t) + ":" + field
}
