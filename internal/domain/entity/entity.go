package entity

// Sentiment is the polarity label of a text.
type Sentiment string

// Sentiment labels.
const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// Topic vocabulary shared by topics and categories.
const (
	Travel        = "travel"
	Food          = "food"
	Culture       = "culture"
	Nature        = "nature"
	Adventure     = "adventure"
	Entertainment = "entertainment"
	Shopping      = "shopping"
	Transport     = "transport"
)

// Entities is the result of analyzing one text. It is recomputed per call.
type Entities struct {
	People        []string  `json:"people"`
	Places        []string  `json:"places"`
	Organizations []string  `json:"organizations"`
	Money         []string  `json:"money"`
	Dates         []string  `json:"dates"`
	Topics        []string  `json:"topics"`
	Sentiment     Sentiment `json:"sentiment"`
	Categories    []string  `json:"categories"`

	// Nouns and Adjectives are the lexical word classes the planner and
	// tag generator draw from. Lowercased, first-seen order.
	Nouns      []string `json:"nouns"`
	Adjectives []string `json:"adjectives"`
}

// Empty returns entities with all lists non-nil and neutral sentiment.
func Empty() Entities {
	return Entities{
		People:        []string{},
		Places:        []string{},
		Organizations: []string{},
		Money:         []string{},
		Dates:         []string{},
		Topics:        []string{},
		Sentiment:     Neutral,
		Categories:    []string{},
		Nouns:         []string{},
		Adjectives:    []string{},
	}
}
