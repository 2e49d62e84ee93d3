// Package analyzer turns free text into entities, topics, sentiment and
// tags using lexical heuristics. Everything here is pure and deterministic.
package analyzer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tripnote/tripnote/internal/domain/entity"
)

// MaxTags caps GenerateTags output.
const MaxTags = 10

// Analyzer extracts entities from text. The zero value is ready to use.
type Analyzer struct{}

// New creates an Analyzer.
func New() *Analyzer { return &Analyzer{} }

type tokenKind int

const (
	kindWord tokenKind = iota
	kindNumber
	kindSentenceEnd
	kindPunct
)

type token struct {
	text string
	kind tokenKind
}

var tokenRegex = regexp.MustCompile(`\p{L}[\p{L}\p{M}'’-]*|\d[\d.,:/-]*|[.!?]|[,;:()"]`)

func tokenize(text string) []token {
	raw := tokenRegex.FindAllString(text, -1)
	out := make([]token, 0, len(raw))
	for _, r := range raw {
		first, _ := utf8.DecodeRuneInString(r)
		switch {
		case r == "." || r == "!" || r == "?":
			out = append(out, token{text: r, kind: kindSentenceEnd})
		case unicode.IsDigit(first):
			out = append(out, token{text: r, kind: kindNumber})
		case unicode.IsLetter(first):
			w := strings.TrimSuffix(strings.TrimSuffix(r, "'s"), "’s")
			w = strings.Trim(w, "'’-")
			if w != "" {
				out = append(out, token{text: w, kind: kindWord})
			}
		default:
			out = append(out, token{text: r, kind: kindPunct})
		}
	}
	return out
}

// Analyze extracts entities, topics, sentiment and categories from text.
// Empty or whitespace-only input yields empty lists and neutral sentiment.
func (a *Analyzer) Analyze(text string) entity.Entities {
	e := entity.Empty()
	if strings.TrimSpace(text) == "" {
		return e
	}

	c := newCollector(&e)
	c.scan(tokenize(text))

	e.Money = extractMoney(text)
	e.Dates = extractDates(text)

	lower := strings.ToLower(text)
	e.Topics = detectTopics(lower)
	e.Sentiment = detectSentiment(lower)

	e.Categories = append([]string{}, e.Topics...)
	if len(e.Places) > 0 && !contains(e.Categories, entity.Travel) {
		e.Categories = append(e.Categories, entity.Travel)
	}
	return e
}

// GenerateTags returns nouns (3..19 chars), topics, the optional type and
// categories as an ordered set capped at MaxTags.
func (a *Analyzer) GenerateTags(text, typ string) []string {
	e := a.Analyze(text)
	tags := newOrderedSet()
	for _, n := range e.Nouns {
		if l := utf8.RuneCountInString(n); l >= 3 && l < 20 {
			tags.add(n)
		}
	}
	for _, t := range e.Topics {
		tags.add(t)
	}
	if typ != "" {
		tags.add(typ)
	}
	for _, c := range e.Categories {
		tags.add(c)
	}
	out := tags.items
	if len(out) > MaxTags {
		out = out[:MaxTags]
	}
	return out
}

func detectTopics(lower string) []string {
	out := []string{}
	for _, t := range topicKeywords {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, t.topic)
				break
			}
		}
	}
	return out
}

func detectSentiment(lower string) entity.Sentiment {
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	switch {
	case pos > neg:
		return entity.Positive
	case neg > pos:
		return entity.Negative
	default:
		return entity.Neutral
	}
}

// collector walks tokens and fills the name and word-class lists.
type collector struct {
	e *entity.Entities

	people, places, orgs, nouns, adjs *orderedSet

	phrase     []string
	prevWord   string // last common word before the current phrase, lowercased
	honorific  bool
	sentenceAt bool
}

func newCollector(e *entity.Entities) *collector {
	return &collector{
		e:          e,
		people:     newOrderedSet(),
		places:     newOrderedSet(),
		orgs:       newOrderedSet(),
		nouns:      newOrderedSet(),
		adjs:       newOrderedSet(),
		sentenceAt: true,
	}
}

func (c *collector) scan(tokens []token) {
	for _, t := range tokens {
		switch t.kind {
		case kindSentenceEnd:
			if c.honorific && len(c.phrase) == 0 {
				continue // "Dr." does not end a sentence
			}
			c.flush()
			c.sentenceAt = true
		case kindNumber, kindPunct:
			c.flush()
		case kindWord:
			c.word(t.text)
			c.sentenceAt = false
		}
	}
	c.flush()

	c.e.People = c.people.items
	c.e.Places = c.places.items
	c.e.Organizations = c.orgs.items
	c.e.Nouns = c.nouns.items
	c.e.Adjectives = c.adjs.items
}

func (c *collector) word(w string) {
	lower := strings.ToLower(w)

	if honorifics[lower] && isCapitalized(w) {
		c.flush()
		c.honorific = true
		return
	}

	if c.isProper(w, lower) {
		c.phrase = append(c.phrase, w)
		return
	}

	c.flush()
	c.common(w, lower)
	if lower != "the" {
		c.prevWord = lower
	}
}

func (c *collector) isProper(w, lower string) bool {
	if !isCapitalized(w) || lower == "i" || stopwords[lower] {
		return false
	}
	if c.sentenceAt && len(c.phrase) == 0 && !c.honorific {
		// Sentence-initial capitals are only trusted when the lexicon knows the word.
		return places[lower] || firstNames[lower] || knownOrgs[lower]
	}
	return true
}

// common handles a word that is not part of a proper-noun phrase.
func (c *collector) common(w, lower string) {
	if utf8.RuneCountInString(lower) < 2 {
		return
	}
	switch {
	case places[lower]:
		c.places.add(titleCase(w))
		c.nouns.add(lower)
		return
	case firstNames[lower]:
		c.people.add(titleCase(w))
		c.nouns.add(lower)
		return
	}

	switch classify(lower) {
	case classNoun:
		c.nouns.add(lower)
	case classAdjective:
		c.adjs.add(lower)
	}
}

func (c *collector) flush() {
	if len(c.phrase) == 0 {
		c.honorific = false
		return
	}
	text := strings.Join(c.phrase, " ")
	lower := strings.ToLower(text)
	lastLower := strings.ToLower(c.phrase[len(c.phrase)-1])

	switch {
	case c.honorific:
		c.people.add(text)
	case orgSuffixes[lastLower] || knownOrgs[lower] || isAcronym(text) && !places[lower]:
		c.orgs.add(text)
	case places[lower] || placeSuffixes[lastLower]:
		c.places.add(text)
	case anyIn(c.phrase, firstNames):
		c.people.add(text)
	case placePreps[c.prevWord]:
		c.places.add(text)
	case personCues[c.prevWord]:
		c.people.add(text)
	}
	c.nouns.add(lower)

	c.phrase = c.phrase[:0]
	c.honorific = false
	c.prevWord = lastLower
}

type wordClass int

const (
	classSkip wordClass = iota
	classNoun
	classAdjective
)

// classify assigns a lowercase common word to a coarse word class.
func classify(lower string) wordClass {
	if stopwords[lower] || verbs[lower] {
		return classSkip
	}
	if adjectives[lower] {
		return classAdjective
	}
	n := utf8.RuneCountInString(lower)
	if strings.HasSuffix(lower, "ly") && n > 3 && !lyNouns[lower] {
		return classSkip
	}
	if strings.HasSuffix(lower, "ed") && n > 4 && !edNouns[lower] {
		return classSkip
	}
	for _, suf := range adjectiveSuffixes {
		if strings.HasSuffix(lower, suf) && n > len(suf)+2 {
			return classAdjective
		}
	}
	return classNoun
}

func isCapitalized(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func isAcronym(w string) bool {
	n := utf8.RuneCountInString(w)
	if n < 2 || n > 6 {
		return false
	}
	for _, r := range w {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func titleCase(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + w[size:]
}

func anyIn(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[strings.ToLower(w)] {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type orderedSet struct {
	items []string
	seen  map[string]bool
}

func newOrderedSet() *orderedSet {
	return &orderedSet{items: []string{}, seen: make(map[string]bool)}
}

func (s *orderedSet) add(v string) {
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}
