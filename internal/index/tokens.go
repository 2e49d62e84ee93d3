package index

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTokenLength is the shortest token kept by Tokenize.
const MinTokenLength = 2

// tokenFields are the keys the token index covers.
var tokenFields = []string{KeyTitle, KeyName, KeyDescription, KeyContent, KeyLocation, KeyTags}

// Ref points at one entry of a snapshot and the field a token came from.
type Ref struct {
	Collection string
	Pos        int
	Field      string
}

// TokenIndex maps lowercase tokens to entry references across all
// collections. Tokens are kept sorted so prefix lookups are a binary search.
type TokenIndex struct {
	tokens   []string
	postings map[string][]Ref
}

// Tokenize lowercases s and splits it on anything that is not a letter or
// digit, dropping tokens shorter than MinTokenLength.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTokenLength {
			out = append(out, f)
		}
	}
	return out
}

func newTokenIndex() *TokenIndex {
	return &TokenIndex{postings: make(map[string][]Ref)}
}

func (t *TokenIndex) add(ref Ref, text string) {
	for _, tok := range Tokenize(text) {
		list := t.postings[tok]
		// A field repeating a token is indexed once.
		if n := len(list); n > 0 && list[n-1] == ref {
			continue
		}
		t.postings[tok] = append(list, ref)
	}
}

func (t *TokenIndex) seal() {
	t.tokens = make([]string, 0, len(t.postings))
	for tok := range t.postings {
		t.tokens = append(t.tokens, tok)
	}
	sort.Strings(t.tokens)
}

// Len returns the number of distinct tokens.
func (t *TokenIndex) Len() int { return len(t.tokens) }

// Exact returns the references of token.
func (t *TokenIndex) Exact(token string) []Ref {
	return t.postings[strings.ToLower(token)]
}

// Prefix returns the references of every token that starts with prefix,
// excluding the token equal to prefix itself.
func (t *TokenIndex) Prefix(prefix string) []Ref {
	prefix = strings.ToLower(prefix)
	if prefix == "" {
		return nil
	}
	var out []Ref
	i := sort.SearchStrings(t.tokens, prefix)
	for ; i < len(t.tokens) && strings.HasPrefix(t.tokens[i], prefix); i++ {
		if t.tokens[i] == prefix {
			continue
		}
		out = append(out, t.postings[t.tokens[i]]...)
	}
	return out
}
