// Package fuzzy implements weighted approximate string matching over keyed
// documents. A pattern matches a field value when the edit distance between
// the pattern and the best-matching substring of the value, divided by the
// pattern length, is within the configured threshold.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Defaults for Config.
const (
	DefaultThreshold          = 0.4
	DefaultMinMatchCharLength = 2
)

// Config tunes matching. Threshold is the library-level acceptance knob
// (normalized distance), independent of any caller-facing score threshold.
type Config struct {
	Threshold          float64
	MinMatchCharLength int
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MinMatchCharLength <= 0 {
		c.MinMatchCharLength = DefaultMinMatchCharLength
	}
	return c
}

// Key is a weighted document field.
type Key struct {
	Name   string
	Weight float64
}

// Document maps key names to one or more values.
type Document map[string][]string

// Match is one matching document.
type Match struct {
	Index    int      // position of the document in the index
	Distance float64  // weighted normalized distance, 0 is a perfect match
	Keys     []string // keys that matched, in key order
}

type field struct {
	values [][]rune
}

// Index is an immutable set of documents prepared for fuzzy search.
// It is safe for concurrent use.
type Index struct {
	cfg  Config
	keys []Key
	docs [][]field // docs[i][k] is the k-th key of document i
}

// NewIndex lowercases and stores the documents under the given keys.
func NewIndex(keys []Key, docs []Document, cfg Config) *Index {
	idx := &Index{
		cfg:  cfg.withDefaults(),
		keys: append([]Key(nil), keys...),
		docs: make([][]field, len(docs)),
	}
	for i, d := range docs {
		fields := make([]field, len(keys))
		for k, key := range keys {
			for _, v := range d[key.Name] {
				v = strings.TrimSpace(v)
				if v == "" {
					continue
				}
				fields[k].values = append(fields[k].values, []rune(strings.ToLower(v)))
			}
		}
		idx.docs[i] = fields
	}
	return idx
}

// Len returns the number of documents.
func (idx *Index) Len() int { return len(idx.docs) }

// Search returns matching documents sorted by ascending distance, ties by index.
//
// A value matches when its normalized distance is at most the threshold.
// Patterns longer than MaxPatternLength runes are split into chunks that
// must each match; their distances are averaged. Only the first
// MaxPatternChunks chunks take part.
func (idx *Index) Search(pattern string) []Match {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if utf8.RuneCountInString(pattern) < idx.cfg.MinMatchCharLength {
		return nil
	}
	chunks := splitPattern([]rune(pattern))

	var matches []Match
	var buf []int
	for i, fields := range idx.docs {
		var sum, weights float64
		var matched []string
		for k, f := range fields {
			best := -1.0
			for _, v := range f.values {
				d, ok := idx.distance(chunks, v, &buf)
				if ok && (best < 0 || d < best) {
					best = d
				}
			}
			if best < 0 {
				continue
			}
			w := idx.keys[k].Weight
			if w <= 0 {
				w = 1
			}
			sum += best * w
			weights += w
			matched = append(matched, idx.keys[k].Name)
		}
		if len(matched) == 0 {
			continue
		}
		matches = append(matches, Match{Index: i, Distance: sum / weights, Keys: matched})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Distance < matches[b].Distance
	})
	return matches
}

// Pattern length limits.
const (
	MaxPatternLength = 32
	MaxPatternChunks = 8
)

func splitPattern(p []rune) [][]rune {
	var chunks [][]rune
	for len(p) > 0 && len(chunks) < MaxPatternChunks {
		n := min(len(p), MaxPatternLength)
		chunks = append(chunks, p[:n])
		p = p[n:]
	}
	return chunks
}

// distance returns the mean normalized distance of the chunks against text.
// Every chunk must be within the threshold on its own; the first one that
// is not rejects the value.
func (idx *Index) distance(chunks [][]rune, text []rune, buf *[]int) (float64, bool) {
	var sum float64
	for _, c := range chunks {
		k := int(math.Floor(idx.cfg.Threshold*float64(len(c)) + 1e-9))
		d := boundedDistance(c, text, k, buf)
		if d > k {
			return 0, false
		}
		sum += float64(d) / float64(len(c))
	}
	return sum / float64(len(chunks)), true
}

// SubstringDistance returns the minimum edit distance between pattern and
// any substring of text.
func SubstringDistance(pattern, text string) int {
	p := []rune(pattern)
	var buf []int
	return boundedDistance(p, []rune(text), len(p), &buf)
}

// boundedDistance returns the minimum edit distance between p and any
// substring of t, or k+1 when that distance exceeds k. It walks t one rune
// at a time keeping a single DP column and, following Ukkonen, only
// evaluates rows up to one past the last cell still within k, so the cost
// is O(k·len(t)) rather than O(len(p)·len(t)).
func boundedDistance(p, t []rune, k int, buf *[]int) int {
	m := len(p)
	if m == 0 {
		return 0
	}
	if cap(*buf) < m+1 {
		*buf = make([]int, m+1)
	}
	col := (*buf)[:m+1]
	for i := range col {
		col[i] = i
	}
	lact := min(k, m)
	best := k + 1
	if lact == m {
		best = m
	}

	for _, c := range t {
		diag, left := 0, 0 // col[i-1] of the previous and of the current column
		top := min(lact+1, m)
		for i := 1; i <= top; i++ {
			up := col[i]
			if i > lact {
				up = k + 1
			}
			v := diag
			if p[i-1] != c {
				v++
			}
			if up+1 < v {
				v = up + 1
			}
			if left+1 < v {
				v = left + 1
			}
			diag, col[i], left = up, v, v
		}
		lact = top
		for lact > 0 && col[lact] > k {
			lact--
		}
		if lact == m && col[m] < best {
			best = col[m]
			if best == 0 {
				return 0
			}
		}
	}
	return best
}
