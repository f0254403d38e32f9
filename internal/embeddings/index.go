// internal/embeddings/index.go
//
// In-memory word embedding index.
//
// Responsibilities:
//   - Load a word→vector table from whitespace-delimited text (word2vec format).
//   - Partition words into buckets keyed by their first rune.
//   - Answer "similarity(a, b)" and "most similar word under predicate" queries.
//   - Act as the vocabulary of record for move legality (IsValidWord).
//
// Notes:
//   - The index is immutable once Load returns; concurrent readers need no locking.
//   - Buckets keep words in load order so scans are deterministic.
//   - Malformed rows are logged and skipped; an unreadable source is an error.
package embeddings

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidWord is returned when a queried word has no vector.
	ErrInvalidWord = errors.New("embeddings: word not indexed")
	// ErrNoMatch is returned when no indexed word satisfies a search.
	ErrNoMatch = errors.New("embeddings: no matching word")
	// ErrEmpty is returned by Load when the source held no usable rows.
	ErrEmpty = errors.New("embeddings: no vectors loaded")
)

// maxLineBytes bounds a single row; 300-dim float64 rows are well under this.
const maxLineBytes = 1 << 20

// Index holds every loaded vector, bucketed by first rune.
type Index struct {
	buckets map[rune]*bucket
	letters []rune // sorted bucket keys
	dim     int
	size    int
}

// bucket is the set of words sharing a first rune.
type bucket struct {
	words []string             // load order
	vecs  map[string][]float64 // word -> vector
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open embeddings %s: %w", path, err)
	}
	defer f.Close()

	ix, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load embeddings %s: %w", path, err)
	}
	return ix, nil
}

// Load parses rows of "<word> <float> <float> ..." from r.
//
// The first accepted row fixes the dimensionality; later rows with a different
// length are skipped. A leading "<count> <dim>" header is ignored.
func Load(r io.Reader) (*Index, error) {
	ix := &Index{buckets: make(map[rune]*bucket)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && isHeader(fields) {
			continue
		}

		word := fields[0]
		if len(fields) == 1 {
			log.Warn().Int("line", lineNo).Str("word", word).Msg("embedding row has no vector")
			continue
		}

		vec, err := parseVector(fields[1:])
		if err != nil {
			log.Warn().Err(err).Int("line", lineNo).Str("word", word).Msg("skipping malformed embedding row")
			continue
		}
		if ix.dim == 0 {
			ix.dim = len(vec)
		}
		if len(vec) != ix.dim {
			log.Warn().Int("line", lineNo).Str("word", word).
				Int("dim", len(vec)).Int("want", ix.dim).Msg("skipping embedding row with wrong dimensionality")
			continue
		}

		first, _ := utf8.DecodeRuneInString(word)
		b := ix.buckets[first]
		if b == nil {
			b = &bucket{vecs: make(map[string][]float64)}
			ix.buckets[first] = b
			ix.letters = append(ix.letters, first)
		}
		if _, dup := b.vecs[word]; dup {
			log.Warn().Int("line", lineNo).Str("word", word).Msg("duplicate embedding row ignored")
			continue
		}
		b.words = append(b.words, word)
		b.vecs[word] = vec
		ix.size++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if ix.size == 0 {
		return nil, ErrEmpty
	}

	sort.Slice(ix.letters, func(i, j int) bool { return ix.letters[i] < ix.letters[j] })
	log.Info().Int("words", ix.size).Int("buckets", len(ix.letters)).Int("dim", ix.dim).Msg("embeddings loaded")
	return ix, nil
}

// isHeader reports whether fields look like a word2vec "<count> <dim>" header.
func isHeader(fields []string) bool {
	if len(fields) != 2 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}

func parseVector(fields []string) ([]float64, error) {
	vec := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("component %d is not finite: %q", i+1, f)
		}
		vec[i] = v
	}
	return vec, nil
}

// Len returns the number of indexed words.
func (ix *Index) Len() int { return ix.size }

// Dim returns the vector dimensionality shared by every word.
func (ix *Index) Dim() int { return ix.dim }

// IsValidWord reports whether word has a vector.
func (ix *Index) IsValidWord(word string) bool {
	_, ok := ix.vector(word)
	return ok
}

func (ix *Index) vector(word string) ([]float64, bool) {
	if word == "" {
		return nil, false
	}
	first, _ := utf8.DecodeRuneInString(word)
	b := ix.buckets[first]
	if b == nil {
		return nil, false
	}
	v, ok := b.vecs[word]
	return v, ok
}

// Similarity returns the cosine similarity of a and b.
func (ix *Index) Similarity(a, b string) (float64, error) {
	va, ok := ix.vector(a)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWord, a)
	}
	vb, ok := ix.vector(b)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWord, b)
	}
	return Cosine(va, vb), nil
}

// MostSimilarUnder returns the word starting with startingChar that satisfies
// pred and is closest to reference. A zero startingChar searches every bucket.
//
// Ties keep the first word encountered.
func (ix *Index) MostSimilarUnder(reference string, startingChar rune, pred func(string) bool) (string, error) {
	ref, ok := ix.vector(reference)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidWord, reference)
	}

	best, bestSim := "", math.Inf(-1)
	for _, b := range ix.scan(startingChar) {
		for _, w := range b.words {
			if pred != nil && !pred(w) {
				continue
			}
			if sim := Cosine(ref, b.vecs[w]); sim > bestSim {
				best, bestSim = w, sim
			}
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: starting with %q", ErrNoMatch, string(startingChar))
	}
	return best, nil
}

// Candidates lists every word starting with startingChar (any, if zero) that
// satisfies pred, in bucket then load order.
func (ix *Index) Candidates(startingChar rune, pred func(string) bool) []string {
	var out []string
	for _, b := range ix.scan(startingChar) {
		for _, w := range b.words {
			if pred == nil || pred(w) {
				out = append(out, w)
			}
		}
	}
	return out
}

// scan returns the buckets a search over startingChar must visit.
func (ix *Index) scan(startingChar rune) []*bucket {
	if startingChar != 0 {
		if b := ix.buckets[startingChar]; b != nil {
			return []*bucket{b}
		}
		return nil
	}
	out := make([]*bucket, 0, len(ix.letters))
	for _, r := range ix.letters {
		out = append(out, ix.buckets[r])
	}
	return out
}

// Cosine returns the cosine similarity of two equal-length vectors.
// Zero vectors and mismatched lengths yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	// one sqrt over the product keeps Cosine(v, v) exactly 1
	sim := dot / math.Sqrt(na*nb)
	return math.Max(-1, math.Min(1, sim))
}
