// internal/phonetics/cmudict.go
//
// Pronunciation lookups from the CMU Pronouncing Dictionary.
//
// File format (cmudict.txt):
//
//	;;; comment lines
//	APPLE  AE1 P AH0 L
//	APPLE(1)  ...          alternate pronunciation
//
// Only the first pronunciation of each word is kept. Two words rhyme when
// the last TailLength phonemes of their pronunciations are identical; a word
// without an entry rhymes with nothing.

package phonetics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// TailLength is the number of trailing phonemes compared by Rhymes.
const TailLength = 3

// Dict maps lowercase words to phoneme sequences.
type Dict struct {
	entries map[string][]string
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cmudict: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a CMU dictionary.
func Load(r io.Reader) (*Dict, error) {
	d := &Dict{entries: map[string][]string{}}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";;;") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		word := strings.ToLower(fields[0])
		if i := strings.IndexByte(word, '('); i > 0 {
			word = word[:i]
		}
		if _, ok := d.entries[word]; ok {
			continue
		}
		d.entries[word] = fields[1:]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read cmudict: %w", err)
	}
	log.Info().Int("words", len(d.entries)).Msg("pronouncing dictionary loaded")
	return d, nil
}

// New builds a Dict from an in-memory table.
func New(entries map[string][]string) *Dict {
	d := &Dict{entries: make(map[string][]string, len(entries))}
	for w, p := range entries {
		d.entries[strings.ToLower(w)] = p
	}
	return d
}

// Len returns the number of words with a pronunciation.
func (d *Dict) Len() int { return len(d.entries) }

// Phonemes returns the pronunciation of word.
func (d *Dict) Phonemes(word string) ([]string, bool) {
	p, ok := d.entries[strings.ToLower(word)]
	return p, ok
}

// Tail returns the last n phonemes of word (fewer if the word is shorter).
func (d *Dict) Tail(word string, n int) ([]string, bool) {
	p, ok := d.Phonemes(word)
	if !ok {
		return nil, false
	}
	if len(p) > n {
		p = p[len(p)-n:]
	}
	return p, true
}

// Rhymes reports whether a and b share their last TailLength phonemes.
func (d *Dict) Rhymes(a, b string) bool {
	ta, ok := d.Tail(a, TailLength)
	if !ok {
		return false
	}
	tb, ok := d.Tail(b, TailLength)
	if !ok {
		return false
	}
	return slices.Equal(ta, tb)
}
