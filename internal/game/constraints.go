// internal/game/constraints.go
//
// Per-turn constraint sets and the letter-level checks over them.
//
// A zero field means the rule is unset. Checks that need collaborators
// (rhyme, similarity) live on the Engine; everything here is pure.

package game

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Constraints is the rule bundle the next word must satisfy. It is replaced,
// never merged, at each turn transition.
type Constraints struct {
	StartingChar    rune    `json:"startingChar,omitempty"`
	ForbiddenChars  []rune  `json:"forbiddenChars,omitempty"`
	MinSharedChars  int     `json:"minSharedChars,omitempty"`
	RequiredLength  int     `json:"requiredLength,omitempty"`
	RhymeWith       string  `json:"rhymeWith,omitempty"`
	SimilarityFloor float64 `json:"similarityFloor,omitempty"`
}

// CheckLetters applies the starting-letter, length, forbidden-letter and
// shared-character rules to word. prev is the previous chain entry and may be
// empty, in which case the shared-character rule is skipped.
func (c Constraints) CheckLetters(word, prev string) error {
	if c.StartingChar != 0 {
		if first, _ := utf8.DecodeRuneInString(word); first != c.StartingChar {
			return reject(KindConstraintViolation, word, "word must start with '%c'", c.StartingChar)
		}
	}
	if c.RequiredLength > 0 {
		if n := utf8.RuneCountInString(word); n != c.RequiredLength {
			return reject(KindConstraintViolation, word, "word must be %d letters long", c.RequiredLength)
		}
	}
	if len(c.ForbiddenChars) > 0 && strings.ContainsAny(word, string(c.ForbiddenChars)) {
		return reject(KindConstraintViolation, word, "word contains a forbidden letter (%s)", c.forbidden())
	}
	if c.MinSharedChars > 0 && prev != "" {
		if n := SharedChars(word, prev); n < c.MinSharedChars {
			return reject(KindConstraintViolation, word, "word shares %d letters with %q, needs %d", n, prev, c.MinSharedChars)
		}
	}
	return nil
}

// Describe renders the constraints as a player-facing prompt.
func (c Constraints) Describe() string {
	var parts []string
	if c.StartingChar != 0 {
		parts = append(parts, fmt.Sprintf("starts with '%c'", c.StartingChar))
	}
	if c.RequiredLength > 0 {
		parts = append(parts, fmt.Sprintf("is %d letters long", c.RequiredLength))
	}
	if len(c.ForbiddenChars) > 0 {
		parts = append(parts, fmt.Sprintf("avoids %s", c.forbidden()))
	}
	if c.MinSharedChars > 0 {
		parts = append(parts, fmt.Sprintf("shares at least %d letters with the last word", c.MinSharedChars))
	}
	if c.RhymeWith != "" {
		parts = append(parts, fmt.Sprintf("rhymes with %q", c.RhymeWith))
	}
	if c.SimilarityFloor > 0 {
		parts = append(parts, fmt.Sprintf("means nearly the same as the last word (similarity >= %.2f)", c.SimilarityFloor))
	}
	if len(parts) == 0 {
		return "any word"
	}
	return "a word that " + strings.Join(parts, " and ")
}

func (c Constraints) forbidden() string {
	letters := make([]string, len(c.ForbiddenChars))
	for i, r := range c.ForbiddenChars {
		letters[i] = string(r)
	}
	return strings.Join(letters, ", ")
}

// SharedChars counts the distinct runes present in both a and b.
func SharedChars(a, b string) int {
	set := make(map[rune]struct{}, len(a))
	for _, r := range a {
		set[r] = struct{}{}
	}
	n := 0
	for _, r := range b {
		if _, ok := set[r]; ok {
			n++
			delete(set, r)
		}
	}
	return n
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	return r
}
