// internal/dictionary/types.go
//
// Word metadata types shared by the cache, the resolvers and the game engine.
//
// Defines:
//   - WordInfo:   a resolved word (stems + structured definitions).
//   - Definition: one functional label (part of speech) with its short definitions.
//   - Entry:      one raw record returned by a Resolver.
//   - Resolver:   the external lookup collaborator.

package dictionary

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the word is not in the vocabulary of valid words.
	ErrNotFound = errors.New("dictionary: word not found")
	// ErrLookupFailed means the resolver errored or had no usable definitions.
	ErrLookupFailed = errors.New("dictionary: lookup failed")
	// ErrStoreFailed wraps snapshot persistence errors. Never fatal.
	ErrStoreFailed = errors.New("dictionary: store failed")
)

// Definition groups the short definitions of one functional label.
type Definition struct {
	FunctionalLabel string   `json:"functionalLabel" cbor:"1,keyasint"`
	Definitions     []string `json:"definitions" cbor:"2,keyasint"`
}

// WordInfo is shared read-only by every session that touches the word.
type WordInfo struct {
	Word  string       `json:"word" cbor:"1,keyasint"`
	Stems []string     `json:"stems" cbor:"2,keyasint"`
	Defs  []Definition `json:"defs" cbor:"3,keyasint"`
}

// String renders the word with its labelled definitions, one per line.
func (w WordInfo) String() string {
	var b strings.Builder
	b.WriteString(w.Word)
	for _, d := range w.Defs {
		for _, text := range d.Definitions {
			if d.FunctionalLabel != "" {
				fmt.Fprintf(&b, "\n  (%s) %s", d.FunctionalLabel, text)
			} else {
				fmt.Fprintf(&b, "\n  %s", text)
			}
		}
	}
	return b.String()
}

// Entry is one record produced by a Resolver.
type Entry struct {
	FunctionalLabel string
	Definitions     []string
	Stems           []string
}

// Resolver looks a lowercase word up in an external dictionary.
// Implementations are assumed slow and unreliable; callers memoize.
type Resolver interface {
	Resolve(ctx context.Context, word string) ([]Entry, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, word string) ([]Entry, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, word string) ([]Entry, error) {
	return f(ctx, word)
}

// Vocabulary is the index of valid words consulted before any lookup.
type Vocabulary interface {
	IsValidWord(word string) bool
}

// Normalize returns the cache key for word.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// build turns resolver entries into a WordInfo.
//
// Entries without definitions are dropped; if none remain the lookup failed.
// Stems are lowercased, de-duplicated in order, and always contain word.
func build(word string, entries []Entry) (WordInfo, error) {
	info := WordInfo{Word: word}
	seen := map[string]bool{}
	addStem := func(s string) {
		s = Normalize(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		info.Stems = append(info.Stems, s)
	}

	for _, e := range entries {
		var defs []string
		for _, d := range e.Definitions {
			if d = strings.TrimSpace(d); d != "" {
				defs = append(defs, d)
			}
		}
		if len(defs) == 0 {
			continue
		}
		info.Defs = append(info.Defs, Definition{FunctionalLabel: e.FunctionalLabel, Definitions: defs})
		for _, s := range e.Stems {
			addStem(s)
		}
	}
	if len(info.Defs) == 0 {
		return WordInfo{}, fmt.Errorf("%w: no definitions for %q", ErrLookupFailed, word)
	}
	addStem(word)
	return info, nil
}
