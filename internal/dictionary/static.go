// internal/dictionary/static.go
//
// Offline resolvers: a fixed in-memory table loadable from JSON, and a chain
// that falls through a list of resolvers until one yields entries.
//
// File format (DEFINITIONS_FILE):
//
//	{ "apple": [{ "fl": "noun", "shortdef": ["the fleshy fruit ..."], "stems": ["apple", "apples"] }] }

package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Static resolves words from a fixed table.
type Static map[string][]Entry

// Resolve returns the table entries for word, or none.
func (s Static) Resolve(_ context.Context, word string) ([]Entry, error) {
	return s[Normalize(word)], nil
}

type staticEntry struct {
	FL       string   `json:"fl"`
	ShortDef []string `json:"shortdef"`
	Stems    []string `json:"stems"`
}

// LoadStatic reads a Static table from a JSON file.
func LoadStatic(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string][]staticEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make(Static, len(raw))
	for w, entries := range raw {
		for _, e := range entries {
			out[Normalize(w)] = append(out[Normalize(w)], Entry{
				FunctionalLabel: e.FL,
				Definitions:     e.ShortDef,
				Stems:           e.Stems,
			})
		}
	}
	return out, nil
}

// Chain tries each resolver in order and returns the first result carrying
// at least one non-blank definition. Errors are only reported when every
// resolver failed or came back without definitions.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, word string) ([]Entry, error) {
	var errs []error
	for _, r := range c {
		entries, err := r.Resolve(ctx, word)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if hasDefinition(entries) {
			return entries, nil
		}
	}
	return nil, errors.Join(errs...)
}

func hasDefinition(entries []Entry) bool {
	for _, e := range entries {
		for _, d := range e.Definitions {
			if strings.TrimSpace(d) != "" {
				return true
			}
		}
	}
	return false
}
