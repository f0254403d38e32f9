// internal/dictionary/cache.go
//
// Memoizing, capacity-bounded word cache in front of a Resolver.
//
// Responsibilities:
//   - Reject words outside the vocabulary before any external call (ErrNotFound).
//   - Serve hits without contacting the resolver.
//   - Collapse concurrent misses for the same key into one lookup (single-flight).
//   - Evict least-recently-used entries beyond the configured capacity.
//
// Notes:
//   - There is no global lock; the LRU is internally synchronised and the
//     single-flight group only serialises callers of the same key.
//   - A flight keeps the first caller's context values but not its
//     cancellation; each caller still stops waiting when its own ctx is done.
package dictionary

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is the entry bound used when none is configured.
const DefaultCapacity = 10_000

// Cache maps normalized words to resolved WordInfo.
type Cache struct {
	vocab    Vocabulary
	resolver Resolver
	entries  *lru.Cache[string, WordInfo]
	flight   singleflight.Group

	hits, misses, lookups atomic.Int64
}

// Stats are cumulative cache counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Lookups int64 `json:"lookups"` // external resolver calls
}

// NewCache builds a cache holding at most capacity entries
// (DefaultCapacity if capacity <= 0).
func NewCache(vocab Vocabulary, resolver Resolver, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, WordInfo](capacity)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	return &Cache{vocab: vocab, resolver: resolver, entries: entries}
}

// Resolve returns the WordInfo for word, looking it up on a miss.
func (c *Cache) Resolve(ctx context.Context, word string) (WordInfo, error) {
	key := Normalize(word)
	if key == "" || (c.vocab != nil && !c.vocab.IsValidWord(key)) {
		return WordInfo{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if info, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		return info, nil
	}
	c.misses.Add(1)

	ch := c.flight.DoChan(key, func() (any, error) {
		// A flight that finished just before this one started may have filled it.
		if info, ok := c.entries.Peek(key); ok {
			return info, nil
		}
		c.lookups.Add(1)
		entries, err := c.resolver.Resolve(context.WithoutCancel(ctx), key)
		if err != nil {
			log.Warn().Err(err).Str("word", key).Msg("dictionary lookup failed")
			return WordInfo{}, fmt.Errorf("%w: %q: %v", ErrLookupFailed, key, err)
		}
		info, err := build(key, entries)
		if err != nil {
			return WordInfo{}, err
		}
		c.entries.Add(key, info)
		return info, nil
	})

	select {
	case <-ctx.Done():
		return WordInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return WordInfo{}, res.Err
		}
		return res.Val.(WordInfo), nil
	}
}

// Get returns a cached entry without resolving or touching recency.
func (c *Cache) Get(word string) (WordInfo, bool) {
	return c.entries.Peek(Normalize(word))
}

// Put stores info under word, replacing any existing entry.
func (c *Cache) Put(word string, info WordInfo) {
	c.entries.Add(Normalize(word), info)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return c.entries.Len() }

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Lookups: c.lookups.Load(),
	}
}
