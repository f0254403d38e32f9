package dictionary

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vocab map[string]bool

func (v vocab) IsValidWord(w string) bool { return v[w] }

// countingResolver serves a Static table and counts calls per word.
type countingResolver struct {
	table Static
	mu    sync.Mutex
	calls map[string]int
}

func newCounting(table Static) *countingResolver {
	return &countingResolver{table: table, calls: map[string]int{}}
}

func (r *countingResolver) Resolve(ctx context.Context, word string) ([]Entry, error) {
	r.mu.Lock()
	r.calls[word]++
	r.mu.Unlock()
	return r.table.Resolve(ctx, word)
}

func (r *countingResolver) count(word string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[word]
}

var table = Static{
	"run": {
		{FunctionalLabel: "verb", Definitions: []string{"to go faster than a walk"}, Stems: []string{"run", "ran", "Running", "runs"}},
		{FunctionalLabel: "noun", Definitions: []string{"an act of running"}, Stems: []string{"run", "runs"}},
	},
	"apple": {{FunctionalLabel: "noun", Definitions: []string{"the fleshy fruit of a tree"}}},
	"blank": {{FunctionalLabel: "noun", Definitions: []string{}}},
}

func TestResolve_BuildsWordInfo(t *testing.T) {
	r := newCounting(table)
	c := NewCache(vocab{"run": true}, r, 10)

	info, err := c.Resolve(context.Background(), "  RUN ")
	require.NoError(t, err)

	assert.Equal(t, "run", info.Word)
	assert.Equal(t, []string{"run", "ran", "running", "runs"}, info.Stems)
	require.Len(t, info.Defs, 2)
	assert.Equal(t, "verb", info.Defs[0].FunctionalLabel)
	assert.Equal(t, []string{"an act of running"}, info.Defs[1].Definitions)
}

func TestResolve_AddsWordToStems(t *testing.T) {
	c := NewCache(vocab{"apple": true}, table, 10)
	info, err := c.Resolve(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple"}, info.Stems)
}

func TestResolve_HitSkipsResolver(t *testing.T) {
	r := newCounting(table)
	c := NewCache(vocab{"apple": true}, r, 10)

	for i := 0; i < 3; i++ {
		_, err := c.Resolve(context.Background(), "apple")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, r.count("apple"))

	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Lookups)
}

func TestResolve_NotFoundBeforeLookup(t *testing.T) {
	r := newCounting(table)
	c := NewCache(vocab{}, r, 10)

	_, err := c.Resolve(context.Background(), "apple")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.count("apple"))
}

func TestResolve_LookupFailed(t *testing.T) {
	boom := ResolverFunc(func(context.Context, string) ([]Entry, error) {
		return nil, errors.New("503")
	})
	c := NewCache(vocab{"apple": true, "blank": true, "zzz": true}, Chain{table, boom}, 10)

	_, err := c.Resolve(context.Background(), "blank")
	assert.ErrorIs(t, err, ErrLookupFailed, "empty definitions are not a success")

	_, err = c.Resolve(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Equal(t, 0, c.Len(), "failures are not cached")
}

func TestResolve_SingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	slow := ResolverFunc(func(ctx context.Context, w string) ([]Entry, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return table.Resolve(ctx, w)
	})
	c := NewCache(vocab{"run": true}, slow, 10)

	const n = 16
	results := make([]WordInfo, n)
	errs := make([]error, n)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.Resolve(context.Background(), "run")
	}()
	<-started
	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Resolve(context.Background(), "run")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestResolve_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	slow := ResolverFunc(func(ctx context.Context, w string) ([]Entry, error) {
		<-release
		return table.Resolve(ctx, w)
	})
	c := NewCache(vocab{"apple": true}, slow, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Resolve(ctx, "apple")
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { _, ok := c.Get("apple"); return ok },
		time.Second, 5*time.Millisecond, "the detached lookup still fills the cache")
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	r := newCounting(Static{
		"a": {{Definitions: []string{"first"}}},
		"b": {{Definitions: []string{"second"}}},
		"c": {{Definitions: []string{"third"}}},
	})
	c := NewCache(vocab{"a": true, "b": true, "c": true}, r, 2)
	ctx := context.Background()

	for _, w := range []string{"a", "b", "a", "c"} {
		_, err := c.Resolve(ctx, w)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestNewCache_DefaultCapacity(t *testing.T) {
	c := NewCache(nil, table, 0)
	info, err := c.Resolve(context.Background(), "apple")
	require.NoError(t, err, "nil vocabulary accepts any word")
	assert.Equal(t, "apple", info.Word)
}

func TestWordInfo_String(t *testing.T) {
	info := WordInfo{Word: "run", Defs: []Definition{
		{FunctionalLabel: "verb", Definitions: []string{"to go fast"}},
		{Definitions: []string{"a score in cricket"}},
	}}
	assert.Equal(t, "run\n  (verb) to go fast\n  a score in cricket", info.String())
}
