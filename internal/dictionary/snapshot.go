// internal/dictionary/snapshot.go
//
// Binary snapshot of the word cache for warm starts.
//
// Format: a CBOR array of {key, WordInfo} pairs, least recently used first, so
// reloading preserves recency order.
//
// Failure policy:
//   - LoadSnapshot: a missing or corrupt file is logged; the cache stays as it was.
//   - SaveSnapshot: errors are wrapped in ErrStoreFailed for the caller to log.
//     The file is written to a temp name and renamed, so a failed save never
//     clobbers the previous snapshot.

package dictionary

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog/log"
)

// Pair is one snapshot record.
type Pair struct {
	Key  string   `cbor:"1,keyasint"`
	Info WordInfo `cbor:"2,keyasint"`
}

// Snapshot returns every cached entry, least recently used first.
func (c *Cache) Snapshot() []Pair {
	keys := c.entries.Keys()
	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		if info, ok := c.entries.Peek(k); ok {
			out = append(out, Pair{Key: k, Info: info})
		}
	}
	return out
}

// SaveSnapshot writes the current cache contents to path.
func (c *Cache) SaveSnapshot(path string) error {
	pairs := c.Snapshot()
	data, err := cbor.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ErrStoreFailed, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrStoreFailed, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrStoreFailed, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrStoreFailed, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrStoreFailed, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", ErrStoreFailed, path, err)
	}

	log.Info().Str("path", path).Int("entries", len(pairs)).Msg("word cache snapshot saved")
	return nil
}

// LoadSnapshot populates the cache from path and returns the number of
// entries loaded. The returned error is informational only.
func (c *Cache) LoadSnapshot(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info().Str("path", path).Msg("no word cache snapshot; starting empty")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("cannot read word cache snapshot; starting empty")
		}
		return 0, err
	}

	var pairs []Pair
	if err := cbor.Unmarshal(data, &pairs); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("corrupt word cache snapshot; starting empty")
		return 0, err
	}

	n := 0
	for _, p := range pairs {
		key := Normalize(p.Key)
		if key == "" || p.Info.Word == "" {
			continue
		}
		c.entries.Add(key, p.Info)
		n++
	}
	log.Info().Str("path", path).Int("entries", n).Msg("word cache snapshot loaded")
	return n, nil
}
