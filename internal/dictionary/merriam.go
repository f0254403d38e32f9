// internal/dictionary/merriam.go
//
// Resolver backed by the Merriam-Webster Collegiate Dictionary API.
//
// Request:  GET {base}/{word}?key={apiKey}
// Response: a JSON array that is either
//   - entries: [{ "meta": {"id", "stems": [...]}, "fl": "noun", "shortdef": [...] }, ...]
//   - suggestions: ["apple", "apples", ...] when the word is unknown.
//
// Suggestions and empty arrays yield no entries (the cache maps that to
// ErrLookupFailed). Calls are rate limited; the API is metered per key.

package dictionary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// DefaultMerriamWebsterURL is the collegiate JSON endpoint.
const DefaultMerriamWebsterURL = "https://www.dictionaryapi.com/api/v3/references/collegiate/json"

// maxResponseBytes bounds a single API response body.
const maxResponseBytes = 2 << 20

// MerriamWebster implements Resolver over HTTP.
type MerriamWebster struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	limiter *rate.Limiter
}

// NewMerriamWebster returns a resolver allowing at most rps requests per
// second (unlimited if rps <= 0).
func NewMerriamWebster(apiKey string, rps float64) *MerriamWebster {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &MerriamWebster{
		BaseURL: DefaultMerriamWebsterURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Resolve fetches and parses the entries for word.
func (m *MerriamWebster) Resolve(ctx context.Context, word string) ([]Entry, error) {
	if m.APIKey == "" {
		return nil, fmt.Errorf("merriam-webster: no API key configured")
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := strings.TrimRight(m.BaseURL, "/") + "/" + url.PathEscape(word) + "?key=" + url.QueryEscape(m.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("merriam-webster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("merriam-webster: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("merriam-webster: read body: %w", err)
	}
	return ParseMerriamWebster(body)
}

// ParseMerriamWebster extracts entries from a collegiate API response body.
func ParseMerriamWebster(body []byte) ([]Entry, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("merriam-webster: invalid JSON response")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("merriam-webster: unexpected response shape")
	}

	var out []Entry
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true // spelling suggestion
		}
		e := Entry{FunctionalLabel: item.Get("fl").String()}
		for _, d := range item.Get("shortdef").Array() {
			e.Definitions = append(e.Definitions, d.String())
		}
		for _, s := range item.Get("meta.stems").Array() {
			e.Stems = append(e.Stems, s.String())
		}
		out = append(out, e)
		return true
	})
	return out, nil
}
