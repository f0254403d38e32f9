// internal/daily/daily.go
//
// Deterministic daily games.
//
// Every player who starts a daily game of a variant on the same UTC date gets
// the same opening word and the same fixed parameters (e.g. the forbidden
// letter). The seed is HMAC-SHA256(salt, "YYYY-MM-DD/variant"), so the day's
// word cannot be predicted without the salt.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ParseDateKey validates a YYYY-MM-DD key.
func ParseDateKey(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// Seed returns the non-zero game seed for variant on date.
func Seed(date time.Time, salt, variant string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date) + "/" + variant))
	sum := h.Sum(nil)
	// first 8 bytes; zero means "no seed" to the engine
	if n := binary.BigEndian.Uint64(sum[:8]); n != 0 {
		return n
	}
	return 1
}
