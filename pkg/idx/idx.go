// Package idx generates lexicographically sortable ULID identifiers for
// users and messages. A single monotonic entropy source keeps ids ordered
// even when two are minted in the same millisecond.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new ULID string based on the current UTC time.
func New() string {
	return NewAt(time.Now().UTC())
}

// NewAt mints a ULID at the provided time. Useful for tests and
// time-bounded cursors.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Parse validates s as a canonical ULID and returns it trimmed.
func Parse(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", ErrInvalid
	}
	return s, nil
}

// Time extracts the embedded UTC timestamp, or the zero time for malformed
// input.
func Time(s string) time.Time {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
