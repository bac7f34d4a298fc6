package optimistic

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Token identifies a record inside a record store.
type Token string

const tokenPrefix = "opt-"

// tokenSource mints tokens from a monotonic counter and the creation timestamp
// (opt-<unix millis, base36>-<counter, base36>).
//
// Thread-safety: next is thread-safe since it uses atomic operations.
type tokenSource struct {
	counter atomic.Uint64
}

// sessionTokens is shared by every store of the process.
var sessionTokens tokenSource

func (s *tokenSource) next(now time.Time) Token {
	n := s.counter.Add(1)

	var sb strings.Builder
	sb.Grow(len(tokenPrefix) + 24)
	sb.WriteString(tokenPrefix)
	sb.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	sb.WriteByte('-')
	sb.WriteString(strconv.FormatUint(n, 36))
	return Token(sb.String())
}

// Valid reports whether t looks like a token minted by a store.
func (t Token) Valid() bool {
	rest, ok := strings.CutPrefix(string(t), tokenPrefix)
	if !ok {
		return false
	}
	ms, n, ok := strings.Cut(rest, "-")
	if !ok || ms == "" || n == "" {
		return false
	}
	if _, err := strconv.ParseInt(ms, 36, 64); err != nil {
		return false
	}
	_, err := strconv.ParseUint(n, 36, 64)
	return err == nil
}

func (t Token) String() string {
	return string(t)
}
