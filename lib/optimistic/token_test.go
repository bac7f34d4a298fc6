package optimistic

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTokenFormat(t *testing.T) {
	var src tokenSource
	now := time.UnixMilli(1700000000000)

	first := src.next(now)
	second := src.next(now)

	if first == second {
		t.Fatalf("Expected distinct tokens for the same timestamp, got %s twice", first)
	}
	if !strings.HasPrefix(first.String(), "opt-") {
		t.Errorf("Expected token prefix opt-, got %s", first)
	}
	if first != "opt-loyw3v28-1" {
		t.Errorf("Unexpected token %s", first)
	}
	if !first.Valid() || !second.Valid() {
		t.Errorf("Expected minted tokens to be valid")
	}
}

func TestTokenValid(t *testing.T) {
	tests := []struct {
		token Token
		valid bool
	}{
		{"opt-loyw3v28-1", true},
		{"opt-0-z", true},
		{"", false},
		{"opt-", false},
		{"opt-abc", false},
		{"opt--1", false},
		{"opt-abc-", false},
		{"xyz-abc-1", false},
		{"opt-ab!-1", false},
		{"opt-abc-1-2", false},
	}
	for _, tt := range tests {
		if got := tt.token.Valid(); got != tt.valid {
			t.Errorf("Valid(%q) = %v, want %v", tt.token, got, tt.valid)
		}
	}
}

func TestTokenConcurrentUniqueness(t *testing.T) {
	var src tokenSource
	const goroutines = 16
	const perGoroutine = 1000

	var (
		mu   sync.Mutex
		seen = make(map[Token]struct{}, goroutines*perGoroutine)
		wg   sync.WaitGroup
	)
	now := time.Now()
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]Token, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, src.next(now))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if _, dup := seen[id]; dup {
					t.Errorf("Duplicate token %s", id)
				}
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Errorf("Expected %d tokens, got %d", goroutines*perGoroutine, len(seen))
	}
}
