package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"

// RNG wraps a seeded math/rand source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

func (r *RNG) wordLocked(minLen, maxLen int) string {
	n := minLen + r.rand.Intn(maxLen-minLen+1)
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[r.rand.Intn(len(alphabet))])
	}
	return sb.String()
}

// Symbol returns a random C++-mangled-looking symbol name.
func (r *RNG) Symbol() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return "?" + r.wordLocked(3, 24) + "@@" + r.wordLocked(2, 8)
}

// Symbols returns n distinct symbol names.
func (r *RNG) Symbols(n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for len(out) < n {
		s := r.Symbol()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// LibraryPath returns a random Windows or POSIX library path.
func (r *RNG) LibraryPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rand.Intn(2) == 0 {
		return `C:\libs\` + r.wordLocked(2, 10) + `\` + r.wordLocked(3, 12) + ".lib"
	}
	return "/usr/lib/" + r.wordLocked(2, 10) + "/lib" + r.wordLocked(3, 12) + ".a"
}

// Zipf returns a Zipfian-distributed value in [0, n).
// P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// SymbolFile generates symbol-file text for libs libraries with up to
// perLib symbols each, drawn with Zipfian skew from a pool of
// libs*perLib/2 names. want maps each symbol to its libraries joined with
// "\n" in first-seen order. A library never lists the same symbol twice.
func (r *RNG) SymbolFile(libs, perLib int) (src string, want map[string]string) {
	pool := r.Symbols(max(1, libs*perLib/2))
	want = make(map[string]string)

	var sb strings.Builder
	for l := 0; l < libs; l++ {
		lib := r.LibraryPath()
		fmt.Fprintf(&sb, "fullpath: %s\n", lib)

		listed := make(map[string]struct{}, perLib)
		for s := 0; s < perLib; s++ {
			sym := pool[r.Zipf(len(pool), 1.2)]
			if _, dup := listed[sym]; dup {
				continue
			}
			listed[sym] = struct{}{}
			fmt.Fprintf(&sb, "  - %s\n", sym)

			if prev, ok := want[sym]; ok {
				want[sym] = prev + "\n" + lib
			} else {
				want[sym] = lib
			}
		}
	}
	return sb.String(), want
}
