package ttest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandForTest returns a deterministic RNG seeded from the test name,
// so a failing randomized test replays identically.
func RandForTest(t testing.TB) *rand.Rand {
	// Sha256 happens to be the right size for the chacha8 seed,
	// and we are not limited by the length of any particular test name.
	seed := sha256.Sum256([]byte(t.Name()))
	return rand.New(rand.NewChaCha8(seed))
}
