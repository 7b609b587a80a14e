// Package shuffle provides play-order shuffling for track id lists and
// a stateful shuffle session that cycles through every track before
// repeating.
package shuffle

import (
	"math/rand"
	"time"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // Play-order selection doesn't require crypto-secure randomness

// FisherYates returns a uniform random permutation of ids. The input
// slice is left untouched.
func FisherYates(ids []string) []string {
	out := append([]string(nil), ids...)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// TwoInterlaced splits ids at the midpoint, shuffles each half
// independently and concatenates the halves. This is intentionally not
// a uniform permutation: tracks never cross the midpoint, which keeps
// early tracks early and bounds how far any track can drift.
func TwoInterlaced(ids []string) []string {
	mid := len(ids) / 2
	first := FisherYates(ids[:mid])
	second := FisherYates(ids[mid:])
	return append(first, second...)
}
