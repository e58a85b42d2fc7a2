package engine

import "math/rand"

// RandomSource is the injectable randomness contract of the resolver. It is
// deliberately narrow so tests can script exact draw sequences while
// production injects a freshly seeded source per session.
type RandomSource interface {
	Float64() float64
}

// NewSeeded returns a reproducible source for the given seed.
func NewSeeded(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}
