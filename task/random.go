package task

import "math/rand"

// Random abstracts the pseudo-random source TaskRunner uses to decide
// success or failure.
type Random interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
}

// SystemRandom is the real Random, backed by math/rand's global
// source.
type SystemRandom struct{}

// Float64 returns rand.Float64().
func (SystemRandom) Float64() float64 { return rand.Float64() }
