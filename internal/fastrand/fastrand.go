// Package fastrand provides a cheap random source for skiplist tower
// heights. math/rand/v2 routes through per-goroutine generators, so there
// is no lock to contend on the insert path.
package fastrand

import "math/rand/v2"

func Uint32() uint32 {
	return rand.Uint32()
}

// Uint32N returns a uniform value in [0, n).
func Uint32N(n uint32) uint32 {
	return rand.Uint32N(n)
}
