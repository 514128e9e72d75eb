package main

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand/v2"
)

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// round2 rounds to two decimals for wire output
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// newRand returns a PCG source seeded from crypto/rand
func newRand() *mrand.Rand {
	var b [16]byte
	rand.Read(b[:]) // cannot fail since Go 1.24
	return mrand.New(mrand.NewPCG(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])))
}

// findSpot samples up to tries positions and returns the first one ok accepts.
// The caller decides what to do when nothing fits.
func findSpot(tries int, sample func() (float64, float64), ok func(x, y float64) bool) (float64, float64, bool) {
	for i := 0; i < tries; i++ {
		x, y := sample()
		if ok(x, y) {
			return x, y, true
		}
	}
	return 0, 0, false
}
