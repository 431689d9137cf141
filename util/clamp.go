package util

import "golang.org/x/exp/constraints"

// Clamp limits v to the closed interval [lo, hi].
func Clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SatSub subtracts b from a and stops at zero instead of wrapping.
func SatSub[T constraints.Unsigned](a, b T) T {
	if b >= a {
		return 0
	}
	return a - b
}
