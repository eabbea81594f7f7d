// Package seqarith implements wraparound-safe comparison of fixed-width
// sequence counters (RFC 1982 style serial number arithmetic).
//
// A value a is "greater than" b when the forward distance from b to a,
// taken modulo 2^n, is non-zero and strictly less than 2^(n-1). Values
// exactly half the modulus apart are incomparable: neither is greater, and
// neither is less. Equality is the only relation that holds between them in
// the OrEqual variants, so GreaterThanOrEqual and LessThanOrEqual are both
// false at half-modulus separation.
package seqarith

// Unsigned is the set of counter widths supported by this package.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32
}

// half returns 2^(n-1) for the width of T.
func half[T Unsigned]() T {
	return ^T(0)/2 + 1
}

// GreaterThan reports whether a is ahead of b.
func GreaterThan[T Unsigned](a, b T) bool {
	d := a - b
	return d != 0 && d < half[T]()
}

// LessThan reports whether a is behind b.
func LessThan[T Unsigned](a, b T) bool {
	return GreaterThan(b, a)
}

// GreaterThanOrEqual reports whether a equals b or is ahead of it.
func GreaterThanOrEqual[T Unsigned](a, b T) bool {
	return a == b || GreaterThan(a, b)
}

// LessThanOrEqual reports whether a equals b or is behind it.
func LessThanOrEqual[T Unsigned](a, b T) bool {
	return a == b || GreaterThan(b, a)
}

// Delta returns the shorter of the two circular distances between a and b.
func Delta[T Unsigned](a, b T) T {
	forward := a - b
	backward := b - a
	if forward < backward {
		return forward
	}
	return backward
}

// Next returns the successor of a, wrapping at the counter width.
func Next[T Unsigned](a T) T {
	return a + 1
}

// Prev returns the predecessor of a, wrapping at the counter width.
func Prev[T Unsigned](a T) T {
	return a - 1
}
