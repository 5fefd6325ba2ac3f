package abi

// Align rounds cursor up to the next multiple of alignment. alignment must
// be a positive power of two for the result to be meaningful; callers
// (struct/array layout) always pass a type's own Align(), which is always a
// power of two since it is derived from primitive byte widths.
func Align(cursor, alignment uint64) uint64 {
	if alignment <= 1 {
		return cursor
	}
	return (cursor + alignment - 1) / alignment * alignment
}

// DiscriminantWidth returns the narrowest unsigned primitive wide enough to
// hold any value in [0, n).
func DiscriminantWidth(n int) uint64 {
	switch {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}
