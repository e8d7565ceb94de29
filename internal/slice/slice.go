// Package slice implements the owned byte buffer the store is keyed and
// valued on.
//
// Ordering is deliberately not the standard lexicographic order: a shorter
// slice sorts strictly before any longer slice regardless of byte
// contents, so "b" < "aa". Equal-length slices compare byte-wise. The
// skiplist, memtable and every test vector observe this order, so it is
// the contract of the package, not an implementation detail.
package slice

import "bytes"

// Slice is an immutable byte buffer of fixed length. The zero value is the
// empty slice, which sorts before everything else.
type Slice struct {
	data []byte
}

// From takes ownership of b. The caller must not modify b afterwards.
func From(b []byte) Slice {
	return Slice{data: b}
}

// FromString copies s into a new slice.
func FromString(s string) Slice {
	return Slice{data: []byte(s)}
}

// Wrap aliases b without copying. The returned slice is only valid while
// b is; it is used to view keys and values that live in arena memory.
func Wrap(b []byte) Slice {
	return Slice{data: b}
}

// Empty returns the zero-length slice.
func Empty() Slice {
	return Slice{}
}

func (s Slice) Len() int {
	return len(s.data)
}

func (s Slice) IsEmpty() bool {
	return len(s.data) == 0
}

// Data returns the underlying bytes. Callers must treat the result as
// read-only.
func (s Slice) Data() []byte {
	return s.data
}

// Clone returns an independently owned copy of s.
func (s Slice) Clone() Slice {
	if len(s.data) == 0 {
		return Slice{}
	}
	buf := make([]byte, len(s.data))
	copy(buf, s.data)
	return Slice{data: buf}
}

// Compare orders a and b length-first: a shorter slice is strictly less
// than a longer one no matter what either contains. Only equal-length
// slices fall through to a byte-wise comparison.
func Compare(a, b Slice) int {
	switch {
	case len(a.data) < len(b.data):
		return -1
	case len(a.data) > len(b.data):
		return 1
	default:
		return bytes.Compare(a.data, b.data)
	}
}

func Equal(a, b Slice) bool {
	return Compare(a, b) == 0
}
