package cobble

import "cobble/internal/slice"

type ReadWriter interface {
	Reader
	Writer
}

type Reader interface {
	// Get gets the last value written for the given key. The returned
	// value is an owned copy; ok is false if the key has never been
	// written.
	Get(key slice.Slice) (value slice.Slice, ok bool)
}

type Writer interface {
	// Put sets the value for the given key. An existing value is
	// shadowed, not modified; a later Get observes the new value.
	Put(key, value slice.Slice) error
}
