package skiplist

import (
	"cobble/internal/base"
)

// Cursor is a forward-only iterator over the skiplist. It starts at the
// head sentinel; the first Next (or a seek) moves it onto a live record.
// A cursor that has walked off the end is terminated: every further call
// reports no record.
//
// A cursor is not safe for concurrent use, but any number of cursors may
// traverse the list while inserts are in flight; records linked after the
// cursor's position become visible as it advances.
type Cursor struct {
	list *Skiplist
	nd   *node
}

// Cursor returns a new cursor positioned at the head sentinel.
func (s *Skiplist) Cursor() *Cursor {
	return &Cursor{
		list: s,
		nd:   s.head,
	}
}

// Valid reports whether the cursor is positioned on a live record.
func (c *Cursor) Valid() bool {
	return c.nd != nil && c.nd != c.list.head
}

// Record returns the record under the cursor. The returned key and value
// alias arena memory.
func (c *Cursor) Record() (base.Record, bool) {
	if !c.Valid() {
		return base.Record{}, false
	}
	return c.list.record(c.nd), true
}

// First moves the cursor to the first record in the list.
func (c *Cursor) First() (base.Record, bool) {
	c.nd = c.list.getNext(c.list.head, 0)
	return c.Record()
}

// Next advances the cursor along level 0 and returns the record it lands
// on. Walking off the end terminates the cursor.
func (c *Cursor) Next() (base.Record, bool) {
	if c.nd == nil {
		return base.Record{}, false
	}
	c.nd = c.list.getNext(c.nd, 0)
	return c.Record()
}

// SeekGE moves the cursor to the first record whose key is greater than or
// equal to key, or terminates it if no such record exists. Seeking a
// terminated cursor reports no record.
func (c *Cursor) SeekGE(key base.Key) (base.Record, bool) {
	if c.nd == nil {
		return base.Record{}, false
	}

	prev := c.list.head
	var next *node
	for level := int(c.list.Height()) - 1; level >= 0; level-- {
		prev, next = c.list.findSpliceForLevel(key, level, prev)
	}

	c.nd = next
	return c.Record()
}
