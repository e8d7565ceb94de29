// Package memtable adapts the record skiplist to the key/value surface the
// database exposes. It owns the arena backing the skiplist.
package memtable

import (
	"cobble/internal/arena"
	"cobble/internal/base"
	"cobble/internal/skiplist"
	"cobble/internal/slice"
)

// DefaultArenaSize is the backing arena reserved for a memtable when the
// caller does not size it explicitly.
const DefaultArenaSize = 64 << 20

var ErrArenaFull = skiplist.ErrArenaFull

// MemTable stores key-value pairs in sorted order in a concurrent
// skiplist. All writes must come from a single goroutine; reads may come
// from any number of goroutines concurrently with the writer.
type MemTable struct {
	arena *arena.Arena
	list  *skiplist.Skiplist
}

// New returns a MemTable backed by a fresh arena of the given size.
func New(arenaSize uint) *MemTable {
	if arenaSize == 0 {
		arenaSize = DefaultArenaSize
	}
	a := arena.New(arenaSize, skiplist.TowerOverflow)
	return &MemTable{
		arena: a,
		list:  skiplist.New(a),
	}
}

// Insert adds a record for key at version zero. An existing record for the
// same key is not touched: the new record shadows it because the skiplist
// links equal keys newest-first.
func (m *MemTable) Insert(key, value slice.Slice) error {
	return m.list.Add(base.MakeRecord(key, value, base.VersionZero))
}

// Find returns the live value for key. The seek probe carries the user key
// at version zero; with versions ordering descending under an equal user
// key, the first record the probe lands on is the newest one visible at
// that version. A landing whose user key differs from the probe's is a
// miss.
func (m *MemTable) Find(key slice.Slice) (slice.Slice, bool) {
	cur := m.list.Cursor()
	rec, ok := cur.SeekGE(base.MakeSearchKey(key))
	if !ok {
		return slice.Slice{}, false
	}
	if !slice.Equal(rec.Key.UserKey, key) {
		return slice.Slice{}, false
	}

	// The record's value aliases arena memory; hand the caller an owned
	// copy.
	return rec.Value.Clone(), true
}

// Cursor returns a forward cursor over every record in the table in key
// order.
func (m *MemTable) Cursor() *skiplist.Cursor {
	return m.list.Cursor()
}

// Size returns the number of arena bytes consumed so far.
func (m *MemTable) Size() uint {
	return m.list.Size()
}

// Close releases the arena. The table must not be used afterwards.
func (m *MemTable) Close() error {
	return m.arena.Close()
}
