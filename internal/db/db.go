// Package db is the single-writer façade over one memtable.
package db

import (
	"cobble/internal/memtable"
	"cobble/internal/skiplist"
	"cobble/internal/slice"
)

// DB owns one memtable for the lifetime of the process. The execution
// stage of the request pipeline is the only writer; that discipline, not a
// lock in here, is what serializes mutations. Reads are safe from any
// goroutine at any time.
type DB struct {
	mem *memtable.MemTable
}

// New returns a DB backed by a memtable with the given arena size. An
// arenaSize of zero selects the default.
func New(arenaSize uint) *DB {
	return &DB{
		mem: memtable.New(arenaSize),
	}
}

// Get returns the last value written for key, or ok=false when the key has
// never been written. The returned value is an owned copy.
func (d *DB) Get(key slice.Slice) (slice.Slice, bool) {
	return d.mem.Find(key)
}

// Put records value as the live value for key. Only the executor may call
// Put.
func (d *DB) Put(key, value slice.Slice) error {
	return d.mem.Insert(key, value)
}

// Cursor exposes ordered iteration over the live records. Range iteration
// is not on the wire; this is for in-process consumers and tests.
func (d *DB) Cursor() *skiplist.Cursor {
	return d.mem.Cursor()
}

// Close releases the memtable's arena.
func (d *DB) Close() error {
	return d.mem.Close()
}
