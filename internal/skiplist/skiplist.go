package skiplist

import (
	"sync/atomic"
	"unsafe"

	"cobble/internal/arena"
	"cobble/internal/base"
	"cobble/internal/fastrand"
	"cobble/internal/slice"
)

// atomicOffset holds an arena offset. atomic.Uintptr is word-sized on
// every target, so offsets need no per-architecture plumbing.
type atomicOffset = atomic.Uintptr

const (
	maxNodeSize   = uint(unsafe.Sizeof(node{}))
	linksSize     = uint(unsafe.Sizeof(links{}))
	maxLevel      = uint(256)
	nodeAlignment = uint(unsafe.Sizeof(uintptr(0)))
)

// MaxLevel is the compile-time upper bound on a node's tower height.
const MaxLevel = maxLevel

// TowerOverflow is the arena reserve needed so that a node whose tower
// was truncated near the end of the arena can still be addressed as a
// full node struct without leaving the backing buffer.
const TowerOverflow = (maxLevel - 1) * linksSize

var ErrArenaFull = arena.ErrArenaFull

// Skiplist is a concurrent, forward-only skiplist of records. Nodes, keys,
// and values are allocated from an arena and are immutable once linked in;
// there is no deletion and no unlinking. An update for an existing key is
// expressed as a fresh record: inserts land ahead of records with an equal
// key, so a seek always reaches the newest write first.
//
// Links are arena offsets held in per-slot atomics. An insert publishes a
// node bottom-up by CAS on the predecessor's slot, after the node's own
// forward link for that level has been stored; a reader that wins the race
// to observe the predecessor link therefore always sees a fully populated
// level.
type Skiplist struct {
	arena  *arena.Arena
	head   *node
	height atomic.Uint32 // Current height. 1 <= height <= maxLevel. CAS.
}

type splice struct {
	prev *node
	next *node
}

func (s *splice) init(prev, next *node) {
	s.prev = prev
	s.next = next
}

// New constructs and initializes a new, empty skiplist. All nodes, keys,
// and values in the skiplist will be allocated from the given arena, which
// must have been created with a reserve of at least TowerOverflow bytes.
func New(a *arena.Arena) *Skiplist {
	head, err := newRawNode(a, maxLevel, 0, 0)
	if err != nil {
		panic("arena is not large enough to hold the head node")
	}
	// The head is a sentinel carrying the zero record; a zero key offset
	// reads back as the empty key.
	head.keyOffset = 0

	s := &Skiplist{
		arena: a,
		head:  head,
	}
	s.height.Store(1)
	return s
}

// Arena returns the arena backing this skiplist.
func (s *Skiplist) Arena() *arena.Arena {
	return s.arena
}

// Height returns the height of the highest tower of any node that has ever
// been linked into this skiplist.
func (s *Skiplist) Height() uint {
	return uint(s.height.Load())
}

// Size returns the number of bytes allocated from the arena.
func (s *Skiplist) Size() uint {
	return s.arena.Size()
}

// Add inserts a record. Records with equal keys are permitted; the new
// record is linked ahead of its equals. Returns ErrArenaFull when the
// arena cannot hold the new node.
func (s *Skiplist) Add(rec base.Record) error {
	var spl [maxLevel]splice
	s.findSplice(rec.Key, &spl)

	nd, height, err := s.newNode(rec)
	if err != nil {
		return err
	}
	ndOffset := s.arena.Offset(unsafe.Pointer(nd))

	// Link from the base level up. Once the node is reachable on level 0
	// it is live; higher levels only add shortcuts to it.
	for i := 0; i < int(height); i++ {
		prev := spl[i].prev
		next := spl[i].next

		for {
			nextOffset := uint(0)
			if next != nil {
				nextOffset = s.arena.Offset(unsafe.Pointer(next))
			}

			// Store the node's own forward link before publishing the
			// node on this level.
			nd.setNextOffset(i, nextOffset)

			if prev.casNextOffset(i, nextOffset, ndOffset) {
				break
			}

			// CAS failed: another insert changed this level between the
			// splice computation and now. Recompute the splice for this
			// level, continuing from prev, and retry.
			prev, next = s.findSpliceForLevel(rec.Key, i, prev)
		}
	}

	return nil
}

func (s *Skiplist) newNode(rec base.Record) (nd *node, height uint, err error) {
	height = s.randomHeight()
	nd, err = newNode(s.arena, height, rec)
	if err != nil {
		return
	}

	// Try to increase s.height via CAS.
	listHeight := s.Height()
	for height > listHeight {
		if s.height.CompareAndSwap(uint32(listHeight), uint32(height)) {
			// Successfully increased the list height.
			break
		}
		listHeight = s.Height()
	}

	return
}

// randomHeight draws a tower height uniformly from [1, maxLevel]. Each
// level still thins out relative to level 0 because only nodes at least
// that tall participate in it.
func (s *Skiplist) randomHeight() uint {
	return uint(fastrand.Uint32N(uint32(maxLevel))) + 1
}

// findSplice computes, for every level, the last node whose key is
// strictly less than key (prev) and the first node whose key is greater
// than or equal to key (next, nil at end of level).
func (s *Skiplist) findSplice(key base.Key, spl *[maxLevel]splice) {
	listHeight := int(s.Height())

	// Levels the list has not grown into yet hang off the head.
	for level := int(maxLevel) - 1; level >= listHeight; level-- {
		spl[level].init(s.head, nil)
	}

	prev := s.head
	for level := listHeight - 1; level >= 0; level-- {
		var next *node
		prev, next = s.findSpliceForLevel(key, level, prev)
		spl[level].init(prev, next)
	}
}

// findSpliceForLevel walks a single level rightward from start until it
// finds the first node whose key is >= key. The walk loads one link at a
// time; it never holds more than the current slot's value, so it cannot
// deadlock against a concurrent insert on the same level.
func (s *Skiplist) findSpliceForLevel(key base.Key, level int, start *node) (prev, next *node) {
	prev = start

	for {
		next = s.getNext(prev, level)
		if next == nil {
			// End of this level.
			break
		}

		if key.Compare(s.nodeKey(next)) <= 0 {
			// prev.key < key <= next.key, so the splice brackets key.
			// Equality stops here too: a new record must land ahead of
			// records with the same key.
			break
		}

		// Keep moving right on this level.
		prev = next
	}

	return prev, next
}

func (s *Skiplist) getNext(nd *node, h int) *node {
	offset := nd.nextOffset(h)
	return (*node)(s.arena.Pointer(offset))
}

func (s *Skiplist) nodeKey(nd *node) base.Key {
	return base.Key{
		UserKey: slice.Wrap(nd.getKey(s.arena)),
		Version: base.Version(nd.version),
	}
}

// record returns a view of the node's record. The key and value alias
// arena memory; callers that retain them beyond the arena's lifetime must
// clone.
func (s *Skiplist) record(nd *node) base.Record {
	return base.Record{
		Key:   s.nodeKey(nd),
		Value: slice.Wrap(nd.getValue(s.arena)),
	}
}
