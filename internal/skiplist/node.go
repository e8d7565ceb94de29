package skiplist

import (
	"cobble/internal/arena"
	"cobble/internal/base"
)

// MaxNodeSize returns the worst-case arena footprint of a node holding a
// key and value of the given sizes.
func MaxNodeSize(keySize, valSize uint) uint {
	const maxPadding = nodeAlignment - 1
	return maxNodeSize + keySize + valSize + maxPadding
}

// links is one tower slot: the arena offset of the next node on that
// level, or zero at the end of the level's chain. An offset is one word,
// so a single atomic store or CAS publishes a link.
type links struct {
	nextOffset atomicOffset
}

type node struct {
	// Immutable after the node is linked in, so readers access these
	// without synchronization.
	keyOffset uint
	keySize   uint
	valueSize uint
	version   uint32

	// Most nodes do not use the full height of the tower, since each
	// level's population thins out as the list grows. The unused tail of
	// the tower is never accessed, so when a node is allocated its memory
	// footprint is deliberately truncated to exclude the unneeded levels.
	tower [maxLevel]links
}

func newNode(a *arena.Arena, height uint, rec base.Record) (*node, error) {
	if height < 1 || height > maxLevel {
		panic("height cannot be less than one or greater than the max level")
	}

	keySize := uint(rec.Key.UserKey.Len())
	valueSize := uint(rec.Value.Len())

	nd, err := newRawNode(a, height, keySize, valueSize)
	if err != nil {
		return nil, err
	}

	nd.version = uint32(rec.Key.Version)
	copy(nd.getKey(a), rec.Key.UserKey.Data())
	copy(nd.getValue(a), rec.Value.Data())

	return nd, nil
}

func newRawNode(a *arena.Arena, height, keySize, valueSize uint) (*node, error) {
	// Compute the amount of the tower that will never be used, since the
	// height is less than maxLevel. The node struct cast below still
	// spans the full tower; the arena's reserve tail keeps that extent in
	// bounds.
	unusedSize := (maxLevel - height) * linksSize
	nodeSize := maxNodeSize - unusedSize

	nodeOffset, err := a.Allocate(nodeSize+keySize+valueSize, unusedSize, nodeAlignment)
	if err != nil {
		return nil, err
	}

	nd := (*node)(a.Pointer(nodeOffset))
	nd.keyOffset = nodeOffset + nodeSize
	nd.keySize = keySize
	nd.valueSize = valueSize

	return nd, nil
}

func (n *node) getKey(a *arena.Arena) []byte {
	return a.Bytes(n.keyOffset, n.keySize)
}

func (n *node) getValue(a *arena.Arena) []byte {
	return a.Bytes(n.keyOffset+n.keySize, n.valueSize)
}

func (n *node) nextOffset(h int) uint {
	return uint(n.tower[h].nextOffset.Load())
}

func (n *node) setNextOffset(h int, val uint) {
	n.tower[h].nextOffset.Store(uintptr(val))
}

func (n *node) casNextOffset(h int, old, val uint) bool {
	return n.tower[h].nextOffset.CompareAndSwap(uintptr(old), uintptr(val))
}
