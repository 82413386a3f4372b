// Package chunk implements the fixed-height perfect-subtree building block
// that a hashed chunked wavelet octree block is packed from: a flat array of
// per-node detail coefficients, a parallel "has at least one non-constant
// descendant" bitset, and a lazily-allocated sparse array of child chunks.
package chunk

import (
	"math/bits"

	"github.com/LorenzoCodeluppi/wavemap/indexing"
	"github.com/LorenzoCodeluppi/wavemap/wavelet"
)

// Chunk is a fixed-height (Height) perfect octree subtree packed into
// contiguous arrays. NodeData holds the kChunkHeight-deep internal nodes'
// detail coefficients (TreeSize(Height) of them); Children, if allocated,
// holds LevelSize(Height) pointers to the child chunks rooted at the
// chunk's boundary level.
type Chunk struct {
	height int

	nodeData           []wavelet.Details
	hasAtLeastOneChild bitset
	children           []*Chunk
}

// New creates an empty chunk of the given height (the chunk's node count is
// TreeSize(height), its child-chunk capacity is LevelSize(height)).
func New(height int) *Chunk {
	return &Chunk{
		height:   height,
		nodeData: make([]wavelet.Details, indexing.TreeSize(height)),
	}
}

// Height returns the chunk's height (number of octree levels it packs).
func (c *Chunk) Height() int {
	return c.height
}

// NumNodes returns the number of internal nodes packed into this chunk.
func (c *Chunk) NumNodes() int {
	return len(c.nodeData)
}

// NumChildSlots returns the number of child-chunk slots this chunk has,
// i.e. 8^Height, whether or not the children array is currently allocated.
func (c *Chunk) NumChildSlots() int {
	return int(indexing.LevelSize(c.height))
}

// NodeData returns a pointer to the detail coefficients stored at the given
// linear index so callers can read or mutate them in place.
func (c *Chunk) NodeData(linear indexing.LinearIndex) *wavelet.Details {
	return &c.nodeData[linear]
}

// HasAtLeastOneChild reports whether the node at the given linear index is
// flagged as having at least one descendant leaf with a non-constant
// value.
func (c *Chunk) HasAtLeastOneChild(linear indexing.LinearIndex) bool {
	return c.hasAtLeastOneChild.get(int(linear))
}

// SetHasAtLeastOneChild sets or clears the flag at the given linear index.
func (c *Chunk) SetHasAtLeastOneChild(linear indexing.LinearIndex, v bool) {
	c.hasAtLeastOneChild.set(int(linear), v)
}

// HasChildrenArray reports whether the sparse child-chunk array has been
// allocated (it may be allocated yet contain only nil entries transiently
// during pruning).
func (c *Chunk) HasChildrenArray() bool {
	return c.children != nil
}

// HasChild reports whether a child chunk is present at the given slot.
func (c *Chunk) HasChild(slot indexing.LinearIndex) bool {
	return c.children != nil && c.children[slot] != nil
}

// GetChild returns the child chunk at the given slot, or nil if absent.
func (c *Chunk) GetChild(slot indexing.LinearIndex) *Chunk {
	if c.children == nil {
		return nil
	}
	return c.children[slot]
}

// GetOrAllocateChild returns the child chunk at the given slot, allocating
// both the sparse children array (if needed) and the child chunk itself
// (of the same height as c) on first access.
func (c *Chunk) GetOrAllocateChild(slot indexing.LinearIndex) *Chunk {
	if c.children == nil {
		c.children = make([]*Chunk, c.NumChildSlots())
	}
	if c.children[slot] == nil {
		c.children[slot] = New(c.height)
	}
	return c.children[slot]
}

// EraseChild removes the child chunk at the given slot, if any.
func (c *Chunk) EraseChild(slot indexing.LinearIndex) {
	if c.children == nil {
		return
	}
	c.children[slot] = nil
}

// DeleteChildrenArray deallocates the sparse children array entirely.
func (c *Chunk) DeleteChildrenArray() {
	c.children = nil
}

// HasNonzeroData reports whether any node in this chunk carries a detail
// coefficient whose magnitude exceeds threshold.
func (c *Chunk) HasNonzeroData(threshold float64) bool {
	for i := range c.nodeData {
		if c.nodeData[i].IsNonzero(threshold) {
			return true
		}
	}
	return false
}

// bitset is a minimal fixed-size bit vector, sized lazily to the number of
// nodes it is asked to address.
type bitset struct {
	words []uint64
}

func (b *bitset) ensure(bit int) {
	word := bit / 64
	if word >= len(b.words) {
		grown := make([]uint64, word+1)
		copy(grown, b.words)
		b.words = grown
	}
}

func (b *bitset) get(bit int) bool {
	word := bit / 64
	if word >= len(b.words) {
		return false
	}
	return b.words[word]&(uint64(1)<<uint(bit%64)) != 0
}

func (b *bitset) set(bit int, v bool) {
	b.ensure(bit)
	mask := uint64(1) << uint(bit%64)
	if v {
		b.words[bit/64] |= mask
	} else {
		b.words[bit/64] &^= mask
	}
}

// popcount is exposed for tests asserting on flag density.
func (b *bitset) popcount() int {
	total := 0
	for _, w := range b.words {
		total += bits.OnesCount64(w)
	}
	return total
}
