package block

import (
	"github.com/LorenzoCodeluppi/wavemap/chunk"
	"github.com/LorenzoCodeluppi/wavemap/indexing"
)

// Prune recursively deletes child chunks that are both childless and have
// all detail magnitudes below the nonzero threshold. It calls Threshold
// first so saturation has already cleared residual noise. It is a no-op
// unless NeedsPruning is set, and idempotent: two consecutive calls leave
// the block bit-identical.
func (b *Block) Prune() {
	if !b.needsPruning {
		return
	}
	b.Threshold()
	b.recursivePrune(b.rootChunk)
	b.needsPruning = false
}

// recursivePrune returns whether c still has at least one surviving child
// after pruning its descendants.
func (b *Block) recursivePrune(c *chunk.Chunk) bool {
	hasAtLeastOneChild := false
	for slot := 0; slot < c.NumChildSlots(); slot++ {
		li := indexing.LinearIndex(slot)
		if !c.HasChild(li) {
			continue
		}
		child := c.GetChild(li)
		b.recursivePrune(child)
		if !child.HasChildrenArray() && !child.HasNonzeroData(nonzeroCoefficientThreshold) {
			c.EraseChild(li)
		} else {
			hasAtLeastOneChild = true
		}
	}
	if !hasAtLeastOneChild {
		c.DeleteChildrenArray()
	}
	return hasAtLeastOneChild
}
