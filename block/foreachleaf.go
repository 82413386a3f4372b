package block

import (
	"github.com/LorenzoCodeluppi/wavemap/chunk"
	"github.com/LorenzoCodeluppi/wavemap/indexing"
	"github.com/LorenzoCodeluppi/wavemap/wavelet"
)

// LeafVisitor is called once per emitted leaf (or terminating internal
// node, read as its subtree's Haar average) with its world-relative
// octree index and saturated scale coefficient.
type LeafVisitor func(index indexing.OctreeIndex, value float64)

type leafStackElem struct {
	index  indexing.OctreeIndex
	c      *chunk.Chunk
	linear indexing.LinearIndex
	scale  float64
}

// ForEachLeaf performs a depth-first traversal of the block, emitting
// every leaf at or above terminationHeight exactly once (ordering is
// unspecified). The traversal descends into a node only where its subtree
// carries detail: inside a chunk, a node whose hasAtLeastOneChild flag is
// set or whose own details are nonzero; at a chunk boundary, a node backed
// by an allocated child chunk. Any other node is emitted as one entry
// holding its subtree's Haar average. blockIndex anchors the traversal in
// world space so the emitted OctreeIndex values are absolute.
func (b *Block) ForEachLeaf(blockIndex indexing.BlockIndex, terminationHeight int, visit LeafVisitor) {
	if b.Empty() {
		return
	}

	stack := []leafStackElem{{
		index:  indexing.OctreeIndex{Height: b.treeHeight, Position: blockIndex},
		c:      b.rootChunk,
		linear: 0,
		scale:  b.rootScaleCoefficient,
	}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		details := *top.c.NodeData(top.linear)
		childScales := wavelet.Backward(wavelet.Coefficients{Scale: top.scale, Details: details})

		depthInChunk := (b.treeHeight - top.index.Height) % b.chunkHeight
		levelStart := indexing.LinearIndex(indexing.TreeSize(depthInChunk))
		posInLevel := top.linear - levelStart

		for childIdx := 0; childIdx < wavelet.NumChildren; childIdx++ {
			childIndex := top.index.ComputeChildIndex(indexing.RelativeChild(childIdx))
			childScale := childScales[childIdx]

			if depthInChunk+1 < top.c.Height() {
				childLevelStart := indexing.LinearIndex(indexing.TreeSize(depthInChunk + 1))
				childLinear := childLevelStart + posInLevel*8 + indexing.LinearIndex(childIdx)
				descend := top.c.HasAtLeastOneChild(childLinear) ||
					top.c.NodeData(childLinear).IsNonzero(nonzeroCoefficientThreshold)
				if descend && terminationHeight < childIndex.Height {
					stack = append(stack, leafStackElem{index: childIndex, c: top.c, linear: childLinear, scale: childScale})
					continue
				}
				visit(childIndex, clamp(childScale, b.minLogOdds, b.maxLogOdds))
				continue
			}

			boundarySlot := posInLevel*8 + indexing.LinearIndex(childIdx)
			childChunk := top.c.GetChild(boundarySlot)
			if childChunk != nil && terminationHeight < childIndex.Height {
				stack = append(stack, leafStackElem{index: childIndex, c: childChunk, linear: 0, scale: childScale})
				continue
			}
			visit(childIndex, clamp(childScale, b.minLogOdds, b.maxLogOdds))
		}
	}
}
