package block

import (
	"github.com/LorenzoCodeluppi/wavemap/chunk"
	"github.com/LorenzoCodeluppi/wavemap/indexing"
	"github.com/LorenzoCodeluppi/wavemap/wavelet"
)

// Threshold is an idempotent recompaction pass: it reconstructs every
// leaf's true value, saturates it to [minLogOdds, maxLogOdds], and
// re-encodes the subtree bottom-up. It is a no-op unless NeedsThresholding
// is set.
func (b *Block) Threshold() {
	if !b.needsThresholding {
		return
	}
	scale, _ := b.recursiveThreshold(b.rootChunk, b.rootScaleCoefficient)
	b.rootScaleCoefficient = scale
	b.needsThresholding = false
}

// recursiveThreshold implements spec.md's recursive threshold algorithm
// for a single chunk, mirroring wavemap's
// HashedChunkedWaveletOctreeBlock::recursiveThreshold: decompress the
// chunk top-down into a scratch array (including the boundary leaves that
// either clamp directly or recurse into a child chunk), then recompress
// bottom-up, recomputing each node's hasAtLeastOneChild flag as the OR of
// its children's "is nonzero" state.
func (b *Block) recursiveThreshold(c *chunk.Chunk, scaleCoefficient float64) (scale float64, isNonzeroChild bool) {
	h := c.Height()
	total := int(indexing.TreeSize(h + 1))
	scales := make([]float64, total)
	nonzero := make([]bool, total)
	scales[0] = scaleCoefficient

	// Decompress.
	for levelIdx := 0; levelIdx < h; levelIdx++ {
		firstIdx := int(indexing.TreeSize(levelIdx))
		lastIdx := int(indexing.TreeSize(levelIdx + 1))
		levelCount := int(indexing.LevelSize(levelIdx))
		for relIdx := 0; relIdx < levelCount; relIdx++ {
			srcIdx := firstIdx + relIdx
			children := wavelet.Backward(wavelet.Coefficients{
				Scale:   scales[srcIdx],
				Details: *c.NodeData(indexing.LinearIndex(srcIdx)),
			})
			destFirst := lastIdx + 8*relIdx
			for k := 0; k < wavelet.NumChildren; k++ {
				scales[destFirst+k] = children[k]
			}
		}
	}

	// Threshold the boundary leaves.
	firstLeafIdx := int(indexing.TreeSize(h))
	for slot := 0; slot < c.NumChildSlots(); slot++ {
		arrIdx := firstLeafIdx + slot
		if c.HasChild(indexing.LinearIndex(slot)) {
			child := c.GetChild(indexing.LinearIndex(slot))
			childScale, childNonzero := b.recursiveThreshold(child, scales[arrIdx])
			scales[arrIdx] = childScale
			nonzero[arrIdx] = childNonzero
		} else {
			scales[arrIdx] = clamp(scales[arrIdx], b.minLogOdds, b.maxLogOdds)
		}
	}

	// Recompress bottom-up.
	for levelIdx := h - 1; 0 <= levelIdx; levelIdx-- {
		firstIdx := int(indexing.TreeSize(levelIdx))
		lastIdx := int(indexing.TreeSize(levelIdx + 1))
		levelCount := int(indexing.LevelSize(levelIdx))
		for relIdx := levelCount - 1; 0 <= relIdx; relIdx-- {
			firstSrcIdx := lastIdx + 8*relIdx
			var subset wavelet.ChildValues
			hasNonzeroChild := false
			for k := 0; k < wavelet.NumChildren; k++ {
				subset[k] = scales[firstSrcIdx+k]
				hasNonzeroChild = hasNonzeroChild || nonzero[firstSrcIdx+k]
			}
			dstIdx := firstIdx + relIdx
			coeffs := wavelet.Forward(subset)
			scales[dstIdx] = coeffs.Scale
			*c.NodeData(indexing.LinearIndex(dstIdx)) = coeffs.Details
			c.SetHasAtLeastOneChild(indexing.LinearIndex(dstIdx), hasNonzeroChild)
			nonzero[dstIdx] = hasNonzeroChild || coeffs.Details.IsNonzero(nonzeroCoefficientThreshold)
		}
	}

	return scales[0], nonzero[0]
}
