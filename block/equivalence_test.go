package block

import (
	"testing"

	"go.viam.com/test"

	"github.com/LorenzoCodeluppi/wavemap/indexing"
)

// The original's HashedWaveletOctreeBlock has no chunking at all: every
// node is its own heap-allocated tree node. Chunking here is purely a
// storage-layout optimization (a chunk's subtree is a flat array instead
// of individually allocated nodes); the degenerate chunkHeight == treeHeight
// configuration collapses Block to exactly that shape, one monolithic
// chunk with no further splits. These tests drive a chunked block
// (chunkHeight < treeHeight) and its degenerate unchunked twin
// (chunkHeight == treeHeight) through the same operations and assert they
// stay equivalent (values agree to within 1e-9), cross-checking against
// hashed_wavelet_octree_block.cc's setCellValue/addToCellValue/threshold/
// prune/forEachLeaf without requiring a second, literal unchunked Go
// implementation.
const (
	equivTreeHeight = 4
	equivMinLogOdds = -4.0
	equivMaxLogOdds = 4.0
)

func newChunkedPair() (chunked, unchunked *Block) {
	chunked = New(equivTreeHeight, 2, equivMinLogOdds, equivMaxLogOdds)
	unchunked = New(equivTreeHeight, equivTreeHeight, equivMinLogOdds, equivMaxLogOdds)
	return
}

func sampleLeaves() []indexing.Index3D {
	return []indexing.Index3D{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 5, Y: 3, Z: 2},
		{X: 15, Y: 15, Z: 15},
		{X: 8, Y: 0, Z: 7},
	}
}

func TestChunkedAndUnchunkedAgreeAfterSetCellValue(t *testing.T) {
	chunked, unchunked := newChunkedPair()
	for i, p := range sampleLeaves() {
		leaf := indexing.OctreeIndex{Height: 0, Position: p}
		value := float64(i) - 2.5
		chunked.SetCellValue(leaf, value)
		unchunked.SetCellValue(leaf, value)
	}
	chunked.Threshold()
	unchunked.Threshold()

	for _, p := range sampleLeaves() {
		leaf := indexing.OctreeIndex{Height: 0, Position: p}
		test.That(t, chunked.GetSaturatedCellValue(leaf), test.ShouldAlmostEqual,
			unchunked.GetSaturatedCellValue(leaf), 1e-9)
	}
}

func TestChunkedAndUnchunkedAgreeAfterAddToCellValue(t *testing.T) {
	chunked, unchunked := newChunkedPair()
	leaves := sampleLeaves()
	updates := []float64{0.4, -0.1, 0.2, 0.05, -0.3, 0.75}
	for round := 0; round < 3; round++ {
		for i, p := range leaves {
			leaf := indexing.OctreeIndex{Height: 0, Position: p}
			chunked.AddToCellValue(leaf, updates[i])
			unchunked.AddToCellValue(leaf, updates[i])
		}
	}
	chunked.Threshold()
	unchunked.Threshold()

	for _, p := range leaves {
		leaf := indexing.OctreeIndex{Height: 0, Position: p}
		test.That(t, chunked.GetSaturatedCellValue(leaf), test.ShouldAlmostEqual,
			unchunked.GetSaturatedCellValue(leaf), 1e-9)
	}
}

func TestChunkedAndUnchunkedAgreeAfterPrune(t *testing.T) {
	chunked, unchunked := newChunkedPair()
	for _, p := range sampleLeaves() {
		leaf := indexing.OctreeIndex{Height: 0, Position: p}
		chunked.SetCellValue(leaf, 1.0)
		unchunked.SetCellValue(leaf, 1.0)
		chunked.SetCellValue(leaf, 0.0)
		unchunked.SetCellValue(leaf, 0.0)
	}
	chunked.Prune()
	unchunked.Prune()
	test.That(t, chunked.Empty(), test.ShouldEqual, unchunked.Empty())
}

func TestChunkedAndUnchunkedAgreeOnForEachLeaf(t *testing.T) {
	chunked, unchunked := newChunkedPair()
	for i, p := range sampleLeaves() {
		leaf := indexing.OctreeIndex{Height: 0, Position: p}
		chunked.SetCellValue(leaf, float64(i)*0.3)
		unchunked.SetCellValue(leaf, float64(i)*0.3)
	}
	chunked.Threshold()
	unchunked.Threshold()

	blockIdx := indexing.Index3D{}
	chunkedValues := map[indexing.OctreeIndex]float64{}
	unchunkedValues := map[indexing.OctreeIndex]float64{}
	chunked.ForEachLeaf(blockIdx, 0, func(index indexing.OctreeIndex, value float64) {
		chunkedValues[index] = value
	})
	unchunked.ForEachLeaf(blockIdx, 0, func(index indexing.OctreeIndex, value float64) {
		unchunkedValues[index] = value
	})

	test.That(t, len(chunkedValues), test.ShouldEqual, len(unchunkedValues))
	for index, value := range chunkedValues {
		other, ok := unchunkedValues[index]
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, value, test.ShouldAlmostEqual, other, 1e-9)
	}
}
