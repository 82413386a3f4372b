package occmap

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/LorenzoCodeluppi/wavemap/config"
	"github.com/LorenzoCodeluppi/wavemap/indexing"
)

func testConfig() config.MapConfig {
	return config.MapConfig{MinCellWidth: 0.1, TreeHeight: 6, ChunkHeight: 3, MinLogOdds: -4, MaxLogOdds: 4}
}

func newTestMap(t *testing.T) *Map {
	t.Helper()
	m, err := New(testConfig(), nil)
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	bad := testConfig()
	bad.TreeHeight = -1
	_, err := New(bad, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGetBlockNilBeforeCreation(t *testing.T) {
	m := newTestMap(t)
	test.That(t, m.GetBlock(indexing.Index3D{X: 1, Y: 2, Z: 3}), test.ShouldBeNil)
	test.That(t, m.NumBlocks(), test.ShouldEqual, 0)
}

func TestGetOrCreateBlockIsIdempotent(t *testing.T) {
	m := newTestMap(t)
	blockIdx := indexing.Index3D{X: 1, Y: 2, Z: 3}
	first := m.GetOrCreateBlock(blockIdx)
	second := m.GetOrCreateBlock(blockIdx)
	test.That(t, first, test.ShouldEqual, second)
	test.That(t, m.NumBlocks(), test.ShouldEqual, 1)
}

func TestSetCellValueThenGetValueAtLeaf(t *testing.T) {
	m := newTestMap(t)
	idx := indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 100, Y: -50, Z: 7}}
	m.SetCellValue(idx, 1.5)
	m.Threshold()
	test.That(t, m.GetValueAt(idx), test.ShouldAlmostEqual, 1.5, 1e-5)
}

// A block spans 2^TreeHeight leaves per axis; X=70 at treeHeight=6 (64
// leaves/block) falls in block index 1, exercising toBlockLocal's
// leaf-height (H=0) conversion against a non-origin block.
func TestSetCellValueInNonOriginBlock(t *testing.T) {
	m := newTestMap(t)
	idx := indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 70, Y: 0, Z: 0}}
	blockIdx := m.BlockIndexFor(idx)
	test.That(t, blockIdx, test.ShouldNotResemble, indexing.Index3D{})

	m.SetCellValue(idx, 2.0)
	m.Threshold()
	test.That(t, m.GetValueAt(idx), test.ShouldAlmostEqual, 2.0, 1e-5)
}

// AddToCellValue on an internal node (height > 0) exercises toBlockLocal's
// general rescaling: the block origin must be expressed in that height's
// own node-grid units, not always in leaf units.
func TestAddToCellValueAtInternalHeight(t *testing.T) {
	m := newTestMap(t)
	idx := indexing.OctreeIndex{Height: 2, Position: indexing.Index3D{X: 3, Y: 1, Z: 0}}
	blockIdx := m.BlockIndexFor(idx)
	test.That(t, blockIdx, test.ShouldResemble, indexing.Index3D{})

	m.AddToCellValue(idx, 0.7)
	m.Threshold()

	leaf := indexing.OctreeIndex{Height: 0, Position: idx.Position.Shl(idx.Height)}
	test.That(t, m.GetValueAt(leaf), test.ShouldAlmostEqual, 0.7, 1e-5)
}

func TestForEachLeafVisitsAcrossBlocks(t *testing.T) {
	m := newTestMap(t)
	first := indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 0, Y: 0, Z: 0}}
	second := indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 200, Y: 0, Z: 0}}
	m.SetCellValue(first, 1.0)
	m.SetCellValue(second, -1.0)
	m.Threshold()

	seen := map[indexing.OctreeIndex]float64{}
	m.ForEachLeaf(0, func(index indexing.OctreeIndex, value float64) {
		seen[index] = value
	})
	test.That(t, seen[first], test.ShouldAlmostEqual, 1.0, 1e-5)
	test.That(t, seen[second], test.ShouldAlmostEqual, -1.0, 1e-5)
}

func TestPruneErasesEmptyBlocks(t *testing.T) {
	m := newTestMap(t)
	idx := indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 1, Y: 1, Z: 1}}
	m.SetCellValue(idx, 3.0)
	m.SetCellValue(idx, 0.0)

	err := m.Prune()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.NumBlocks(), test.ShouldEqual, 0)
}

func TestClearRemovesAllBlocks(t *testing.T) {
	m := newTestMap(t)
	m.SetCellValue(indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 5, Y: 5, Z: 5}}, 1.0)
	m.Clear()
	test.That(t, m.NumBlocks(), test.ShouldEqual, 0)
}

func TestLastUpdatedStampAdvancesOnWrite(t *testing.T) {
	m := newTestMap(t)
	blockIdx := indexing.Index3D{}
	_, ok := m.LastUpdatedStamp(blockIdx)
	test.That(t, ok, test.ShouldBeFalse)

	m.SetCellValue(indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 1, Y: 1, Z: 1}}, 1.0)
	stamp, ok := m.LastUpdatedStamp(blockIdx)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, stamp, test.ShouldBeGreaterThan, uint64(0))
}

func TestBlockRootIndexMatchesForEachLeafConvention(t *testing.T) {
	m := newTestMap(t)
	blockIdx := indexing.Index3D{X: 2, Y: -1, Z: 0}
	root := m.BlockRootIndex(blockIdx)
	test.That(t, root.Height, test.ShouldEqual, m.TreeHeight())
	test.That(t, root.Position, test.ShouldResemble, blockIdx)
}

func TestCandidateBlockIndicesCoversOrigin(t *testing.T) {
	m := newTestMap(t)
	candidates := m.CandidateBlockIndices(r3.Vector{}, 1.0)
	var foundOrigin bool
	for _, c := range candidates {
		if c == (indexing.Index3D{}) {
			foundOrigin = true
		}
	}
	test.That(t, foundOrigin, test.ShouldBeTrue)
}

func TestAcceleratorMatchesGetValueAt(t *testing.T) {
	m := newTestMap(t)
	idx := indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 4, Y: 4, Z: 4}}
	m.SetCellValue(idx, 1.25)
	m.Threshold()

	acc := NewAccelerator(m)
	test.That(t, acc.GetValueAt(idx), test.ShouldAlmostEqual, m.GetValueAt(idx), 1e-9)
	// Re-query to exercise the cache-hit path for the same block.
	test.That(t, acc.GetValueAt(idx), test.ShouldAlmostEqual, 1.25, 1e-5)
}

func TestAcceleratorReturnsZeroForUnallocatedBlock(t *testing.T) {
	m := newTestMap(t)
	acc := NewAccelerator(m)
	idx := indexing.OctreeIndex{Height: 0, Position: indexing.Index3D{X: 999, Y: 0, Z: 0}}
	test.That(t, acc.GetValueAt(idx), test.ShouldEqual, 0.0)
}
