package indexing

import (
	"testing"

	"go.viam.com/test"
)

func TestEncodeDecodeMortonRoundTrip(t *testing.T) {
	positions := []Index3D{
		{0, 0, 0},
		{1, 2, 3},
		{-1, -2, -3},
		{1023, -1023, 511},
		{-500000, 12345, -1},
	}
	for _, p := range positions {
		m := EncodeMorton(p)
		got := DecodeMorton(m)
		test.That(t, got, test.ShouldResemble, p)
	}
}

func TestTreeSizeAndLevelSize(t *testing.T) {
	test.That(t, TreeSize(0), test.ShouldEqual, int64(0))
	test.That(t, TreeSize(1), test.ShouldEqual, int64(1))
	test.That(t, TreeSize(2), test.ShouldEqual, int64(9))
	test.That(t, TreeSize(3), test.ShouldEqual, int64(73))
	test.That(t, TreeSize(4), test.ShouldEqual, int64(585))

	test.That(t, LevelSize(0), test.ShouldEqual, int64(1))
	test.That(t, LevelSize(1), test.ShouldEqual, int64(8))
	test.That(t, LevelSize(2), test.ShouldEqual, int64(64))
	test.That(t, LevelSize(3), test.ShouldEqual, int64(512))
}

func TestComputeRelativeChildIndexMatchesChildIndex(t *testing.T) {
	root := OctreeIndex{Height: 3, Position: Index3D{0, 0, 0}}
	for c := RelativeChild(0); c < NumChildren; c++ {
		child := root.ComputeChildIndex(c)
		morton := NodeIndexToMorton(child)
		got := ComputeRelativeChildIndex(morton, root.Height)
		test.That(t, got, test.ShouldEqual, c)
	}
}

func TestComputeTreeTraversalDistanceCoversChunk(t *testing.T) {
	const chunkHeight = 3
	const chunkTopHeight = 9
	seen := map[LinearIndex]bool{}
	var walk func(idx OctreeIndex)
	walk = func(idx OctreeIndex) {
		morton := NodeIndexToMorton(idx)
		li := ComputeTreeTraversalDistance(morton, chunkTopHeight, idx.Height)
		seen[li] = true
		if chunkTopHeight-chunkHeight < idx.Height {
			for _, child := range idx.FirstChildIndices() {
				walk(child)
			}
		}
	}
	walk(OctreeIndex{Height: chunkTopHeight, Position: Index3D{0, 0, 0}})
	test.That(t, len(seen), test.ShouldEqual, int(TreeSize(chunkHeight+1)))
	for li := LinearIndex(0); li < LinearIndex(TreeSize(chunkHeight+1)); li++ {
		test.That(t, seen[li], test.ShouldBeTrue)
	}
}
