package chunk

import (
	"testing"

	"go.viam.com/test"

	"github.com/LorenzoCodeluppi/wavemap/indexing"
)

func TestNewChunkIsEmpty(t *testing.T) {
	c := New(3)
	test.That(t, c.NumNodes(), test.ShouldEqual, 73)
	test.That(t, c.NumChildSlots(), test.ShouldEqual, 512)
	test.That(t, c.HasChildrenArray(), test.ShouldBeFalse)
	test.That(t, c.HasChild(0), test.ShouldBeFalse)
	test.That(t, c.HasNonzeroData(1e-3), test.ShouldBeFalse)
}

func TestGetOrAllocateChild(t *testing.T) {
	c := New(3)
	child := c.GetOrAllocateChild(17)
	test.That(t, c.HasChildrenArray(), test.ShouldBeTrue)
	test.That(t, c.HasChild(17), test.ShouldBeTrue)
	test.That(t, c.GetChild(17), test.ShouldEqual, child)
	test.That(t, child.Height(), test.ShouldEqual, 3)

	c.EraseChild(17)
	test.That(t, c.HasChild(17), test.ShouldBeFalse)

	c.DeleteChildrenArray()
	test.That(t, c.HasChildrenArray(), test.ShouldBeFalse)
}

func TestHasAtLeastOneChildFlag(t *testing.T) {
	c := New(3)
	test.That(t, c.HasAtLeastOneChild(42), test.ShouldBeFalse)
	c.SetHasAtLeastOneChild(42, true)
	test.That(t, c.HasAtLeastOneChild(42), test.ShouldBeTrue)
	test.That(t, c.hasAtLeastOneChild.popcount(), test.ShouldEqual, 1)
	c.SetHasAtLeastOneChild(42, false)
	test.That(t, c.HasAtLeastOneChild(42), test.ShouldBeFalse)
}

func TestNodeDataMutatesInPlace(t *testing.T) {
	c := New(3)
	data := c.NodeData(indexing.LinearIndex(5))
	data[0] = 2.5
	test.That(t, c.NodeData(5)[0], test.ShouldAlmostEqual, 2.5)
}
