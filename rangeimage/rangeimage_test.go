package rangeimage

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func testWindows() (Window, Window) {
	return Window{Min: -math.Pi, Max: math.Pi, NumCells: 16},
		Window{Min: -math.Pi / 2, Max: math.Pi / 2, NumCells: 8}
}

func TestAddPointKeepsClosestOnCollision(t *testing.T) {
	az, el := testWindows()
	ri := New(az, el)
	ri.AddPoint(r3.Vector{X: 5})
	ri.AddPoint(r3.Vector{X: 2})
	azIdx := az.IndexOf(0)
	elIdx := el.IndexOf(0)
	test.That(t, ri.At(azIdx, elIdx), test.ShouldAlmostEqual, 2.0, 1e-9)
}

func TestUnsetCellIsNoBeam(t *testing.T) {
	az, el := testWindows()
	ri := New(az, el)
	test.That(t, ri.At(0, 0), test.ShouldEqual, NoBeam)
}

func TestHierarchicalBuildCollapsesToOneCell(t *testing.T) {
	az, el := testWindows()
	ri := New(az, el)
	ri.AddPoint(r3.Vector{X: 1})
	hri := BuildHierarchical(ri)
	lo, hi := hri.Levels[hri.MaxLevel()].MinMax(0, 0)
	test.That(t, lo, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, hi, test.ShouldAlmostEqual, 1.0, 1e-9)
}

func TestQueryMinMaxAggregatesEmptyAsSentinel(t *testing.T) {
	az, el := testWindows()
	ri := New(az, el)
	hri := BuildHierarchical(ri)
	lo, hi := hri.QueryMinMax(0, -0.1, 0.1, -0.1, 0.1)
	test.That(t, lo, test.ShouldEqual, math.MaxFloat64)
	test.That(t, hi, test.ShouldEqual, -math.MaxFloat64)
}

func TestSelectLevelPicksFinestSufficientLevel(t *testing.T) {
	az, el := testWindows()
	ri := New(az, el)
	hri := BuildHierarchical(ri)
	level := hri.SelectLevel(0.01, 0.01, 0.0)
	// Level 0 cells are 2*pi/16 by pi/8 wide, already wider than the 0.01
	// span, so the finest sufficient level is 0.
	test.That(t, level, test.ShouldEqual, 0)
	test.That(t, level, test.ShouldBeGreaterThanOrEqualTo, 0)
	test.That(t, level, test.ShouldBeLessThanOrEqualTo, hri.MaxLevel())
}
