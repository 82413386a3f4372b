// Package rangeimage builds the per-scan range image and its hierarchical
// (mipmap) form, the projective integrator's acceleration structure for
// classifying octree nodes against a scan without walking every point.
// Grounded on wavemap's RangeImage/HierarchicalRangeImage pairing: level 0
// mirrors the discretized bearing grid, each coarser level pools 2x2 of
// the level below into a (min, max) pair, using (+MaxFloat64, -MaxFloat64)
// as the "no beam" pair so empty regions never artificially constrain a
// query.
package rangeimage

import (
	"math"

	"github.com/golang/geo/r3"
)

// NoBeam is the sentinel range value for a grid cell no point projected
// into.
const NoBeam = math.MaxFloat64

// Bearing is a point's direction decomposed into azimuth (angle in the XY
// plane from +X) and elevation (angle from the XY plane toward +Z).
type Bearing struct {
	Azimuth, Elevation float64
}

// ToBearing projects a local-frame point onto its azimuth/elevation.
func ToBearing(p r3.Vector) Bearing {
	planar := math.Hypot(p.X, p.Y)
	return Bearing{
		Azimuth:   math.Atan2(p.Y, p.X),
		Elevation: math.Atan2(p.Z, planar),
	}
}

// Direction returns the unit vector pointing along b.
func (b Bearing) Direction() r3.Vector {
	cosEl := math.Cos(b.Elevation)
	return r3.Vector{
		X: cosEl * math.Cos(b.Azimuth),
		Y: cosEl * math.Sin(b.Azimuth),
		Z: math.Sin(b.Elevation),
	}
}

// AngleTo returns the angle, in radians, between b and other's directions.
func (b Bearing) AngleTo(other Bearing) float64 {
	dot := b.Direction().Dot(other.Direction())
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return math.Acos(dot)
}

// Window bounds a discretized angular axis: numCells cells evenly covering
// [min, max).
type Window struct {
	Min, Max float64
	NumCells int
}

// CellWidth returns the angular width of one cell.
func (w Window) CellWidth() float64 {
	return (w.Max - w.Min) / float64(w.NumCells)
}

// IndexOf returns the nearest cell index for angle, clamped to
// [0, NumCells-1].
func (w Window) IndexOf(angle float64) int {
	width := w.CellWidth()
	idx := int(math.Floor((angle - w.Min) / width))
	if idx < 0 {
		idx = 0
	}
	if idx >= w.NumCells {
		idx = w.NumCells - 1
	}
	return idx
}

// CellCenter returns the angle at the center of cell idx.
func (w Window) CellCenter(idx int) float64 {
	width := w.CellWidth()
	return w.Min + width*(float64(idx)+0.5)
}

// RangeImage is a 2D grid of measured ranges indexed by [elevation][azimuth]
// cell, holding NoBeam where no point projected.
type RangeImage struct {
	Azimuth, Elevation Window
	ranges             []float64 // row-major, elevation-major
}

// New allocates a range image initialized to NoBeam everywhere.
func New(azimuth, elevation Window) *RangeImage {
	ri := &RangeImage{
		Azimuth:   azimuth,
		Elevation: elevation,
		ranges:    make([]float64, azimuth.NumCells*elevation.NumCells),
	}
	for i := range ri.ranges {
		ri.ranges[i] = NoBeam
	}
	return ri
}

func (ri *RangeImage) flatIndex(azIdx, elIdx int) int {
	return elIdx*ri.Azimuth.NumCells + azIdx
}

// At returns the range stored at (azIdx, elIdx), or NoBeam.
func (ri *RangeImage) At(azIdx, elIdx int) float64 {
	return ri.ranges[ri.flatIndex(azIdx, elIdx)]
}

// Set stores rng at (azIdx, elIdx), keeping the smaller of the existing and
// new value (closest-surface collision policy).
func (ri *RangeImage) Set(azIdx, elIdx int, rng float64) {
	i := ri.flatIndex(azIdx, elIdx)
	if rng < ri.ranges[i] {
		ri.ranges[i] = rng
	}
}

// AddPoint projects a single validated local-frame point into the image,
// applying the closest-surface collision policy. Rejection of NaN/
// over-range points is the pointcloud package's responsibility, not this
// one's; callers feed it already-validated points.
func (ri *RangeImage) AddPoint(p r3.Vector) {
	bearing := ToBearing(p)
	azIdx := ri.Azimuth.IndexOf(bearing.Azimuth)
	elIdx := ri.Elevation.IndexOf(bearing.Elevation)
	ri.Set(azIdx, elIdx, p.Norm())
}

// Level is one mipmap level of a HierarchicalRangeImage: a grid of (min,
// max) range pairs, each covering a 2^level x 2^level block of the base
// range image.
type Level struct {
	numAz, numEl int
	mins, maxs   []float64
}

func newLevel(numAz, numEl int) Level {
	mins := make([]float64, numAz*numEl)
	maxs := make([]float64, numAz*numEl)
	for i := range mins {
		mins[i] = math.MaxFloat64
		maxs[i] = -math.MaxFloat64
	}
	return Level{numAz: numAz, numEl: numEl, mins: mins, maxs: maxs}
}

func (l Level) index(azIdx, elIdx int) int { return elIdx*l.numAz + azIdx }

// MinMax returns the (min, max) range pair stored at (azIdx, elIdx).
func (l Level) MinMax(azIdx, elIdx int) (float64, float64) {
	i := l.index(azIdx, elIdx)
	return l.mins[i], l.maxs[i]
}

func (l Level) merge(azIdx, elIdx int, lo, hi float64) {
	i := l.index(azIdx, elIdx)
	if lo < l.mins[i] {
		l.mins[i] = lo
	}
	if hi > l.maxs[i] {
		l.maxs[i] = hi
	}
}

// HierarchicalRangeImage is the mipmap pyramid over a RangeImage: Levels[0]
// is the base resolution, each subsequent level pools 2x2 of the one
// before it until a single cell remains.
type HierarchicalRangeImage struct {
	base   *RangeImage
	Levels []Level
}

// BuildHierarchical constructs the full pyramid over ri.
func BuildHierarchical(ri *RangeImage) *HierarchicalRangeImage {
	numAz, numEl := ri.Azimuth.NumCells, ri.Elevation.NumCells
	base := newLevel(numAz, numEl)
	for elIdx := 0; elIdx < numEl; elIdx++ {
		for azIdx := 0; azIdx < numAz; azIdx++ {
			rng := ri.At(azIdx, elIdx)
			lo, hi := rng, rng
			if rng == NoBeam {
				lo, hi = math.MaxFloat64, -math.MaxFloat64
			}
			base.merge(azIdx, elIdx, lo, hi)
		}
	}

	hri := &HierarchicalRangeImage{base: ri, Levels: []Level{base}}
	prev := base
	for prev.numAz > 1 || prev.numEl > 1 {
		nextAz := ceilDiv(prev.numAz, 2)
		nextEl := ceilDiv(prev.numEl, 2)
		next := newLevel(nextAz, nextEl)
		for elIdx := 0; elIdx < prev.numEl; elIdx++ {
			for azIdx := 0; azIdx < prev.numAz; azIdx++ {
				lo, hi := prev.MinMax(azIdx, elIdx)
				next.merge(azIdx/2, elIdx/2, lo, hi)
			}
		}
		hri.Levels = append(hri.Levels, next)
		prev = next
	}
	return hri
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// MaxLevel returns the coarsest level index.
func (h *HierarchicalRangeImage) MaxLevel() int {
	return len(h.Levels) - 1
}

// CellWidthAt returns the angular width, per axis, of one cell at level.
func (h *HierarchicalRangeImage) CellWidthAt(level int) (azWidth, elWidth float64) {
	l := h.Levels[level]
	return (h.base.Azimuth.Max - h.base.Azimuth.Min) / float64(l.numAz),
		(h.base.Elevation.Max - h.base.Elevation.Min) / float64(l.numEl)
}

// QueryMinMax aggregates the (min, max) range across every cell at level
// whose footprint intersects the bearing window [azMin, azMax] x [elMin,
// elMax]. It returns (+MaxFloat64, -MaxFloat64) if no cell in range holds
// a beam.
func (h *HierarchicalRangeImage) QueryMinMax(level int, azMin, azMax, elMin, elMax float64) (float64, float64) {
	l := h.Levels[level]
	azWidth, elWidth := h.CellWidthAt(level)

	azLo := clampIdx(int(math.Floor((azMin-h.base.Azimuth.Min)/azWidth)), l.numAz)
	azHi := clampIdx(int(math.Floor((azMax-h.base.Azimuth.Min)/azWidth)), l.numAz)
	elLo := clampIdx(int(math.Floor((elMin-h.base.Elevation.Min)/elWidth)), l.numEl)
	elHi := clampIdx(int(math.Floor((elMax-h.base.Elevation.Min)/elWidth)), l.numEl)

	rangeMin, rangeMax := math.MaxFloat64, -math.MaxFloat64
	for elIdx := elLo; elIdx <= elHi; elIdx++ {
		for azIdx := azLo; azIdx <= azHi; azIdx++ {
			lo, hi := l.MinMax(azIdx, elIdx)
			if lo < rangeMin {
				rangeMin = lo
			}
			if hi > rangeMax {
				rangeMax = hi
			}
		}
	}
	return rangeMin, rangeMax
}

func clampIdx(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// SelectLevel returns the finest level whose single cell footprint (plus
// angleThreshold slack on each axis) is wide enough to cover a window of
// the given angular span, so the query is resolved without aggregating
// more cells, or coarser ones, than needed. If no finer level suffices it
// returns MaxLevel.
func (h *HierarchicalRangeImage) SelectLevel(azSpan, elSpan, angleThreshold float64) int {
	for level := 0; level < h.MaxLevel(); level++ {
		azWidth, elWidth := h.CellWidthAt(level)
		if azWidth+angleThreshold >= azSpan && elWidth+angleThreshold >= elSpan {
			return level
		}
	}
	return h.MaxLevel()
}
