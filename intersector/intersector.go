// Package intersector classifies an octree node's world-space AABB against
// a scan's hierarchical range image, the four-way test the coarse-to-fine
// integrator uses to decide whether to skip, update, or descend into a
// node. Grounded on wavemap's RangeImage[12]DIntersector, generalized to
// the 2-axis (azimuth, elevation) bearing of a 3D spherical projection
// rather than the single-angle 2D case.
package intersector

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/LorenzoCodeluppi/wavemap/indexing"
	"github.com/LorenzoCodeluppi/wavemap/rangeimage"
	"github.com/LorenzoCodeluppi/wavemap/spatialmath"
)

// IntersectionType is the four-way classification of a node against a
// scan's measured surface.
type IntersectionType int

const (
	// FullyUnknown means no beam falls inside the node's bearing window,
	// or the node lies beyond the measured range (plus slack) and also
	// beyond the sensor's MaxRange.
	FullyUnknown IntersectionType = iota
	// Free means the node lies strictly between the sensor and the
	// nearest measured surface along its bearing window: the beam has
	// passed through without yet hitting anything.
	Free
	// PossiblyOccupied means the node's range interval overlaps the
	// measured surface's range interval: some, but not all, of it may be
	// occupied.
	PossiblyOccupied
	// FullyOccupied means the node's range interval is entirely within
	// the measured surface's thin shell.
	FullyOccupied
)

func (t IntersectionType) String() string {
	switch t {
	case FullyUnknown:
		return "fully_unknown"
	case Free:
		return "free"
	case PossiblyOccupied:
		return "possibly_occupied"
	case FullyOccupied:
		return "fully_occupied"
	default:
		return "unknown"
	}
}

// Params bundles the slack and range-cap configuration the classifier
// needs, mirroring config.IntegratorConfig's relevant fields without this
// package depending on the config package.
type Params struct {
	AngleThreshold      float64
	RangeDeltaThreshold float64
	MaxRange            float64
}

// RangeImageIntersector answers determineIntersectionType queries against
// one scan's hierarchical range image, holding it and the query params
// immutably for the duration of one integratePointcloud call.
type RangeImageIntersector struct {
	hri    *rangeimage.HierarchicalRangeImage
	params Params
}

// New wraps hri for repeated queries during one integration pass.
func New(hri *rangeimage.HierarchicalRangeImage, params Params) *RangeImageIntersector {
	return &RangeImageIntersector{hri: hri, params: params}
}

// corners returns the 8 vertices of aabb.
func corners(aabb indexing.AABB) [8]r3.Vector {
	return [8]r3.Vector{
		{X: aabb.Min.X, Y: aabb.Min.Y, Z: aabb.Min.Z},
		{X: aabb.Max.X, Y: aabb.Min.Y, Z: aabb.Min.Z},
		{X: aabb.Min.X, Y: aabb.Max.Y, Z: aabb.Min.Z},
		{X: aabb.Max.X, Y: aabb.Max.Y, Z: aabb.Min.Z},
		{X: aabb.Min.X, Y: aabb.Min.Y, Z: aabb.Max.Z},
		{X: aabb.Max.X, Y: aabb.Min.Y, Z: aabb.Max.Z},
		{X: aabb.Min.X, Y: aabb.Max.Y, Z: aabb.Max.Z},
		{X: aabb.Max.X, Y: aabb.Max.Y, Z: aabb.Max.Z},
	}
}

// projectedWindow is the AABB's bearing window and range interval in the
// sensor's local frame.
type projectedWindow struct {
	azMin, azMax float64
	elMin, elMax float64
	dNear, dFar  float64
	sensorInside bool
}

// projectAABB transforms aabb's corners into the sensor's local frame and
// computes their bearing window and range interval. If the sensor origin
// falls inside the AABB, azimuth/elevation are undefined; sensorInside is
// set and the caller should treat the node conservatively.
func projectAABB(pose spatialmath.Pose, aabb indexing.AABB) projectedWindow {
	if aabb.Min.X <= pose.Translation.X && pose.Translation.X <= aabb.Max.X &&
		aabb.Min.Y <= pose.Translation.Y && pose.Translation.Y <= aabb.Max.Y &&
		aabb.Min.Z <= pose.Translation.Z && pose.Translation.Z <= aabb.Max.Z {
		return projectedWindow{sensorInside: true}
	}

	inverse := pose.Inverse()
	w := projectedWindow{
		azMin: math.MaxFloat64, azMax: -math.MaxFloat64,
		elMin: math.MaxFloat64, elMax: -math.MaxFloat64,
		dNear: math.MaxFloat64, dFar: -math.MaxFloat64,
	}
	for _, worldCorner := range corners(aabb) {
		local := inverse.Transform(worldCorner)
		bearing := rangeimage.ToBearing(local)
		rng := local.Norm()
		if bearing.Azimuth < w.azMin {
			w.azMin = bearing.Azimuth
		}
		if bearing.Azimuth > w.azMax {
			w.azMax = bearing.Azimuth
		}
		if bearing.Elevation < w.elMin {
			w.elMin = bearing.Elevation
		}
		if bearing.Elevation > w.elMax {
			w.elMax = bearing.Elevation
		}
		if rng < w.dNear {
			w.dNear = rng
		}
		if rng > w.dFar {
			w.dFar = rng
		}
	}
	// An AABB that straddles the sensor's behind-direction can make the
	// naive corner-wise azimuth min/max wrap around +-pi into a window
	// wider than the true angular span. Conservatively widen to the full
	// circle in that case rather than attempt dual-range unification.
	if w.azMax-w.azMin > math.Pi {
		w.azMin, w.azMax = -math.Pi, math.Pi
	}
	return w
}

// DetermineIntersectionType classifies worldAABB against the scan held by
// r, from the sensor's pose, per spec.md §4.4's four-way test.
func (r *RangeImageIntersector) DetermineIntersectionType(pose spatialmath.Pose, worldAABB indexing.AABB) IntersectionType {
	window := projectAABB(pose, worldAABB)
	if window.sensorInside {
		return PossiblyOccupied
	}

	azSpan := window.azMax - window.azMin
	elSpan := window.elMax - window.elMin
	level := r.hri.SelectLevel(azSpan, elSpan, r.params.AngleThreshold)
	rangeMin, rangeMax := r.hri.QueryMinMax(level,
		window.azMin-r.params.AngleThreshold, window.azMax+r.params.AngleThreshold,
		window.elMin-r.params.AngleThreshold, window.elMax+r.params.AngleThreshold)

	slack := r.params.RangeDeltaThreshold
	if rangeMax < 0 {
		// No beam fell inside the queried bearing window at all.
		return FullyUnknown
	}
	if window.dNear > rangeMax+slack && window.dNear > r.params.MaxRange {
		return FullyUnknown
	}
	if window.dFar < rangeMin-slack {
		return Free
	}
	if rangeMin-slack <= window.dNear && window.dFar <= rangeMax+slack && rangeMax-rangeMin <= 2*slack {
		return FullyOccupied
	}
	return PossiblyOccupied
}
