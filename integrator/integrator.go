// Package integrator implements the coarse-to-fine projective integrator:
// given one posed pointcloud, build its (hierarchical) range image, then
// walk the octree top-down, applying a single scalar update wherever the
// beam model's worst-case variation across a node is small enough to
// trust a coarse update, and descending into children otherwise. Grounded
// on wavemap_2d's CoarseToFineIntegrator::integratePointcloud, generalized
// from the 1D angular case to the 2-axis (azimuth, elevation) spherical
// case the hashed 3D map requires, and from a single compile-time octree
// to the hashed multi-block map (each block contributes its own root
// cover, mirroring the single tree's first-child-indices push).
package integrator

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/LorenzoCodeluppi/wavemap/config"
	"github.com/LorenzoCodeluppi/wavemap/indexing"
	"github.com/LorenzoCodeluppi/wavemap/intersector"
	"github.com/LorenzoCodeluppi/wavemap/logging"
	"github.com/LorenzoCodeluppi/wavemap/occmap"
	"github.com/LorenzoCodeluppi/wavemap/pointcloud"
	"github.com/LorenzoCodeluppi/wavemap/rangeimage"
	"github.com/LorenzoCodeluppi/wavemap/spatialmath"
	"github.com/LorenzoCodeluppi/wavemap/waveerrors"
)

// BeamModel computes a log-odds update as a function of a cell's radial
// distance along a beam of known measured range and its angular offset
// from that beam's own bearing, and bounds its own worst-case radial
// variation so the integrator can decide whether a coarse, single-sample
// update is acceptable across an entire node.
type BeamModel interface {
	// Update returns the log-odds increment for a point at range
	// cellRange, angleOffset radians off the axis of a beam whose own
	// measured range is beamRange.
	Update(cellRange, beamRange, angleOffset float64) float64
	// MaxGradient bounds |d Update / d cellRange| at angleOffset == 0,
	// the worst case since angular attenuation only ever shrinks the
	// update. Used by the acceptance test's closed-form bound.
	MaxGradient() float64
}

// PiecewiseBeamModel is the default measurement model: a constant
// (negative) free-space update strictly before the measured range, a
// constant (positive) occupied update within a thin shell around it, and
// zero beyond, all attenuated by a Gaussian falloff in the angular
// offset from the beam's own bearing (AngleSigma).
type PiecewiseBeamModel struct {
	cfg config.MeasurementModelConfig
}

// NewPiecewiseBeamModel constructs the default beam model from cfg.
func NewPiecewiseBeamModel(cfg config.MeasurementModelConfig) *PiecewiseBeamModel {
	return &PiecewiseBeamModel{cfg: cfg}
}

// Update implements BeamModel.
func (m *PiecewiseBeamModel) Update(cellRange, beamRange, angleOffset float64) float64 {
	delta := cellRange - beamRange
	var base float64
	switch {
	case delta < -m.cfg.SurfaceThickness:
		base = m.cfg.FreeSpaceLogOdds
	case delta <= m.cfg.SurfaceThickness:
		base = m.cfg.OccupiedLogOdds
	default:
		return 0
	}
	return base * m.angularAttenuation(angleOffset)
}

// angularAttenuation returns a Gaussian falloff in [0, 1], 1 directly on
// the beam's bearing and decaying with standard deviation AngleSigma away
// from it.
func (m *PiecewiseBeamModel) angularAttenuation(angleOffset float64) float64 {
	ratio := angleOffset / m.cfg.AngleSigma
	return math.Exp(-0.5 * ratio * ratio)
}

// MaxGradient implements BeamModel. The piecewise model is not smooth at
// its two breakpoints, so its true gradient is unbounded there; the
// larger plateau magnitude divided by the shell half-width, evaluated at
// zero angular offset (where attenuation is 1 and the update is
// largest), is used as the closed-form bound the acceptance test needs.
func (m *PiecewiseBeamModel) MaxGradient() float64 {
	maxUpdate := math.Abs(m.cfg.FreeSpaceLogOdds)
	if occ := math.Abs(m.cfg.OccupiedLogOdds); occ > maxUpdate {
		maxUpdate = occ
	}
	return maxUpdate / m.cfg.SurfaceThickness
}

// Integrator is a coarse-to-fine projective integrator bound to one map.
type Integrator struct {
	m      *occmap.Map
	cfg    config.IntegratorConfig
	model  BeamModel
	logger logging.Logger
}

// New validates cfg and constructs an Integrator writing into m.
func New(m *occmap.Map, cfg config.IntegratorConfig, model BeamModel, logger logging.Logger) (*Integrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	if model == nil {
		model = NewPiecewiseBeamModel(cfg.MeasurementModel)
	}
	return &Integrator{
		m:      m,
		cfg:    cfg,
		model:  model,
		logger: logging.OrNop(logger).Sublogger("integrator"),
	}, nil
}

// scanGridResolution picks an angular grid fine enough to resolve
// individual beams without over-allocating for a sparse scan: roughly one
// cell per point, with a practical floor and ceiling.
func scanGridResolution(numPoints int) int {
	n := int(math.Sqrt(float64(numPoints)))
	if n < 8 {
		n = 8
	}
	if n > 1024 {
		n = 1024
	}
	return n
}

// IntegratePointcloud applies one scan to the bound map: validates it,
// builds its range image, then performs the coarse-to-fine octree walk
// over every candidate block, applying a scalar update at every node the
// beam model's acceptance test (or leaf height) resolves directly.
func (it *Integrator) IntegratePointcloud(pc *pointcloud.PosedPointcloud) error {
	if pc == nil || pc.Size() == 0 {
		it.logger.Warnw("rejecting empty pointcloud")
		return waveerrors.NewInputRejectedError("integrator: empty pointcloud")
	}
	pose := pc.Pose()
	if !pose.IsValid() {
		it.logger.Warnw("rejecting pointcloud with malformed sensor pose", "pose", pose)
		return waveerrors.NewInputRejectedError("integrator: malformed sensor pose")
	}

	gridN := scanGridResolution(pc.Size())
	az := rangeimage.Window{Min: -math.Pi, Max: math.Pi, NumCells: gridN}
	elN := gridN / 2
	if elN < 4 {
		elN = 4
	}
	el := rangeimage.Window{Min: -math.Pi / 2, Max: math.Pi / 2, NumCells: elN}
	ri := rangeimage.New(az, el)
	pc.Iterate(func(_ int, ray pointcloud.Ray) bool {
		if ray.Range > 0 {
			ri.AddPoint(ray.Bearing.Mul(ray.Range))
		}
		return true
	})
	hri := rangeimage.BuildHierarchical(ri)

	isect := intersector.New(hri, intersector.Params{
		AngleThreshold:      it.cfg.AngleThreshold,
		RangeDeltaThreshold: it.cfg.RangeDeltaThreshold,
		MaxRange:            it.cfg.MaxRange,
	})

	maxRange := pc.MaxMeasuredRange()
	if maxRange == 0 {
		maxRange = it.cfg.MaxRange
	}

	minCellWidth := it.m.MinCellWidth()
	inverse := pose.Inverse()
	for _, blockIdx := range it.m.CandidateBlockIndices(pose.Origin(), maxRange) {
		root := it.m.BlockRootIndex(blockIdx)
		for _, child := range root.FirstChildIndices() {
			it.walk(child, pose, inverse, ri, isect, minCellWidth)
		}
	}
	return nil
}

// walk implements one octree node of the coarse-to-fine traversal,
// recursing into children by direct call rather than an explicit stack:
// each candidate block's subtree is bounded in depth by the map's tree
// height, so the recursion depth is small and fixed.
func (it *Integrator) walk(
	node indexing.OctreeIndex,
	pose, inverse spatialmath.Pose,
	ri *rangeimage.RangeImage,
	isect *intersector.RangeImageIntersector,
	minCellWidth float64,
) {
	worldAABB := indexing.NodeIndexToAABB(node, minCellWidth)
	intersectionType := isect.DetermineIntersectionType(pose, worldAABB)
	if intersectionType == intersector.FullyUnknown {
		return
	}

	nodeWidth := worldAABB.Width(0)
	worldCenter := worldAABB.Center()
	localCenter := inverse.Transform(worldCenter)
	cellRange := localCenter.Norm()
	boundingSphereRadius := indexing.BoundingSphereRadius3D(nodeWidth)

	if node.Height == 0 || it.isApproximationErrorAcceptable(intersectionType, boundingSphereRadius) {
		update := it.computeUpdateForCell(ri, localCenter, cellRange)
		if update != 0 {
			it.m.AddToCellValue(node, update)
		}
		return
	}

	for _, child := range node.FirstChildIndices() {
		it.walk(child, pose, inverse, ri, isect, minCellWidth)
	}
}

// computeUpdateForCell looks up the nearest beam's measured range along
// localCenter's bearing and returns the beam model's update for a cell at
// cellRange along it, attenuated by the angular offset between
// localCenter's true continuous bearing and the matched grid cell's own
// center bearing (the discretized beam direction). It returns 0 if no
// beam was recorded near that bearing, matching the "unknown beyond"
// clause of the beam model.
func (it *Integrator) computeUpdateForCell(ri *rangeimage.RangeImage, localCenter r3.Vector, cellRange float64) float64 {
	bearing := rangeimage.ToBearing(localCenter)
	azIdx := ri.Azimuth.IndexOf(bearing.Azimuth)
	elIdx := ri.Elevation.IndexOf(bearing.Elevation)
	beamRange := ri.At(azIdx, elIdx)
	if beamRange == rangeimage.NoBeam {
		return 0
	}
	beamBearing := rangeimage.Bearing{
		Azimuth:   ri.Azimuth.CellCenter(azIdx),
		Elevation: ri.Elevation.CellCenter(elIdx),
	}
	angleOffset := bearing.AngleTo(beamBearing)
	return it.model.Update(cellRange, beamRange, angleOffset)
}

// isApproximationErrorAcceptable implements spec.md §4.5's acceptance
// test: outside the possibly-occupied classification the beam model is
// on one of its constant plateaus almost everywhere, so a single sample
// is always trusted; within it, the model's worst-case variation across
// the node's bounding sphere (gradient times radius) must stay below a
// configured fraction of the update's own magnitude.
func (it *Integrator) isApproximationErrorAcceptable(
	intersectionType intersector.IntersectionType,
	boundingSphereRadius float64,
) bool {
	if intersectionType != intersector.PossiblyOccupied {
		return true
	}
	worstCaseVariation := it.model.MaxGradient() * boundingSphereRadius
	referenceUpdate := math.Abs(it.cfg.MeasurementModel.OccupiedLogOdds)
	return worstCaseVariation <= it.cfg.ErrorTolerance*referenceUpdate
}
