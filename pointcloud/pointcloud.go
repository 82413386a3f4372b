// Package pointcloud defines the sensor measurement the integrator
// consumes: a pose-anchored list of range measurements in the sensor's
// local frame. Grounded on the teacher's pointcloud package's Data/Iterate
// idiom, trimmed to what a range sensor's single scan needs — no per-point
// color or dictionary storage, since every point here carries exactly one
// piece of information, its range along a fixed local-frame direction.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/LorenzoCodeluppi/wavemap/spatialmath"
	"github.com/LorenzoCodeluppi/wavemap/waveerrors"
)

// MaxRange is the largest range, in meters, a measurement may report before
// it is rejected as malformed (spec.md's "reject points beyond 10^3 m").
const MaxRange = 1000.0

// PosedPointcloud is one sensor scan: a rigid sensor pose plus the set of
// points it observed, given in the sensor's own local frame (so a point's
// norm is its measured range and its direction is its bearing).
type PosedPointcloud struct {
	pose   spatialmath.Pose
	points []r3.Vector
}

// New validates pose and points and returns the resulting cloud. It
// returns a *waveerrors.InputRejectedError for a malformed pose, an empty
// cloud, or any point that is non-finite or exceeds MaxRange.
func New(pose spatialmath.Pose, points []r3.Vector) (*PosedPointcloud, error) {
	if !pose.IsValid() {
		return nil, waveerrors.NewInputRejectedError("pointcloud: malformed sensor pose")
	}
	if len(points) == 0 {
		return nil, waveerrors.NewInputRejectedError("pointcloud: empty scan")
	}
	for i, p := range points {
		if err := validatePoint(p); err != nil {
			return nil, waveerrors.NewInputRejectedError("pointcloud: point %d: %s", i, err)
		}
	}
	return &PosedPointcloud{pose: pose, points: points}, nil
}

func validatePoint(p r3.Vector) error {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		return errNaN
	}
	if math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) || math.IsInf(p.Z, 0) {
		return errInf
	}
	if p.Norm() > MaxRange {
		return errRange
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return string(e) }

const (
	errNaN   validationError = "non-finite (NaN) coordinate"
	errInf   validationError = "non-finite (Inf) coordinate"
	errRange validationError = "range exceeds MaxRange"
)

// Pose returns the sensor's pose at capture time.
func (pc *PosedPointcloud) Pose() spatialmath.Pose { return pc.pose }

// Size returns the number of points in the cloud.
func (pc *PosedPointcloud) Size() int { return len(pc.points) }

// Ray is one measured point, decomposed into a unit bearing (in the
// sensor's local frame) and the measured range along it.
type Ray struct {
	Bearing r3.Vector
	Range   float64
}

// Iterate calls fn once per point, in local-frame ray form. If fn returns
// false, iteration stops early.
func (pc *PosedPointcloud) Iterate(fn func(index int, ray Ray) bool) {
	for i, p := range pc.points {
		rng := p.Norm()
		var bearing r3.Vector
		if rng > 1e-12 {
			bearing = p.Mul(1 / rng)
		}
		if !fn(i, Ray{Bearing: bearing, Range: rng}) {
			return
		}
	}
}

// WorldPoint returns the i'th point transformed into world coordinates.
func (pc *PosedPointcloud) WorldPoint(i int) r3.Vector {
	return pc.pose.Transform(pc.points[i])
}

// LocalPoint returns the i'th point in the sensor's own local frame.
func (pc *PosedPointcloud) LocalPoint(i int) r3.Vector {
	return pc.points[i]
}

// MaxMeasuredRange returns the largest range in the cloud, used by the
// integrator to bound which blocks a scan can possibly touch.
func (pc *PosedPointcloud) MaxMeasuredRange() float64 {
	var max float64
	for _, p := range pc.points {
		if r := p.Norm(); r > max {
			max = r
		}
	}
	return max
}
