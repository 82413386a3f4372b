// Package spatialmath provides the rigid transform used to place a sensor's
// pointcloud into world coordinates. It borrows the teacher's quaternion
// idiom (gonum.org/v1/gonum/num/quat, rotating a vector by sandwiching it
// between a unit quaternion and its conjugate) rather than the teacher's
// full dual-quaternion kinematic chain, since a sensor pose here is a
// single rigid transform, not a linkage of joints.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform from a sensor's local frame to world
// coordinates: rotate by Orientation, then translate by Translation.
type Pose struct {
	Translation r3.Vector
	Orientation quat.Number
}

// Identity returns the pose with no rotation and no translation.
func Identity() Pose {
	return Pose{Orientation: quat.Number{Real: 1}}
}

// NewPose normalizes orientation and returns the resulting pose.
func NewPose(translation r3.Vector, orientation quat.Number) Pose {
	return Pose{Translation: translation, Orientation: normalize(orientation)}
}

// Transform maps a point from the sensor's local frame into world
// coordinates: rotate, then translate.
func (p Pose) Transform(point r3.Vector) r3.Vector {
	rotated := rotateVector(p.Orientation, point)
	return rotated.Add(p.Translation)
}

// TransformDirection rotates, but does not translate, a direction vector
// (e.g. a bearing) from the sensor's local frame into world coordinates.
func (p Pose) TransformDirection(dir r3.Vector) r3.Vector {
	return rotateVector(p.Orientation, dir)
}

// Origin returns the pose's world-space position, i.e. Transform of the
// local-frame origin.
func (p Pose) Origin() r3.Vector {
	return p.Translation
}

// Inverse returns the world-to-local transform undoing p: rotate by p's
// conjugate orientation, after translating by -p.Translation rotated into
// the inverse frame.
func (p Pose) Inverse() Pose {
	inverseOrientation := quat.Conj(normalize(p.Orientation))
	inverse := Pose{Orientation: inverseOrientation}
	inverse.Translation = rotateVector(inverseOrientation, p.Translation.Mul(-1))
	return inverse
}

// IsValid reports whether the pose's fields are all finite and its
// orientation quaternion is non-degenerate (nonzero norm), the minimal
// sanity check the integrator applies before accepting a scan per
// spec.md's "reject empty or malformed pose" edge case.
func (p Pose) IsValid() bool {
	if !finite(p.Translation.X) || !finite(p.Translation.Y) || !finite(p.Translation.Z) {
		return false
	}
	if !finite(p.Orientation.Real) || !finite(p.Orientation.Imag) || !finite(p.Orientation.Jmag) || !finite(p.Orientation.Kmag) {
		return false
	}
	return quatNorm(p.Orientation) > 1e-9
}

func rotateVector(q quat.Number, v r3.Vector) r3.Vector {
	unit := normalize(q)
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rotated := quat.Mul(quat.Mul(unit, p), quat.Conj(unit))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

func normalize(q quat.Number) quat.Number {
	n := quatNorm(q)
	if n < 1e-12 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func quatNorm(q quat.Number) float64 {
	return math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
