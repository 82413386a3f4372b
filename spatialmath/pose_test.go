package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestIdentityTransformIsNoOp(t *testing.T) {
	p := Identity()
	got := p.Transform(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, got.X, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, 2.0, 1e-9)
	test.That(t, got.Z, test.ShouldAlmostEqual, 3.0, 1e-9)
}

func TestTranslationOnlyPose(t *testing.T) {
	p := NewPose(r3.Vector{X: 5, Y: -1, Z: 2}, quat.Number{Real: 1})
	got := p.Transform(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 6.0, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, -1.0, 1e-9)
	test.That(t, got.Z, test.ShouldAlmostEqual, 2.0, 1e-9)
}

func TestRotationByNinetyDegreesAboutZ(t *testing.T) {
	half := math.Pi / 4
	rot := quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}
	p := NewPose(r3.Vector{}, rot)
	got := p.Transform(r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, got.X, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, got.Z, test.ShouldAlmostEqual, 0.0, 1e-9)
}

func TestIsValidRejectsNaN(t *testing.T) {
	p := NewPose(r3.Vector{X: math.NaN()}, quat.Number{Real: 1})
	test.That(t, p.IsValid(), test.ShouldBeFalse)
}

func TestInverseUndoesTransform(t *testing.T) {
	half := math.Pi / 6
	rot := quat.Number{Real: math.Cos(half), Jmag: math.Sin(half)}
	p := NewPose(r3.Vector{X: 3, Y: -2, Z: 1}, rot)
	world := p.Transform(r3.Vector{X: 2, Y: 5, Z: -1})
	local := p.Inverse().Transform(world)
	test.That(t, local.X, test.ShouldAlmostEqual, 2.0, 1e-9)
	test.That(t, local.Y, test.ShouldAlmostEqual, 5.0, 1e-9)
	test.That(t, local.Z, test.ShouldAlmostEqual, -1.0, 1e-9)
}

func TestIsValidRejectsZeroQuaternion(t *testing.T) {
	p := Pose{Translation: r3.Vector{}, Orientation: quat.Number{}}
	test.That(t, p.IsValid(), test.ShouldBeFalse)
}
