package indexing

import "github.com/golang/geo/r3"

// AABB is an axis-aligned bounding box in world-space metric coordinates.
type AABB struct {
	Min, Max r3.Vector
}

// Width returns the box's extent along the given axis, 0=X, 1=Y, 2=Z.
func (b AABB) Width(axis int) float64 {
	switch axis {
	case 0:
		return b.Max.X - b.Min.X
	case 1:
		return b.Max.Y - b.Min.Y
	case 2:
		return b.Max.Z - b.Min.Z
	default:
		panic("indexing: axis out of range")
	}
}

// Center returns the box's geometric center.
func (b AABB) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// NodeIndexToAABB returns the world-space cube covered by idx, given the
// map's minimum (leaf, height 0) cell width.
func NodeIndexToAABB(idx OctreeIndex, minCellWidth float64) AABB {
	width := minCellWidth * float64(int64(1)<<idx.Height)
	min := r3.Vector{
		X: float64(idx.Position.X) * width,
		Y: float64(idx.Position.Y) * width,
		Z: float64(idx.Position.Z) * width,
	}
	return AABB{Min: min, Max: min.Add(r3.Vector{X: width, Y: width, Z: width})}
}

// IndexToBlockIndex returns the BlockIndex that owns the node at idx, given
// the map's tree height. Block coordinates are the node's full-resolution
// position divided (with floor rounding) by 2^treeHeight.
func IndexToBlockIndex(idx OctreeIndex, treeHeight int) BlockIndex {
	parent := idx.ComputeParentIndex(treeHeight)
	return parent.Position
}

// CellWidthAtHeight returns the metric width of a node at the given height.
func CellWidthAtHeight(height int, minCellWidth float64) float64 {
	return minCellWidth * float64(int64(1)<<height)
}

// BoundingSphereRadius3D returns the radius of the sphere circumscribing a
// cube of the given width, per spec: (sqrt(3)/2) * width.
func BoundingSphereRadius3D(nodeWidth float64) float64 {
	const kUnitCubeHalfDiagonal3D = 0.8660254037844386 // sqrt(3)/2
	return kUnitCubeHalfDiagonal3D * nodeWidth
}

// BoundingSphereRadius2D returns the radius of the circle circumscribing a
// square of the given width, per spec: (sqrt(2)/2) * width.
func BoundingSphereRadius2D(nodeWidth float64) float64 {
	const kUnitSquareHalfDiagonal2D = 0.7071067811865476 // sqrt(2)/2
	return kUnitSquareHalfDiagonal2D * nodeWidth
}
