// Package indexing provides the coordinate and addressing primitives shared
// by the wavelet octree map: block indices, octree node indices, Morton
// codes, and the linear-index arithmetic used to address nodes inside a
// chunk's flat arrays.
package indexing

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// NumChildren is the branching factor of the octree.
const NumChildren = 8

// RelativeChild identifies one of a node's eight children, 0..7, with bit 0
// selecting the X half, bit 1 the Y half and bit 2 the Z half.
type RelativeChild int

// Index3D is an integer lattice coordinate, used for block indices and for
// an octree node's position within its own height's grid. It intentionally
// stays a plain integer vector: the geo/gonum vector types in this module's
// dependency set are float64-based and would require constant int<->float
// round-tripping for what is exact integer lattice arithmetic.
type Index3D struct {
	X, Y, Z int64
}

// Add returns the elementwise sum.
func (v Index3D) Add(o Index3D) Index3D {
	return Index3D{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Scale multiplies every component by s.
func (v Index3D) Scale(s int64) Index3D {
	return Index3D{v.X * s, v.Y * s, v.Z * s}
}

// Shl returns v with every component shifted left by bits (v * 2^bits).
func (v Index3D) Shl(bits int) Index3D {
	return Index3D{v.X << bits, v.Y << bits, v.Z << bits}
}

// Shr returns v with every component arithmetic-shifted right by bits
// (floor(v / 2^bits), correct for negative coordinates).
func (v Index3D) Shr(bits int) Index3D {
	return Index3D{v.X >> bits, v.Y >> bits, v.Z >> bits}
}

func (v Index3D) String() string {
	return fmt.Sprintf("[%d, %d, %d]", v.X, v.Y, v.Z)
}

// ToVector converts the lattice coordinate to a float64 geo vector, useful
// for AABB and distance computations elsewhere in the module.
func (v Index3D) ToVector() r3.Vector {
	return r3.Vector{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// BlockIndex names a top-level block of the hashed map.
type BlockIndex = Index3D

// OctreeIndex addresses a node of the octree: height 0 is a leaf at the
// map's minimum cell width, height == TreeHeight is a block's root.
type OctreeIndex struct {
	Height   int
	Position Index3D
}

func (idx OctreeIndex) String() string {
	return fmt.Sprintf("{height: %d, position: %s}", idx.Height, idx.Position.String())
}

// ComputeChildIndex returns the index of the given relative child of idx.
func (idx OctreeIndex) ComputeChildIndex(child RelativeChild) OctreeIndex {
	offset := Index3D{
		X: int64((child >> 0) & 1),
		Y: int64((child >> 1) & 1),
		Z: int64((child >> 2) & 1),
	}
	return OctreeIndex{
		Height:   idx.Height - 1,
		Position: idx.Position.Scale(2).Add(offset),
	}
}

// ComputeParentIndex returns the ancestor of idx at the given (higher or
// equal) height.
func (idx OctreeIndex) ComputeParentIndex(parentHeight int) OctreeIndex {
	if parentHeight < idx.Height {
		panic("indexing: parent height below node height")
	}
	return OctreeIndex{
		Height:   parentHeight,
		Position: idx.Position.Shr(parentHeight - idx.Height),
	}
}

// FirstChildIndices returns the eight direct children of idx.
func (idx OctreeIndex) FirstChildIndices() [NumChildren]OctreeIndex {
	var children [NumChildren]OctreeIndex
	for c := RelativeChild(0); c < NumChildren; c++ {
		children[c] = idx.ComputeChildIndex(c)
	}
	return children
}
