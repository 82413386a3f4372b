// Package wavelet implements the fixed Haar wavelet transform used to
// compress an octree node's eight child scale coefficients into one parent
// scale coefficient plus seven orthogonal detail coefficients, and back.
//
// The transform is linear, so coefficient updates compose by addition; this
// is what lets the map apply a scalar log-odds update at a single octree
// node without reconstructing and re-encoding its whole subtree.
package wavelet

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// NumChildren is the branching factor the transform operates over.
const NumChildren = 8

// NumDetails is the number of detail coefficients per node (NumChildren-1).
const NumDetails = 7

// ChildValues holds the eight child scale coefficients of a node, ordered
// so that bit 0 of the index selects X, bit 1 selects Y, bit 2 selects Z
// (matching indexing.RelativeChild).
type ChildValues [NumChildren]float64

// Details holds the seven Haar detail coefficients of a node.
type Details [NumDetails]float64

// Coefficients is a node's wavelet-compressed representation: one scale
// coefficient (the Haar average over the node's region) and seven detail
// coefficients (orthogonal differences sufficient to reconstruct the eight
// children's scales given the parent scale).
type Coefficients struct {
	Scale   float64
	Details Details
}

// the unnormalized 8x8 Haar basis, rows = [avg, d1..d7], columns = children.
// Row 0 (the scale row) is all ones and every detail row is an orthogonal
// +-1 pattern, so the table is a Hadamard-ordered Walsh matrix H; Forward
// applies (1/8) * H by scaling with normalization. basisRows[k][c] is the
// coefficient of child c in basis vector k.
var basisRows = [NumChildren][NumChildren]float64{
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, -1, 1, -1, 1, -1, 1, -1},
	{1, 1, -1, -1, 1, 1, -1, -1},
	{1, -1, -1, 1, 1, -1, -1, 1},
	{1, 1, 1, 1, -1, -1, -1, -1},
	{1, -1, 1, -1, -1, 1, -1, 1},
	{1, 1, -1, -1, -1, -1, 1, 1},
	{1, -1, -1, 1, -1, 1, 1, -1},
}

const normalization = 1.0 / 8.0

// Forward computes the parent scale coefficient and seven detail
// coefficients for a node given its eight children's scale coefficients.
func Forward(children ChildValues) Coefficients {
	var out Coefficients
	for row := 0; row < NumChildren; row++ {
		var sum float64
		for c := 0; c < NumChildren; c++ {
			sum += basisRows[row][c] * children[c]
		}
		if row == 0 {
			out.Scale = sum * normalization
		} else {
			out.Details[row-1] = sum * normalization
		}
	}
	return out
}

// Backward exactly inverts Forward under exact arithmetic: it reconstructs
// all eight child scale coefficients from a node's coefficients.
func Backward(c Coefficients) ChildValues {
	var full [NumChildren]float64
	full[0] = c.Scale
	copy(full[1:], c.Details[:])

	var out ChildValues
	for col := 0; col < NumChildren; col++ {
		var sum float64
		for row := 0; row < NumChildren; row++ {
			sum += basisRows[row][col] * full[row]
		}
		out[col] = sum
	}
	return out
}

// BackwardSingleChild reconstructs exactly one child's scale coefficient at
// roughly 1/8th the cost of a full Backward.
func BackwardSingleChild(c Coefficients, child int) float64 {
	sum := c.Scale
	for d := 0; d < NumDetails; d++ {
		sum += basisRows[d+1][child] * c.Details[d]
	}
	return sum
}

// ForwardSingleChild distributes a scalar delta applied at one child back
// into a (scale, details) contribution, such that summing the contributions
// from updates applied independently at all eight children is equivalent to
// running Forward on the vector of per-child deltas.
func ForwardSingleChild(delta float64, child int) Coefficients {
	var out Coefficients
	out.Scale = delta * normalization
	for d := 0; d < NumDetails; d++ {
		out.Details[d] = basisRows[d+1][child] * delta * normalization
	}
	return out
}

// Add returns the coefficient-wise sum of a and b (the transform is linear,
// so this lets per-child update contributions accumulate along an ancestor
// chain by simple addition).
func (c Coefficients) Add(o Coefficients) Coefficients {
	var out Coefficients
	out.Scale = c.Scale + o.Scale
	for i := range out.Details {
		out.Details[i] = c.Details[i] + o.Details[i]
	}
	return out
}

// IsNonzero reports whether any detail coefficient's magnitude exceeds the
// given threshold.
func (d Details) IsNonzero(threshold float64) bool {
	for _, v := range d {
		if v < -threshold || threshold < v {
			return true
		}
	}
	return false
}

// Basis returns the normalized 8x8 Haar transform matrix used by Forward,
// i.e. the matrix M such that Forward(x) == M.Mul(x) (row 0 is the scale
// row, rows 1..7 are the detail rows). Exposed for property testing of the
// transform's orthogonality; Forward/Backward themselves use the closed
// form above rather than a matrix multiply, to stay bit-reproducible.
func Basis() *mat.Dense {
	m := mat.NewDense(NumChildren, NumChildren, nil)
	for row := 0; row < NumChildren; row++ {
		for col := 0; col < NumChildren; col++ {
			m.Set(row, col, basisRows[row][col]*normalization)
		}
	}
	return m
}

// childOffset exposes the basis-matrix row/column relationship as a vector,
// used only for documentation and the single-child property test.
func childOffset(child int) r3.Vector {
	return r3.Vector{
		X: float64((child >> 0) & 1),
		Y: float64((child >> 1) & 1),
		Z: float64((child >> 2) & 1),
	}
}
