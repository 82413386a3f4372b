package occmap

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/LorenzoCodeluppi/wavemap/block"
	"github.com/LorenzoCodeluppi/wavemap/indexing"
)

// BlockRootIndex returns the world-space OctreeIndex of blockIdx's own
// root. A node's Position is always expressed in node-grid units of its
// own height (see indexing.NodeIndexToMorton), and blockIdx is exactly
// that grid coordinate at height == TreeHeight, so no further scaling
// is needed.
func (m *Map) BlockRootIndex(blockIdx indexing.BlockIndex) indexing.OctreeIndex {
	return indexing.OctreeIndex{
		Height:   m.cfg.TreeHeight,
		Position: blockIdx,
	}
}

// CandidateBlockIndices returns every BlockIndex whose cube could contain
// a point within maxRange of origin, whether or not that block has been
// allocated yet: an integrator uses this to enumerate the root cover for
// one scan without missing blocks a scan should create.
func (m *Map) CandidateBlockIndices(origin r3.Vector, maxRange float64) []indexing.BlockIndex {
	blockWidth := m.cfg.BlockWidth()
	minBlock := worldToBlockCoord(origin, -maxRange, blockWidth)
	maxBlock := worldToBlockCoord(origin, maxRange, blockWidth)

	var out []indexing.BlockIndex
	for x := minBlock.X; x <= maxBlock.X; x++ {
		for y := minBlock.Y; y <= maxBlock.Y; y++ {
			for z := minBlock.Z; z <= maxBlock.Z; z++ {
				out = append(out, indexing.Index3D{X: x, Y: y, Z: z})
			}
		}
	}
	return out
}

func worldToBlockCoord(origin r3.Vector, offset, blockWidth float64) indexing.Index3D {
	return indexing.Index3D{
		X: int64(math.Floor((origin.X + offset) / blockWidth)),
		Y: int64(math.Floor((origin.Y + offset) / blockWidth)),
		Z: int64(math.Floor((origin.Z + offset) / blockWidth)),
	}
}

// Accelerator caches the most recently touched block so a caller issuing
// many spatially coherent point queries (nearest-neighbor lookups during
// planning, ray casting along a path) does not pay a hash lookup per
// query. It supplements the map's plain GetValueAt the way wavemap's
// QueryAccelerator supplements its hashed map: a single-entry, unsynced
// cache meant for one goroutine's exclusive use.
type Accelerator struct {
	m          *Map
	cachedIdx  indexing.BlockIndex
	cachedBlk  *block.Block
	cacheValid bool
	treeHeight int
}

// NewAccelerator returns an Accelerator bound to m.
func NewAccelerator(m *Map) *Accelerator {
	return &Accelerator{m: m, treeHeight: m.cfg.TreeHeight}
}

// GetValueAt returns the saturated value at index, reusing the
// previous query's block if index falls in the same block.
func (a *Accelerator) GetValueAt(index indexing.OctreeIndex) float64 {
	blockIdx := a.m.BlockIndexFor(index)
	if !a.cacheValid || blockIdx != a.cachedIdx {
		b := a.m.GetBlock(blockIdx)
		if b == nil {
			a.cacheValid = false
			return 0
		}
		a.cachedBlk = b
		a.cachedIdx = blockIdx
		a.cacheValid = true
	}
	local := toBlockLocal(index, blockIdx, a.treeHeight)
	a.cachedBlk.RLock()
	defer a.cachedBlk.RUnlock()
	return a.cachedBlk.GetSaturatedCellValue(local)
}
