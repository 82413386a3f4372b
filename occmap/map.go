// Package occmap implements the hashed map itself: a concurrency-safe
// collection of per-BlockIndex wavelet octree blocks, the factory that
// validates a config.MapConfig into one, and the map-wide operations
// (threshold, prune, clear, forEachLeaf, point lookups) that fan out over
// the owned blocks. This generalizes wavemap's HashedBlocks /
// HashedWaveletOctree pairing the way the block package generalizes
// HashedChunkedWaveletOctreeBlock: one Go type, parameterized by config
// rather than by compile-time height constants.
package occmap

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/LorenzoCodeluppi/wavemap/block"
	"github.com/LorenzoCodeluppi/wavemap/config"
	"github.com/LorenzoCodeluppi/wavemap/indexing"
	"github.com/LorenzoCodeluppi/wavemap/logging"
)

// Map is a hashed chunked wavelet octree map: an unbounded grid of
// independently addressable Blocks, each itself a bounded octree.
//
// The top-level map lock only protects the blocks map's structure
// (insertion and deletion of entries); it is not held while a block is
// being written, and the only block read made under it is Prune's Empty
// check before erasing entries, so integration against one block never
// blocks integration against another.
type Map struct {
	mu     sync.RWMutex
	blocks map[indexing.BlockIndex]*block.Block

	cfg    config.MapConfig
	logger logging.Logger
}

// New validates cfg and constructs an empty map. It returns a
// *waveerrors.ConfigError, wrapped, for any invalid field.
func New(cfg config.MapConfig, logger logging.Logger) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	return &Map{
		blocks: make(map[indexing.BlockIndex]*block.Block),
		cfg:    cfg,
		logger: logging.OrNop(logger).Sublogger("occmap"),
	}, nil
}

// Config returns the map's validated configuration.
func (m *Map) Config() config.MapConfig { return m.cfg }

// TreeHeight returns the configured block tree height.
func (m *Map) TreeHeight() int { return m.cfg.TreeHeight }

// MinCellWidth returns the configured leaf width.
func (m *Map) MinCellWidth() float64 { return m.cfg.MinCellWidth }

// BlockIndexFor returns the BlockIndex owning the given node index.
func (m *Map) BlockIndexFor(index indexing.OctreeIndex) indexing.BlockIndex {
	return indexing.IndexToBlockIndex(index, m.cfg.TreeHeight)
}

// GetBlock returns the block at blockIdx, or nil if it does not exist.
func (m *Map) GetBlock(blockIdx indexing.BlockIndex) *block.Block {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blocks[blockIdx]
}

// GetOrCreateBlock returns the block at blockIdx, allocating an empty one
// under the map's write lock if it did not already exist.
func (m *Map) GetOrCreateBlock(blockIdx indexing.BlockIndex) *block.Block {
	m.mu.RLock()
	b, ok := m.blocks[blockIdx]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.blocks[blockIdx]; ok {
		return b
	}
	b = block.New(m.cfg.TreeHeight, m.cfg.ChunkHeight, m.cfg.MinLogOdds, m.cfg.MaxLogOdds)
	m.blocks[blockIdx] = b
	return b
}

// NumBlocks returns the number of currently allocated blocks.
func (m *Map) NumBlocks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}

// ForEachBlockIndex calls fn once per currently allocated block index.
// fn must not mutate the map (add or remove blocks); it may read or write
// through the given block.
func (m *Map) ForEachBlockIndex(fn func(blockIdx indexing.BlockIndex, b *block.Block)) {
	m.mu.RLock()
	snapshot := make(map[indexing.BlockIndex]*block.Block, len(m.blocks))
	for k, v := range m.blocks {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	for blockIdx, b := range snapshot {
		fn(blockIdx, b)
	}
}

// SetCellValue routes to the owning block, allocating it if necessary.
func (m *Map) SetCellValue(index indexing.OctreeIndex, value float64) {
	blockIdx := m.BlockIndexFor(index)
	local := toBlockLocal(index, blockIdx, m.cfg.TreeHeight)
	b := m.GetOrCreateBlock(blockIdx)
	b.Lock()
	defer b.Unlock()
	b.SetCellValue(local, value)
}

// AddToCellValue routes to the owning block, allocating it if necessary.
func (m *Map) AddToCellValue(index indexing.OctreeIndex, update float64) {
	blockIdx := m.BlockIndexFor(index)
	local := toBlockLocal(index, blockIdx, m.cfg.TreeHeight)
	b := m.GetOrCreateBlock(blockIdx)
	b.Lock()
	defer b.Unlock()
	b.AddToCellValue(local, update)
}

// GetValueAt returns the saturated value at index, or 0 if its owning
// block has never been allocated (equivalent to "fully unknown").
func (m *Map) GetValueAt(index indexing.OctreeIndex) float64 {
	blockIdx := m.BlockIndexFor(index)
	b := m.GetBlock(blockIdx)
	if b == nil {
		return 0
	}
	local := toBlockLocal(index, blockIdx, m.cfg.TreeHeight)
	b.RLock()
	defer b.RUnlock()
	return b.GetSaturatedCellValue(local)
}

// ForEachLeaf visits every leaf (or coarsened node, at or above
// terminationHeight) of every allocated block.
func (m *Map) ForEachLeaf(terminationHeight int, visit block.LeafVisitor) {
	m.ForEachBlockIndex(func(blockIdx indexing.BlockIndex, b *block.Block) {
		b.RLock()
		defer b.RUnlock()
		b.ForEachLeaf(blockIdx, terminationHeight, visit)
	})
}

// toBlockLocal rewrites a world-absolute node index as one relative to its
// owning block's own root: a block root always sits at Index3D{0,0,0} in
// its own Block's coordinate frame (see block.Block.SetCellValue, which
// addresses purely by Morton code within [0, 2^treeHeight)^3).
//
// index.Position is in node-grid units of index.Height (NodeIndexToMorton
// recovers leaf units via Position.Shl(Height)), while blockIdx is in
// node-grid units of treeHeight; the block's origin must be rescaled to
// index.Height's units before subtracting.
func toBlockLocal(index indexing.OctreeIndex, blockIdx indexing.BlockIndex, treeHeight int) indexing.OctreeIndex {
	blockOrigin := blockIdx.Shl(treeHeight - index.Height)
	return indexing.OctreeIndex{
		Height:   index.Height,
		Position: index.Position.Add(indexing.Index3D{X: -blockOrigin.X, Y: -blockOrigin.Y, Z: -blockOrigin.Z}),
	}
}

// parallelOverBlocks runs fn against every currently allocated block
// concurrently, collecting panics and errors into a single combined error
// rather than letting one block's failure abort the rest. It mirrors the
// teacher's RunInParallel pattern, layered under go.viam.com/utils's
// panic-capturing goroutine spawn as a second line of defense.
func (m *Map) parallelOverBlocks(fn func(b *block.Block) error) error {
	m.mu.RLock()
	blocks := make([]*block.Block, 0, len(m.blocks))
	for _, b := range m.blocks {
		blocks = append(blocks, b)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make([]error, len(blocks))
	wg.Add(len(blocks))
	for i, b := range blocks {
		i, b := i, b
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = errors.Errorf("panic in block worker: %v", r)
				}
			}()
			errs[i] = fn(b)
		})
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// Threshold runs Block.Threshold across every allocated block in parallel.
func (m *Map) Threshold() error {
	return m.parallelOverBlocks(func(b *block.Block) error {
		b.Lock()
		defer b.Unlock()
		b.Threshold()
		return nil
	})
}

// Prune runs Block.Prune across every allocated block in parallel, then
// erases any block left Empty under the map's write lock.
func (m *Map) Prune() error {
	err := m.parallelOverBlocks(func(b *block.Block) error {
		b.Lock()
		defer b.Unlock()
		b.Prune()
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for blockIdx, b := range m.blocks {
		b.RLock()
		empty := b.Empty()
		b.RUnlock()
		if empty {
			delete(m.blocks, blockIdx)
		}
	}
	return nil
}

// Clear removes every block from the map.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = make(map[indexing.BlockIndex]*block.Block)
	m.logger.Infow("map cleared")
}

// LastUpdatedStamp returns the stamp of the block at blockIdx, and whether
// that block exists.
func (m *Map) LastUpdatedStamp(blockIdx indexing.BlockIndex) (uint64, bool) {
	b := m.GetBlock(blockIdx)
	if b == nil {
		return 0, false
	}
	return b.LastUpdatedStamp(), true
}
