package world

import (
	"sync"

	"github.com/go-theft-craft/hologram/internal/server/world/gen"
)

// Overworld is the identifier of the only dimension the server hosts.
const Overworld = "minecraft:overworld"

// BlockPos is a block position in the world.
type BlockPos struct {
	X, Y, Z int
}

// Offset returns the position shifted by (dx, dy, dz).
func (p BlockPos) Offset(dx, dy, dz int) BlockPos {
	return BlockPos{p.X + dx, p.Y + dy, p.Z + dz}
}

// BlockID extracts the block type from a state ID.
func BlockID(state int32) int32 { return state >> 4 }

// World tracks block state as generated terrain plus player overrides,
// and the analog redstone signals placed on top of it.
type World struct {
	mu        sync.RWMutex
	dimension string
	blocks    map[BlockPos]int32
	signals   map[BlockPos]int
	generator gen.Generator
	chunks    map[gen.ChunkPos]*gen.ChunkData
}

// NewWorld creates a World for dimension backed by generator.
func NewWorld(dimension string, generator gen.Generator) *World {
	return &World{
		dimension: dimension,
		blocks:    make(map[BlockPos]int32),
		signals:   make(map[BlockPos]int),
		generator: generator,
		chunks:    make(map[gen.ChunkPos]*gen.ChunkData),
	}
}

// Dimension returns the dimension identifier.
func (w *World) Dimension() string { return w.dimension }

// GetOrGenerateChunk returns the cached chunk column, generating it on first use.
func (w *World) GetOrGenerateChunk(cx, cz int) *gen.ChunkData {
	pos := gen.ChunkPos{X: cx, Z: cz}

	w.mu.RLock()
	c, ok := w.chunks[pos]
	w.mu.RUnlock()
	if ok {
		return c
	}

	c = w.generator.Generate(cx, cz)

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.chunks[pos]; ok {
		return existing
	}
	w.chunks[pos] = c
	return c
}

// GetBlock returns the block state ID at the given position.
func (w *World) GetBlock(x, y, z int) int32 {
	if y < 0 || y >= 256 {
		return 0
	}

	w.mu.RLock()
	s, ok := w.blocks[BlockPos{x, y, z}]
	w.mu.RUnlock()
	if ok {
		return s
	}

	c := w.GetOrGenerateChunk(x>>4, z>>4)
	return int32(c.GetBlock(x&0xF, y, z&0xF))
}

// BlockAt is GetBlock for a BlockPos.
func (w *World) BlockAt(pos BlockPos) int32 {
	return w.GetBlock(pos.X, pos.Y, pos.Z)
}

// SetBlock stores a block state override and returns the previous state.
// Overrides equal to the generated base state are dropped.
func (w *World) SetBlock(x, y, z int, stateID int32) int32 {
	if y < 0 || y >= 256 {
		return 0
	}
	c := w.GetOrGenerateChunk(x>>4, z>>4)
	base := int32(c.GetBlock(x&0xF, y, z&0xF))

	w.mu.Lock()
	defer w.mu.Unlock()

	pos := BlockPos{x, y, z}
	prev, ok := w.blocks[pos]
	if !ok {
		prev = base
	}
	if stateID == base {
		delete(w.blocks, pos)
	} else {
		w.blocks[pos] = stateID
	}
	return prev
}

// LoadOverrides replaces all block overrides.
func (w *World) LoadOverrides(overrides map[BlockPos]int32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocks = overrides
}

// ForEachOverride calls fn for every block override under a read lock.
func (w *World) ForEachOverride(fn func(pos BlockPos, stateID int32)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for pos, state := range w.blocks {
		fn(pos, state)
	}
}

// SpawnHeight returns the Y a player should stand on at (0, 0).
func (w *World) SpawnHeight() int {
	return w.generator.HeightAt(0, 0) + 1
}
