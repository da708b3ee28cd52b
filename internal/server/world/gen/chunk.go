package gen

// ChunkPos identifies a chunk column by its X and Z coordinates.
type ChunkPos struct{ X, Z int }

// Section is a 16x16x16 slice of a chunk column.
// Index = y*256 + z*16 + x, value = blockID<<4 | metadata.
type Section struct {
	Blocks [4096]uint16
}

// ChunkData holds the generated terrain for one chunk column.
type ChunkData struct {
	Sections [16]*Section // nil = all air
	Biomes   [256]byte    // index = z*16 + x
}

// Generator produces chunk data deterministically.
type Generator interface {
	Generate(chunkX, chunkZ int) *ChunkData
	HeightAt(blockX, blockZ int) int
}

// SetBlock sets a block state at local coordinates.
// x, z must be in [0,16), y must be in [0,256).
func (c *ChunkData) SetBlock(x, y, z int, state uint16) {
	sec := y >> 4
	if c.Sections[sec] == nil {
		if state == 0 {
			return
		}
		c.Sections[sec] = &Section{}
	}
	c.Sections[sec].Blocks[(y&0xF)*256+z*16+x] = state
}

// GetBlock returns the block state at local coordinates.
func (c *ChunkData) GetBlock(x, y, z int) uint16 {
	sec := c.Sections[y>>4]
	if sec == nil {
		return 0
	}
	return sec.Blocks[(y&0xF)*256+z*16+x]
}

// SectionMask returns the bitmap of non-empty sections.
func (c *ChunkData) SectionMask() uint16 {
	var mask uint16
	for i, sec := range c.Sections {
		if sec != nil {
			mask |= 1 << uint(i)
		}
	}
	return mask
}
