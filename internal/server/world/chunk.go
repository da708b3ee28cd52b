package world

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/internal/server/world/gen"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

const (
	sectionBlockBytes = 16 * 16 * 16 * 2 // 4096 blocks x 2 bytes
	sectionLightBytes = 16 * 16 * 16 / 2 // 4096 nibbles
	biomeBytes        = 256
)

var fullLight = func() []byte {
	b := make([]byte, sectionLightBytes)
	for i := range b {
		b[i] = 0xFF
	}
	return b
}()

// EncodeChunk builds a MapChunk packet for the column with overrides applied.
func (w *World) EncodeChunk(cx, cz int) packet.MapChunk {
	chunk := w.GetOrGenerateChunk(cx, cz)
	overrides := w.chunkOverrides(cx, cz)

	bitMap := chunk.SectionMask()
	for pos, state := range overrides {
		if state != 0 {
			bitMap |= 1 << uint(pos.Y>>4)
		}
	}
	if bitMap == 0 {
		bitMap = 0x0001
	}

	var sections []int
	for i := range 16 {
		if bitMap&(1<<uint(i)) != 0 {
			sections = append(sections, i)
		}
	}

	data := make([]byte, 0, len(sections)*(sectionBlockBytes+2*sectionLightBytes)+biomeBytes)
	for _, i := range sections {
		data = append(data, encodeSection(chunk.Sections[i], i, overrides)...)
	}
	// Block light then sky light, fully lit.
	for range 2 {
		for range sections {
			data = append(data, fullLight...)
		}
	}
	data = append(data, chunk.Biomes[:]...)

	return packet.MapChunk{
		X:         int32(cx),
		Z:         int32(cz),
		GroundUp:  true,
		BitMap:    bitMap,
		ChunkData: data,
	}
}

func encodeSection(sec *gen.Section, index int, overrides map[BlockPos]int32) []byte {
	blocks := make([]byte, sectionBlockBytes)
	if sec != nil {
		for i, state := range sec.Blocks {
			binary.LittleEndian.PutUint16(blocks[i*2:], state)
		}
	}
	baseY := index * 16
	for pos, state := range overrides {
		if pos.Y < baseY || pos.Y >= baseY+16 {
			continue
		}
		i := ((pos.Y&0xF)*256 + (pos.Z&0xF)*16 + pos.X&0xF) * 2
		binary.LittleEndian.PutUint16(blocks[i:], uint16(state))
	}
	return blocks
}

// chunkOverrides snapshots the overrides that fall inside one column.
func (w *World) chunkOverrides(cx, cz int) map[BlockPos]int32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[BlockPos]int32)
	for pos, state := range w.blocks {
		if pos.X>>4 == cx && pos.Z>>4 == cz {
			out[pos] = state
		}
	}
	return out
}

// WriteChunkGrid writes every column within radius of (centerX, centerZ).
func (w *World) WriteChunkGrid(out io.Writer, centerX, centerZ, radius int) error {
	for cx := centerX - radius; cx <= centerX+radius; cx++ {
		for cz := centerZ - radius; cz <= centerZ+radius; cz++ {
			chunk := w.EncodeChunk(cx, cz)
			if err := protocol.WritePacket(out, &chunk); err != nil {
				return fmt.Errorf("write chunk %d,%d: %w", cx, cz, err)
			}
		}
	}
	return nil
}
