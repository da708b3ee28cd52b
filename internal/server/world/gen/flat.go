package gen

import "fmt"

const (
	blockBedrock = 7
	blockStone   = 1
	blockDirt    = 3
	blockGrass   = 2

	biomePlains = 1
)

// DefaultFlatLayers is the classic superflat column, bottom up.
var DefaultFlatLayers = []uint16{
	blockBedrock << 4,
	blockStone << 4,
	blockStone << 4,
	blockDirt << 4,
	blockGrass << 4,
}

// FlatGenerator fills every column with the same stack of layers
// starting at y=0.
type FlatGenerator struct {
	layers []uint16
}

// NewFlatGenerator returns a generator for the given layers. An empty
// slice selects DefaultFlatLayers.
func NewFlatGenerator(layers []uint16) (*FlatGenerator, error) {
	if len(layers) == 0 {
		layers = DefaultFlatLayers
	}
	if len(layers) > 255 {
		return nil, fmt.Errorf("flat generator: %d layers exceed world height", len(layers))
	}
	return &FlatGenerator{layers: append([]uint16(nil), layers...)}, nil
}

func (g *FlatGenerator) Generate(_, _ int) *ChunkData {
	c := &ChunkData{}
	for x := range 16 {
		for z := range 16 {
			for y, state := range g.layers {
				c.SetBlock(x, y, z, state)
			}
			c.Biomes[z*16+x] = biomePlains
		}
	}
	return c
}

// HeightAt returns the Y of the top layer.
func (g *FlatGenerator) HeightAt(_, _ int) int {
	return len(g.layers) - 1
}
