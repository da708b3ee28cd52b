package structure

import (
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Index caches detected cuboids per dimension, keyed by bounds.
// It is not safe for concurrent use; the server tick goroutine owns it.
type Index struct {
	detector *Detector
	byDim    map[string]map[string]Cuboid
}

// NewIndex returns an empty Index backed by detector.
func NewIndex(detector *Detector) *Index {
	return &Index{detector: detector, byDim: make(map[string]map[string]Cuboid)}
}

// Detector returns the detector the index resolves misses with.
func (ix *Index) Detector() *Detector { return ix.detector }

// GetOrDetect returns a cached cuboid containing seed, or detects and caches one.
func (ix *Index) GetOrDetect(src BlockSource, dimension string, seed world.BlockPos) (Cuboid, error) {
	if !ix.detector.IsTarget(src.BlockAt(seed)) {
		return ix.detector.Detect(src, dimension, seed)
	}
	for _, c := range ix.byDim[dimension] {
		if c.Contains(seed) {
			return c, nil
		}
	}

	c, err := ix.detector.Detect(src, dimension, seed)
	if err != nil {
		return Cuboid{}, err
	}
	ix.put(c)
	return c, nil
}

func (ix *Index) put(c Cuboid) {
	m, ok := ix.byDim[c.Dimension]
	if !ok {
		m = make(map[string]Cuboid)
		ix.byDim[c.Dimension] = m
	}
	m[c.Key()] = c
}

// InvalidateAt drops every cached cuboid containing pos and returns how
// many were removed.
func (ix *Index) InvalidateAt(dimension string, pos world.BlockPos) int {
	removed := 0
	for key, c := range ix.byDim[dimension] {
		if c.Contains(pos) {
			delete(ix.byDim[dimension], key)
			removed++
		}
	}
	return removed
}

// InvalidateNear drops every cached cuboid containing pos or touching it,
// so a block placed against a face also forces re-detection.
func (ix *Index) InvalidateNear(dimension string, pos world.BlockPos) int {
	removed := 0
	for key, c := range ix.byDim[dimension] {
		grown := Cuboid{
			Min: c.Min.Offset(-1, -1, -1),
			Max: c.Max.Offset(1, 1, 1),
		}
		if grown.Contains(pos) {
			delete(ix.byDim[dimension], key)
			removed++
		}
	}
	return removed
}

// ClearWorld drops all cached cuboids for dimension.
func (ix *Index) ClearWorld(dimension string) {
	delete(ix.byDim, dimension)
}

// Len returns the number of cached cuboids in dimension.
func (ix *Index) Len(dimension string) int {
	return len(ix.byDim[dimension])
}
