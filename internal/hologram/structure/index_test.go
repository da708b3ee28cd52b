package structure

import (
	"testing"

	"github.com/go-theft-craft/hologram/internal/server/world"
)

// countingSource records how many reads the detector performed.
type countingSource struct {
	blockMap
	reads int
}

func (s *countingSource) BlockAt(pos world.BlockPos) int32 {
	s.reads++
	return s.blockMap.BlockAt(pos)
}

func TestIndexCachesAndInvalidates(t *testing.T) {
	src := &countingSource{blockMap: blockMap{}}
	src.fill(world.BlockPos{}, world.BlockPos{X: 2, Y: 2, Z: 2}, glass<<4)
	ix := NewIndex(NewDetector(glass, 0))

	first, err := ix.GetOrDetect(src, world.Overworld, world.BlockPos{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("GetOrDetect: %v", err)
	}
	readsAfterDetect := src.reads

	second, err := ix.GetOrDetect(src, world.Overworld, world.BlockPos{X: 2, Y: 0, Z: 2})
	if err != nil {
		t.Fatalf("GetOrDetect cached: %v", err)
	}
	if second != first {
		t.Errorf("cached cuboid = %v, want %v", second, first)
	}
	if src.reads != readsAfterDetect+1 {
		t.Errorf("cache hit performed %d reads, want 1", src.reads-readsAfterDetect)
	}

	if n := ix.InvalidateAt("minecraft:the_nether", world.BlockPos{}); n != 0 {
		t.Errorf("other dimension invalidated %d", n)
	}
	if n := ix.InvalidateNear(world.Overworld, world.BlockPos{X: 3, Y: 1, Z: 1}); n != 1 {
		t.Errorf("InvalidateNear removed %d, want 1", n)
	}
	if ix.Len(world.Overworld) != 0 {
		t.Errorf("Len = %d after invalidation", ix.Len(world.Overworld))
	}

	if _, err := ix.GetOrDetect(src, world.Overworld, world.BlockPos{}); err != nil {
		t.Fatalf("re-detect: %v", err)
	}
	if n := ix.InvalidateAt(world.Overworld, world.BlockPos{X: 1, Y: 1, Z: 1}); n != 1 {
		t.Errorf("InvalidateAt removed %d, want 1", n)
	}

	ix.GetOrDetect(src, world.Overworld, world.BlockPos{})
	ix.ClearWorld(world.Overworld)
	if ix.Len(world.Overworld) != 0 {
		t.Error("ClearWorld left entries")
	}
}
