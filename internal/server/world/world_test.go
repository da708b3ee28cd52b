package world

import (
	"testing"

	"github.com/go-theft-craft/hologram/internal/server/world/gen"
)

func newFlatWorld(t *testing.T) *World {
	t.Helper()
	g, err := gen.NewFlatGenerator(nil)
	if err != nil {
		t.Fatalf("NewFlatGenerator: %v", err)
	}
	return NewWorld(Overworld, g)
}

func TestWorldBaseState(t *testing.T) {
	w := newFlatWorld(t)

	tests := []struct {
		name    string
		x, y, z int
		want    int32
	}{
		{"bedrock", 0, 0, 0, 7 << 4},
		{"stone", 0, 1, 0, 1 << 4},
		{"grass", -20, 4, 33, 2 << 4},
		{"air", 5, 64, 10, 0},
		{"below_world", 0, -1, 0, 0},
		{"above_world", 0, 300, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.GetBlock(tt.x, tt.y, tt.z); got != tt.want {
				t.Errorf("GetBlock(%d,%d,%d) = %d, want %d", tt.x, tt.y, tt.z, got, tt.want)
			}
		})
	}
	if w.Dimension() != Overworld {
		t.Errorf("Dimension() = %q", w.Dimension())
	}
}

func TestWorldSetBlockReturnsPrevious(t *testing.T) {
	w := newFlatWorld(t)

	if prev := w.SetBlock(3, 10, 5, 95<<4); prev != 0 {
		t.Errorf("first SetBlock prev = %d, want 0", prev)
	}
	if prev := w.SetBlock(3, 10, 5, 95<<4|14); prev != 95<<4 {
		t.Errorf("second SetBlock prev = %d, want %d", prev, 95<<4)
	}
	if got := w.GetBlock(3, 10, 5); BlockID(got) != 95 || got&0xF != 14 {
		t.Errorf("GetBlock = %d, want stained glass meta 14", got)
	}
}

func TestWorldSetBlockRemovesRedundantOverride(t *testing.T) {
	w := newFlatWorld(t)

	w.SetBlock(0, 4, 0, 0)
	w.SetBlock(0, 4, 0, 2<<4)
	w.SetBlock(0, 10, 0, 0)

	count := 0
	w.ForEachOverride(func(BlockPos, int32) { count++ })
	if count != 0 {
		t.Errorf("overrides = %d, want 0", count)
	}
}

func TestWorldSpawnHeight(t *testing.T) {
	w := newFlatWorld(t)
	if got := w.SpawnHeight(); got != 5 {
		t.Errorf("SpawnHeight() = %d, want 5", got)
	}
}
