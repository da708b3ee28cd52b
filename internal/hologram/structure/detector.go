package structure

import (
	"errors"
	"fmt"

	"github.com/go-theft-craft/hologram/internal/server/world"
)

// DefaultCeiling is the largest allowed size along any axis.
const DefaultCeiling = 64

// ErrNotFound is returned when no valid cuboid contains the seed.
var ErrNotFound = errors.New("no projector cuboid")

// BlockSource reads block state IDs.
type BlockSource interface {
	BlockAt(pos world.BlockPos) int32
}

// Detector flood-fills from a seed and accepts filled boxes or hollow shells
// of the target block.
type Detector struct {
	BlockID int32
	Ceiling int
}

// NewDetector returns a Detector for blockID. A non-positive ceiling
// selects DefaultCeiling.
func NewDetector(blockID int32, ceiling int) *Detector {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Detector{BlockID: blockID, Ceiling: ceiling}
}

// IsTarget reports whether state is the projector block, any metadata.
func (d *Detector) IsTarget(state int32) bool {
	return world.BlockID(state) == d.BlockID
}

var faces = [6]world.BlockPos{
	{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
	{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: -1},
}

// Detect returns the cuboid whose connected component contains seed.
func (d *Detector) Detect(src BlockSource, dimension string, seed world.BlockPos) (Cuboid, error) {
	if !d.IsTarget(src.BlockAt(seed)) {
		return Cuboid{}, fmt.Errorf("%w: seed %v is not the projector block", ErrNotFound, seed)
	}

	maxVisited := d.Ceiling * d.Ceiling * d.Ceiling
	box := Cuboid{Dimension: dimension, Min: seed, Max: seed}
	visited := map[world.BlockPos]struct{}{seed: {}}
	queue := []world.BlockPos{seed}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		box.Min = world.BlockPos{X: min(box.Min.X, p.X), Y: min(box.Min.Y, p.Y), Z: min(box.Min.Z, p.Z)}
		box.Max = world.BlockPos{X: max(box.Max.X, p.X), Y: max(box.Max.Y, p.Y), Z: max(box.Max.Z, p.Z)}
		if box.SizeX() > d.Ceiling || box.SizeY() > d.Ceiling || box.SizeZ() > d.Ceiling {
			return Cuboid{}, fmt.Errorf("%w: exceeds %d blocks per axis", ErrNotFound, d.Ceiling)
		}

		for _, f := range faces {
			n := p.Offset(f.X, f.Y, f.Z)
			if _, seen := visited[n]; seen {
				continue
			}
			if !d.IsTarget(src.BlockAt(n)) {
				continue
			}
			visited[n] = struct{}{}
			if len(visited) > maxVisited {
				return Cuboid{}, fmt.Errorf("%w: more than %d blocks", ErrNotFound, maxVisited)
			}
			queue = append(queue, n)
		}
	}

	if len(visited) == box.Volume() {
		return box, nil
	}
	if d.isShell(src, box) {
		return box, nil
	}
	return Cuboid{}, fmt.Errorf("%w: %d blocks do not form a filled or hollow box %v", ErrNotFound, len(visited), box)
}

// isShell reports whether every position on the six faces of box is the
// target block.
func (d *Detector) isShell(src BlockSource, box Cuboid) bool {
	for x := box.Min.X; x <= box.Max.X; x++ {
		for y := box.Min.Y; y <= box.Max.Y; y++ {
			for z := box.Min.Z; z <= box.Max.Z; z++ {
				onFace := x == box.Min.X || x == box.Max.X ||
					y == box.Min.Y || y == box.Max.Y ||
					z == box.Min.Z || z == box.Max.Z
				if onFace && !d.IsTarget(src.BlockAt(world.BlockPos{X: x, Y: y, Z: z})) {
					return false
				}
			}
		}
	}
	return true
}
