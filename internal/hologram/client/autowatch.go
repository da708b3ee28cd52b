package client

import (
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// AutoWatchPeriod is how many client ticks pass between watch requests.
const AutoWatchPeriod = 20

// AutoWatch decides when the client asks the server to watch the projector
// it is looking at. Seeds already inside a known projector are skipped.
type AutoWatch struct {
	reg    *ActivationRegistry
	period int64
	tick   int64
}

// NewAutoWatch returns an AutoWatch firing every period client ticks. A
// non-positive period selects AutoWatchPeriod.
func NewAutoWatch(reg *ActivationRegistry, period int) *AutoWatch {
	if period <= 0 {
		period = AutoWatchPeriod
	}
	return &AutoWatch{reg: reg, period: int64(period)}
}

// Tick advances the client clock and, on due ticks, returns the gaze seeds
// in dim that no known projector covers.
func (a *AutoWatch) Tick(dim string, gaze []world.BlockPos) []world.BlockPos {
	a.tick++
	if a.tick%a.period != 0 {
		return nil
	}
	var out []world.BlockPos
	for _, seed := range gaze {
		if !a.covered(dim, seed) {
			out = append(out, seed)
		}
	}
	return out
}

func (a *AutoWatch) covered(dim string, pos world.BlockPos) bool {
	for _, act := range a.reg.Snapshot() {
		k := act.Key
		if k.Dimension == dim &&
			pos.X >= k.Min.X && pos.X <= k.Max.X &&
			pos.Y >= k.Min.Y && pos.Y <= k.Max.Y &&
			pos.Z >= k.Min.Z && pos.Z <= k.Max.Z {
			return true
		}
	}
	return false
}
