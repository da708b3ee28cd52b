package world

// Power-emitting block types.
const (
	BlockRedstoneTorch = 76
	BlockRedstoneBlock = 152
)

// MaxSignal is the strongest redstone signal.
const MaxSignal = 15

var neighbours = [6]BlockPos{
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
	{-1, 0, 0}, {1, 0, 0},
}

// SetSignal places an analog signal source of the given strength at pos.
// Strength is clamped to 0..15; 0 removes the source.
func (w *World) SetSignal(pos BlockPos, strength int) {
	strength = clampSignal(strength)

	w.mu.Lock()
	defer w.mu.Unlock()
	if strength == 0 {
		delete(w.signals, pos)
		return
	}
	w.signals[pos] = strength
}

// Signal returns the analog source strength placed at pos.
func (w *World) Signal(pos BlockPos) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.signals[pos]
}

// LoadSignals replaces all analog sources.
func (w *World) LoadSignals(signals map[BlockPos]int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.signals = signals
}

// ForEachSignal calls fn for every analog source under a read lock.
func (w *World) ForEachSignal(fn func(pos BlockPos, strength int)) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for pos, s := range w.signals {
		fn(pos, s)
	}
}

// EmittedPower is the strength pos drives into its neighbours.
func (w *World) EmittedPower(pos BlockPos) int {
	switch BlockID(w.BlockAt(pos)) {
	case BlockRedstoneBlock, BlockRedstoneTorch:
		return MaxSignal
	}
	return w.Signal(pos)
}

// ReceivedPower is the strongest signal any of the six neighbours of pos
// emits into it. A source does not power its own position.
func (w *World) ReceivedPower(pos BlockPos) int {
	best := 0
	for _, d := range neighbours {
		if p := w.EmittedPower(pos.Offset(d.X, d.Y, d.Z)); p > best {
			best = p
			if best == MaxSignal {
				break
			}
		}
	}
	return best
}

func clampSignal(s int) int {
	return min(max(s, 0), MaxSignal)
}
