// Package watch keeps the set of projector cuboids whose bus is re-sampled
// every tick and broadcasts their state when it changes.
package watch

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// World is the view of a dimension the registry samples.
type World interface {
	structure.BlockSource
	bus.PowerSource
	Dimension() string
	Raycast(origin, dir mgl64.Vec3, maxDist float64) (world.BlockPos, bool)
}

// Viewer is a player snapshot used by the discovery scans. Feet centres
// the proximity scans; Eye and Look aim the gaze ray.
type Viewer struct {
	Feet mgl64.Vec3
	Eye  mgl64.Vec3
	Look mgl64.Vec3
}

// BlockPos is the block the viewer stands in.
func (v Viewer) BlockPos() world.BlockPos {
	return world.BlockPos{X: floor(v.Feet.X()), Y: floor(v.Feet.Y()), Z: floor(v.Feet.Z())}
}

// Broadcaster delivers bus updates to every client.
type Broadcaster interface {
	BroadcastBusUpdate(u payload.BusUpdate)
}

// Persister is told when the watched set changes. Implementations must not
// block the tick.
type Persister interface {
	WatchAdded(c structure.Cuboid)
	WatchRemoved(c structure.Cuboid)
}

// Entry is one watched cuboid and the state last broadcast for it.
type Entry struct {
	Cuboid structure.Cuboid
	Power  int
	bus.Codes
	bus.Params

	pin *pin
}

// pin holds codes set by hand (or the bootstrap default) for as long as the
// bus keeps reading the value it had when they were set.
type pin struct {
	codes bus.Codes
	busAt bus.Codes
}

type dimState struct {
	watched map[string]*Entry
	tick    int64
}

// Registry tracks watched cuboids per dimension. It is not safe for
// concurrent use: the server tick goroutine owns it and other goroutines
// reach it through the tick executor.
type Registry struct {
	cfg     Config
	index   *structure.Index
	out     Broadcaster
	persist Persister
	log     *slog.Logger
	dims    map[string]*dimState
}

// NewRegistry returns an empty registry. persist may be nil.
func NewRegistry(cfg Config, index *structure.Index, out Broadcaster, persist Persister, log *slog.Logger) *Registry {
	return &Registry{
		cfg:     cfg.withDefaults(),
		index:   index,
		out:     out,
		persist: persist,
		log:     log,
		dims:    make(map[string]*dimState),
	}
}

func (r *Registry) dim(name string) *dimState {
	ds, ok := r.dims[name]
	if !ok {
		ds = &dimState{watched: make(map[string]*Entry)}
		r.dims[name] = ds
	}
	return ds
}

// Index returns the cuboid index the registry resolves seeds through.
func (r *Registry) Index() *structure.Index { return r.index }

// Watch starts watching the cuboid containing seed. An already watched
// cuboid is returned as is with created false and nothing is broadcast.
func (r *Registry) Watch(w World, seed world.BlockPos) (Entry, bool, error) {
	dim := w.Dimension()
	c, err := r.index.GetOrDetect(w, dim, seed)
	if err != nil {
		return Entry{}, false, fmt.Errorf("watch %v: %w", seed, err)
	}

	ds := r.dim(dim)
	if e, ok := ds.watched[c.Key()]; ok {
		return *e, false, nil
	}

	s := bus.Read(w, c)
	e := &Entry{Cuboid: c, Power: s.Power, Codes: s.Codes, Params: s.Params}
	if r.cfg.Bootstrap && s.Codes.IsZero() && s.Power > 0 {
		e.Codes = r.cfg.BootstrapCodes
		e.pin = &pin{codes: r.cfg.BootstrapCodes, busAt: s.Codes}
	}
	ds.watched[c.Key()] = e

	ds.tick++
	r.send(e, ds.tick)
	if r.persist != nil {
		r.persist.WatchAdded(c)
	}
	r.log.Debug("watching projector",
		"cuboid", c.String(),
		"size", fmt.Sprintf("%dx%dx%d", c.SizeX(), c.SizeY(), c.SizeZ()),
		"power", e.Power,
		"model", e.Model, "anim", e.Anim, "ctrl", e.Ctrl,
		"params", fmt.Sprintf("%d,%d,%d,%d", e.ScaleQ, e.OffXQ, e.OffYQ, e.OffZQ),
	)
	return *e, true, nil
}

// Unwatch stops watching every cuboid in dim containing pos and returns how
// many were removed.
func (r *Registry) Unwatch(dim string, pos world.BlockPos) int {
	ds, ok := r.dims[dim]
	if !ok {
		return 0
	}
	removed := 0
	for key, e := range ds.watched {
		if !e.Cuboid.Contains(pos) {
			continue
		}
		delete(ds.watched, key)
		removed++
		if r.persist != nil {
			r.persist.WatchRemoved(e.Cuboid)
		}
	}
	return removed
}

// EntryAt returns the watched entry containing pos.
func (r *Registry) EntryAt(dim string, pos world.BlockPos) (Entry, bool) {
	e := r.entryAt(dim, pos)
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

func (r *Registry) entryAt(dim string, pos world.BlockPos) *Entry {
	ds, ok := r.dims[dim]
	if !ok {
		return nil
	}
	for _, key := range sortedKeys(ds) {
		if e := ds.watched[key]; e.Cuboid.Contains(pos) {
			return e
		}
	}
	return nil
}

// Codes returns the last broadcast codes of the entry containing pos.
func (r *Registry) Codes(dim string, pos world.BlockPos) (bus.Codes, bool) {
	e := r.entryAt(dim, pos)
	if e == nil {
		return bus.Codes{}, false
	}
	return e.Codes, true
}

// SetCodes overrides the codes of the entry containing pos and broadcasts
// immediately. Values are clamped to their wire ranges. The override holds
// until the redstone on the bus changes.
func (r *Registry) SetCodes(dim string, pos world.BlockPos, codes bus.Codes) (Entry, bool) {
	e := r.entryAt(dim, pos)
	if e == nil {
		return Entry{}, false
	}
	codes = codes.Clamp()
	busAt := e.Codes
	if e.pin != nil {
		busAt = e.pin.busAt
	}
	e.pin = &pin{codes: codes, busAt: busAt}
	e.Codes = codes
	ds := r.dims[dim]
	ds.tick++
	r.send(e, ds.tick)
	return *e, true
}

// Entries returns every watched entry of dim ordered by bounds key.
func (r *Registry) Entries(dim string) []Entry {
	ds, ok := r.dims[dim]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(ds.watched))
	for _, key := range sortedKeys(ds) {
		out = append(out, *ds.watched[key])
	}
	return out
}

// TickCount returns the logical tick of dim.
func (r *Registry) TickCount(dim string) int64 {
	if ds, ok := r.dims[dim]; ok {
		return ds.tick
	}
	return 0
}

// BlockChanged drops cached cuboids at or touching pos so the next lookup
// re-detects them.
func (r *Registry) BlockChanged(dim string, pos world.BlockPos) {
	r.index.InvalidateNear(dim, pos)
}

func (r *Registry) send(e *Entry, tick int64) {
	r.out.BroadcastBusUpdate(payload.NewBusUpdate(e.Cuboid, e.Codes, e.Params, tick))
}

func sortedKeys(ds *dimState) []string {
	keys := make([]string, 0, len(ds.watched))
	for k := range ds.watched {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func floor(v float64) int {
	i := int(v)
	if v < float64(i) {
		i--
	}
	return i
}
