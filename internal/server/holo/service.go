// Package holo exposes the projector registry to goroutines other than the
// tick loop. Every call is executed on the loop and waits for the result.
package holo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/hologram/watch"
	"github.com/go-theft-craft/hologram/internal/server/tick"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// ErrNotProjector is returned when a position does not hold the projector
// block.
var ErrNotProjector = errors.New("not a projector block")

// Service serializes projector operations onto the tick loop.
type Service struct {
	world *world.World
	reg   *watch.Registry
	loop  *tick.Loop
	log   *slog.Logger
}

// New returns a Service for the registry owned by loop.
func New(w *world.World, reg *watch.Registry, loop *tick.Loop, log *slog.Logger) *Service {
	return &Service{world: w, reg: reg, loop: loop, log: log}
}

// World returns the world the service operates on.
func (s *Service) World() *world.World { return s.world }

// IsProjector reports whether pos holds the projector block.
func (s *Service) IsProjector(pos world.BlockPos) bool {
	return s.reg.Index().Detector().IsTarget(s.world.BlockAt(pos))
}

// Ceiling returns the largest cuboid size per axis.
func (s *Service) Ceiling() int { return s.reg.Index().Detector().Ceiling }

// Detect resolves the cuboid containing seed.
func (s *Service) Detect(ctx context.Context, seed world.BlockPos) (structure.Cuboid, error) {
	var (
		c   structure.Cuboid
		err error
	)
	if doErr := s.loop.Do(ctx, func() {
		c, err = s.reg.Index().GetOrDetect(s.world, s.world.Dimension(), seed)
	}); doErr != nil {
		return structure.Cuboid{}, doErr
	}
	return c, err
}

// Watch starts watching the cuboid containing seed. created is false when
// it was already watched.
func (s *Service) Watch(ctx context.Context, seed world.BlockPos) (e watch.Entry, created bool, err error) {
	if doErr := s.loop.Do(ctx, func() {
		e, created, err = s.reg.Watch(s.world, seed)
	}); doErr != nil {
		return watch.Entry{}, false, doErr
	}
	return e, created, err
}

// RequestWatch handles a client watch request. Seeds that are not the
// projector block are refused without touching the index.
func (s *Service) RequestWatch(ctx context.Context, req payload.WatchRequest) error {
	seed := req.SeedPos()
	if !s.IsProjector(seed) {
		return fmt.Errorf("watch request at %v: %w", seed, ErrNotProjector)
	}
	_, created, err := s.Watch(ctx, seed)
	if err != nil {
		return err
	}
	if created {
		s.log.Debug("watch requested by client", "seed", seed)
	}
	return nil
}

// Unwatch stops watching every cuboid containing pos.
func (s *Service) Unwatch(ctx context.Context, pos world.BlockPos) (int, error) {
	var n int
	err := s.loop.Do(ctx, func() { n = s.reg.Unwatch(s.world.Dimension(), pos) })
	return n, err
}

// Codes returns the last broadcast codes of the watched cuboid containing pos.
func (s *Service) Codes(ctx context.Context, pos world.BlockPos) (codes bus.Codes, ok bool, err error) {
	err = s.loop.Do(ctx, func() { codes, ok = s.reg.Codes(s.world.Dimension(), pos) })
	return codes, ok, err
}

// SetCodes overrides the codes of the watched cuboid containing pos.
func (s *Service) SetCodes(ctx context.Context, pos world.BlockPos, codes bus.Codes) (e watch.Entry, ok bool, err error) {
	err = s.loop.Do(ctx, func() { e, ok = s.reg.SetCodes(s.world.Dimension(), pos, codes) })
	return e, ok, err
}

// Entries returns every watched entry ordered by bounds.
func (s *Service) Entries(ctx context.Context) ([]watch.Entry, error) {
	var out []watch.Entry
	err := s.loop.Do(ctx, func() { out = s.reg.Entries(s.world.Dimension()) })
	return out, err
}

// Snapshot returns the current update for every watched cuboid stamped
// with the dimension's current tick.
func (s *Service) Snapshot(ctx context.Context) ([]payload.BusUpdate, error) {
	var out []payload.BusUpdate
	err := s.loop.Do(ctx, func() {
		dim := s.world.Dimension()
		now := s.reg.TickCount(dim)
		for _, e := range s.reg.Entries(dim) {
			out = append(out, payload.NewBusUpdate(e.Cuboid, e.Codes, e.Params, now))
		}
	})
	return out, err
}

// SetBlock changes a block and drops cached cuboids touching it. It
// returns the previous state.
func (s *Service) SetBlock(ctx context.Context, pos world.BlockPos, state int32) (int32, error) {
	var prev int32
	err := s.loop.Do(ctx, func() {
		prev = s.world.SetBlock(pos.X, pos.Y, pos.Z, state)
		s.reg.BlockChanged(s.world.Dimension(), pos)
	})
	return prev, err
}

// SetSignal places an analog redstone source at pos. Zero clears it.
func (s *Service) SetSignal(ctx context.Context, pos world.BlockPos, strength int) error {
	return s.loop.Do(ctx, func() { s.world.SetSignal(pos, strength) })
}

// Restore watches every seed that still resolves to a cuboid and returns
// how many did.
func (s *Service) Restore(ctx context.Context, seeds []world.BlockPos) (int, error) {
	restored := 0
	for _, seed := range seeds {
		_, _, err := s.Watch(ctx, seed)
		switch {
		case err == nil:
			restored++
		case errors.Is(err, structure.ErrNotFound):
			s.log.Info("saved projector no longer present", "seed", seed)
		case ctx.Err() != nil:
			return restored, ctx.Err()
		default:
			s.log.Warn("restore projector", "seed", seed, "error", err)
		}
	}
	return restored, nil
}
