package watch

import (
	"errors"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Tick advances the logical clock of w's dimension by one, runs whichever
// discovery scans and revalidation are due, then re-samples every watched
// cuboid and broadcasts the ones whose state changed.
func (r *Registry) Tick(w World, viewers []Viewer) {
	dim := w.Dimension()
	ds := r.dim(dim)
	ds.tick++
	t := ds.tick

	if r.cfg.Gaze.Due(t) {
		for _, v := range viewers {
			r.gaze(w, v)
		}
	}
	if r.cfg.PoweredNear.Due(t) {
		for _, v := range viewers {
			r.scanNear(w, v, 1, true)
		}
	}
	if r.cfg.AnyNear.Due(t) {
		for _, v := range viewers {
			r.scanNear(w, v, r.cfg.AnyScanStep, false)
		}
	}
	if r.cfg.Revalidate.Due(t) {
		r.revalidate(w, ds)
	}

	for _, key := range sortedKeys(ds) {
		r.resample(w, ds.watched[key], t)
	}
}

func (r *Registry) gaze(w World, v Viewer) {
	pos, ok := w.Raycast(v.Eye, v.Look, r.cfg.GazeDistance)
	if !ok || !r.index.Detector().IsTarget(w.BlockAt(pos)) {
		return
	}
	r.discover(w, pos)
}

// scanNear watches the first projector block found in the box around the
// viewer. With powered set only blocks receiving a signal qualify.
func (r *Registry) scanNear(w World, v Viewer, step int, powered bool) {
	det := r.index.Detector()
	c := v.BlockPos()
	rxz, ry := r.cfg.ScanRadiusXZ, r.cfg.ScanRadiusY
	for dx := -rxz; dx <= rxz; dx += step {
		for dy := -ry; dy <= ry; dy += step {
			for dz := -rxz; dz <= rxz; dz += step {
				pos := c.Offset(dx, dy, dz)
				if !det.IsTarget(w.BlockAt(pos)) {
					continue
				}
				if powered && w.ReceivedPower(pos) == 0 {
					continue
				}
				r.discover(w, pos)
				return
			}
		}
	}
}

func (r *Registry) discover(w World, pos world.BlockPos) {
	if r.entryAt(w.Dimension(), pos) != nil {
		return
	}
	if _, _, err := r.Watch(w, pos); err != nil {
		r.log.Debug("discovery skipped", "pos", pos, "error", err)
	}
}

// revalidate re-detects every watched cuboid from its min corner. Entries
// whose structure is gone are kept; entries whose bounds changed are moved
// to the new key and forced to rebroadcast.
func (r *Registry) revalidate(w World, ds *dimState) {
	dim := w.Dimension()
	for _, key := range sortedKeys(ds) {
		e := ds.watched[key]
		r.index.InvalidateAt(dim, e.Cuboid.Min)
		c, err := r.index.GetOrDetect(w, dim, e.Cuboid.Min)
		if err != nil {
			if !errors.Is(err, structure.ErrNotFound) {
				r.log.Debug("revalidate failed", "cuboid", e.Cuboid.String(), "error", err)
			}
			continue
		}
		if c.Key() == key {
			continue
		}

		old := e.Cuboid
		delete(ds.watched, key)
		if r.persist != nil {
			r.persist.WatchRemoved(old)
		}
		if _, dup := ds.watched[c.Key()]; dup {
			r.log.Debug("projector merged", "from", old.String(), "into", c.String())
			continue
		}
		e.Cuboid = c
		e.pin = nil
		e.Model = -1
		ds.watched[c.Key()] = e
		if r.persist != nil {
			r.persist.WatchAdded(c)
		}
		r.log.Debug("projector bounds changed", "from", old.String(), "to", c.String())
	}
}

func (r *Registry) resample(w World, e *Entry, tick int64) {
	s := bus.Read(w, e.Cuboid)
	codes := s.Codes
	if e.pin != nil {
		if s.Codes == e.pin.busAt {
			codes = e.pin.codes
		} else {
			e.pin = nil
		}
	}

	e.Power = s.Power
	if codes == e.Codes && s.Params == e.Params {
		return
	}
	e.Codes = codes
	e.Params = s.Params
	r.send(e, tick)
}
