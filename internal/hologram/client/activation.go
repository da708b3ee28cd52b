// Package client is the receiving end of the projector sync stream: it keeps
// the latest state per projector, resolves model assets by code and plans
// one render per active hologram each frame.
package client

import (
	"slices"
	"strings"
	"sync"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"go.uber.org/atomic"
)

// State is the applied state of one projector.
type State struct {
	bus.Codes
	bus.Params
	Tick int64
}

// Active pairs a projector key with its state.
type Active struct {
	Key payload.Key
	State
}

// ActivationRegistry holds the newest state per projector. Apply may be
// called from the network goroutine while the render loop reads.
type ActivationRegistry struct {
	states sync.Map // payload.Key -> *State
	size   atomic.Int64
}

// NewActivationRegistry returns an empty registry.
func NewActivationRegistry() *ActivationRegistry {
	return &ActivationRegistry{}
}

// Apply stores u unless a newer update for the same projector has already
// been applied. Equal ticks overwrite. It reports whether u was stored.
func (r *ActivationRegistry) Apply(u payload.BusUpdate) bool {
	key := u.Key()
	next := &State{Codes: u.Codes(), Params: u.Params(), Tick: u.Tick}
	for {
		cur, loaded := r.states.LoadOrStore(key, next)
		if !loaded {
			r.size.Inc()
			return true
		}
		if next.Tick < cur.(*State).Tick {
			return false
		}
		if r.states.CompareAndSwap(key, cur, next) {
			return true
		}
	}
}

// Get returns the state applied for key.
func (r *ActivationRegistry) Get(key payload.Key) (State, bool) {
	v, ok := r.states.Load(key)
	if !ok {
		return State{}, false
	}
	return *v.(*State), true
}

// Forget drops key, for example when the client leaves the server.
func (r *ActivationRegistry) Forget(key payload.Key) {
	if _, ok := r.states.LoadAndDelete(key); ok {
		r.size.Dec()
	}
}

// Len returns the number of known projectors.
func (r *ActivationRegistry) Len() int { return int(r.size.Load()) }

// Snapshot returns every projector ordered by key.
func (r *ActivationRegistry) Snapshot() []Active {
	var out []Active
	r.states.Range(func(k, v any) bool {
		out = append(out, Active{Key: k.(payload.Key), State: *v.(*State)})
		return true
	})
	slices.SortFunc(out, func(a, b Active) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return out
}
