package storage

import (
	"cmp"
	"slices"

	"github.com/go-theft-craft/hologram/internal/server/world"
)

// PlayerData is the serializable representation of a player's state.
type PlayerData struct {
	UUID     string       `json:"uuid"`
	Username string       `json:"username"`
	Position PositionData `json:"position"`
	GameMode uint8        `json:"gamemode"`
}

// PositionData holds a player's world position and orientation.
type PositionData struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

// WorldData holds the persisted world edits.
type WorldData struct {
	Overrides []BlockOverride `json:"overrides"`
	Signals   []SignalEntry   `json:"signals"`
}

// BlockOverride is a single block override for JSON serialization.
type BlockOverride struct {
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Z       int   `json:"z"`
	StateID int32 `json:"state_id"`
}

// SignalEntry is one analog redstone source.
type SignalEntry struct {
	X        int `json:"x"`
	Y        int `json:"y"`
	Z        int `json:"z"`
	Strength int `json:"strength"`
}

// WorldDataFromWorld snapshots w in a stable order.
func WorldDataFromWorld(w *world.World) *WorldData {
	wd := &WorldData{}
	w.ForEachOverride(func(pos world.BlockPos, stateID int32) {
		wd.Overrides = append(wd.Overrides, BlockOverride{X: pos.X, Y: pos.Y, Z: pos.Z, StateID: stateID})
	})
	w.ForEachSignal(func(pos world.BlockPos, strength int) {
		wd.Signals = append(wd.Signals, SignalEntry{X: pos.X, Y: pos.Y, Z: pos.Z, Strength: strength})
	})
	slices.SortFunc(wd.Overrides, func(a, b BlockOverride) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y), cmp.Compare(a.Z, b.Z))
	})
	slices.SortFunc(wd.Signals, func(a, b SignalEntry) int {
		return cmp.Or(cmp.Compare(a.X, b.X), cmp.Compare(a.Y, b.Y), cmp.Compare(a.Z, b.Z))
	})
	return wd
}
