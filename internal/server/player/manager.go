package player

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"github.com/go-theft-craft/hologram/internal/hologram/watch"
	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

// Manager tracks all connected players and handles entity visibility.
type Manager struct {
	mu           sync.RWMutex
	players      map[int32]*Player // entityID → Player
	nextEntityID atomic.Int32
	viewDistance int
}

// NewManager creates a new player manager with the given view distance (in chunks).
func NewManager(viewDistance int) *Manager {
	return &Manager{
		players:      make(map[int32]*Player),
		viewDistance: viewDistance,
	}
}

// AllocateEntityID returns the next unique entity ID.
func (m *Manager) AllocateEntityID() int32 {
	return m.nextEntityID.Inc()
}

// Add registers a player and exchanges tab-list entries and spawn packets
// with everyone in range.
func (m *Manager) Add(p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.players[p.EntityID] = p

	info := buildPlayerListAdd(p)
	_ = p.WritePacket(&packet.PlayerListItem{Data: info})

	cx, cz := p.ChunkX(), p.ChunkZ()
	for _, other := range m.players {
		if other.EntityID == p.EntityID {
			continue
		}
		_ = p.WritePacket(&packet.PlayerListItem{Data: buildPlayerListAdd(other)})
		_ = other.WritePacket(&packet.PlayerListItem{Data: info})

		if InViewDistance(cx, cz, other.ChunkX(), other.ChunkZ(), m.viewDistance) {
			spawnPlayerFor(other, p)
			spawnPlayerFor(p, other)
		}
	}
}

// Remove unregisters a player and cleans up tracking and the tab list for
// everyone else.
func (m *Manager) Remove(p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.players, p.EntityID)

	removeInfo := buildPlayerListRemove(p)
	destroy := buildDestroyEntities(p.EntityID)
	for _, other := range m.players {
		_ = other.WritePacket(&packet.PlayerListItem{Data: removeInfo})
		if other.IsTracking(p.EntityID) {
			_ = other.WritePacket(&packet.DestroyEntities{Data: destroy})
			other.Untrack(p.EntityID)
		}
	}
}

// Broadcast sends a packet to all connected players.
func (m *Manager) Broadcast(p protocol.Packet) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pl := range m.players {
		_ = pl.WritePacket(p)
	}
}

// BroadcastExcept sends a packet to all players except the one with excludeEntityID.
func (m *Manager) BroadcastExcept(p protocol.Packet, excludeEntityID int32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pl := range m.players {
		if pl.EntityID != excludeEntityID {
			_ = pl.WritePacket(p)
		}
	}
}

// BroadcastToTrackers sends a packet to all players tracking the given entity.
func (m *Manager) BroadcastToTrackers(p protocol.Packet, entityID int32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pl := range m.players {
		if pl.EntityID != entityID && pl.IsTracking(entityID) {
			_ = pl.WritePacket(p)
		}
	}
}

// UpdateTracking spawns or destroys moved for every player whose view
// distance it entered or left.
func (m *Manager) UpdateTracking(moved *Player) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cx, cz := moved.ChunkX(), moved.ChunkZ()
	for _, other := range m.players {
		if other.EntityID == moved.EntityID {
			continue
		}

		inRange := InViewDistance(cx, cz, other.ChunkX(), other.ChunkZ(), m.viewDistance)
		otherTracksMoved := other.IsTracking(moved.EntityID)
		movedTracksOther := moved.IsTracking(other.EntityID)

		switch {
		case inRange && !otherTracksMoved:
			spawnPlayerFor(other, moved)
			if !movedTracksOther {
				spawnPlayerFor(moved, other)
			}
		case !inRange && otherTracksMoved:
			_ = other.WritePacket(&packet.DestroyEntities{Data: buildDestroyEntities(moved.EntityID)})
			other.Untrack(moved.EntityID)
			if movedTracksOther {
				_ = moved.WritePacket(&packet.DestroyEntities{Data: buildDestroyEntities(other.EntityID)})
				moved.Untrack(other.EntityID)
			}
		}
	}
}

// PlayerCount returns the number of connected players.
func (m *Manager) PlayerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.players)
}

// GetByEntityID returns the player with the given entity ID, or nil.
func (m *Manager) GetByEntityID(entityID int32) *Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.players[entityID]
}

// GetByName returns the player with the given username (case-insensitive), or nil.
func (m *Manager) GetByName(name string) *Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		if strings.EqualFold(p.Username, name) {
			return p
		}
	}
	return nil
}

// ForEach calls fn for every connected player under a read lock.
func (m *Manager) ForEach(fn func(*Player)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.players {
		fn(p)
	}
}

// Viewers snapshots the eye and look of every player.
func (m *Manager) Viewers() []watch.Viewer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]watch.Viewer, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, p.Viewer())
	}
	return out
}

// spawnPlayerFor sends the packets that make target visible to viewer.
func spawnPlayerFor(viewer, target *Player) {
	pos := target.GetPosition()

	_ = viewer.WritePacket(&packet.SpawnPlayer{Data: buildSpawnPlayer(target, pos)})
	_ = viewer.WritePacket(&packet.EntityHeadLook{
		EntityID: target.EntityID,
		HeadYaw:  DegreesToAngle(pos.Yaw),
	})
	viewer.Track(target.EntityID)
}

// TeleportPacket returns the absolute position update for p.
func TeleportPacket(p *Player) *packet.EntityTeleport {
	pos := p.GetPosition()
	return &packet.EntityTeleport{
		EntityID: p.EntityID,
		X:        FixedPoint(pos.X),
		Y:        FixedPoint(pos.Y),
		Z:        FixedPoint(pos.Z),
		Yaw:      DegreesToAngle(pos.Yaw),
		Pitch:    DegreesToAngle(pos.Pitch),
		OnGround: pos.OnGround,
	}
}

func buildSpawnPlayer(p *Player, pos Position) []byte {
	var buf bytes.Buffer

	_, _ = protocol.WriteVarInt(&buf, p.EntityID)
	buf.Write(p.UUID[:])
	_ = binary.Write(&buf, binary.BigEndian, FixedPoint(pos.X))
	_ = binary.Write(&buf, binary.BigEndian, FixedPoint(pos.Y))
	_ = binary.Write(&buf, binary.BigEndian, FixedPoint(pos.Z))
	buf.WriteByte(byte(DegreesToAngle(pos.Yaw)))
	buf.WriteByte(byte(DegreesToAngle(pos.Pitch)))
	_ = binary.Write(&buf, binary.BigEndian, int16(0)) // empty hand

	// Metadata: entity flags byte at index 0, then the terminator.
	buf.WriteByte(0x00)
	buf.WriteByte(0x00)
	buf.WriteByte(0x7F)
	return buf.Bytes()
}

func buildPlayerListAdd(p *Player) []byte {
	var buf bytes.Buffer

	_, _ = protocol.WriteVarInt(&buf, 0) // action: add player
	_, _ = protocol.WriteVarInt(&buf, 1)
	buf.Write(p.UUID[:])
	_, _ = protocol.WriteString(&buf, p.Username)
	_, _ = protocol.WriteVarInt(&buf, 0) // no properties
	_, _ = protocol.WriteVarInt(&buf, int32(packet.GameModeCreative))
	_, _ = protocol.WriteVarInt(&buf, 0) // ping
	buf.WriteByte(0)                     // no display name
	return buf.Bytes()
}

func buildPlayerListRemove(p *Player) []byte {
	var buf bytes.Buffer

	_, _ = protocol.WriteVarInt(&buf, 4) // action: remove player
	_, _ = protocol.WriteVarInt(&buf, 1)
	buf.Write(p.UUID[:])
	return buf.Bytes()
}

func buildDestroyEntities(ids ...int32) []byte {
	var buf bytes.Buffer

	_, _ = protocol.WriteVarInt(&buf, int32(len(ids)))
	for _, id := range ids {
		_, _ = protocol.WriteVarInt(&buf, id)
	}
	return buf.Bytes()
}

// InViewDistance reports whether two chunks are within viewDist of each
// other along both axes.
func InViewDistance(cx1, cz1, cx2, cz2, viewDist int) bool {
	return abs(cx1-cx2) <= viewDist && abs(cz1-cz2) <= viewDist
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// DegreesToAngle converts degrees to a protocol angle byte, 1/256 of a turn.
func DegreesToAngle(degrees float32) int8 {
	return int8(math.Floor(float64(degrees) / 360.0 * 256.0))
}

// FixedPoint converts a coordinate to the 5-bit fixed point entity packets use.
func FixedPoint(coord float64) int32 {
	return int32(math.Floor(coord * 32.0))
}
