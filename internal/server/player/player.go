package player

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/go-theft-craft/hologram/internal/hologram/watch"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

// EyeHeight is the distance from the feet to the eyes of a standing player.
const EyeHeight = 1.62

// Permission levels.
const (
	LevelPlayer   = 0
	LevelOperator = 2
)

// Position holds a player's world position and orientation.
type Position struct {
	X, Y, Z    float64
	Yaw, Pitch float32
	OnGround   bool
}

// Eye returns the eye position.
func (p Position) Eye() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y + EyeHeight, p.Z}
}

// Look returns the unit look direction.
func (p Position) Look() mgl64.Vec3 {
	return world.LookVector(p.Yaw, p.Pitch)
}

// Player represents a connected player.
type Player struct {
	mu       sync.RWMutex
	EntityID int32
	UUID     uuid.UUID
	Username string

	pos   Position
	level int

	WritePacket    func(protocol.Packet) error
	trackedPlayers map[int32]struct{}
}

// NewPlayer creates a new Player at the given spawn position.
func NewPlayer(entityID int32, id uuid.UUID, username string, spawn Position, writePacket func(protocol.Packet) error) *Player {
	return &Player{
		EntityID:       entityID,
		UUID:           id,
		Username:       username,
		pos:            spawn,
		WritePacket:    writePacket,
		trackedPlayers: make(map[int32]struct{}),
	}
}

// GetPosition returns a copy of the player's current position.
func (p *Player) GetPosition() Position {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pos
}

// SetPosition updates the player's position and orientation.
func (p *Player) SetPosition(x, y, z float64, yaw, pitch float32, onGround bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = Position{X: x, Y: y, Z: z, Yaw: yaw, Pitch: pitch, OnGround: onGround}
}

// MoveTo updates only the player's coordinates.
func (p *Player) MoveTo(x, y, z float64, onGround bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos.X, p.pos.Y, p.pos.Z = x, y, z
	p.pos.OnGround = onGround
}

// UpdateLook updates only the player's look direction.
func (p *Player) UpdateLook(yaw, pitch float32, onGround bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos.Yaw = yaw
	p.pos.Pitch = pitch
	p.pos.OnGround = onGround
}

// Viewer returns the feet, eye and look snapshot used by projector discovery.
func (p *Player) Viewer() watch.Viewer {
	pos := p.GetPosition()
	return watch.Viewer{Feet: mgl64.Vec3{pos.X, pos.Y, pos.Z}, Eye: pos.Eye(), Look: pos.Look()}
}

// PermissionLevel returns the player's command permission level.
func (p *Player) PermissionLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.level
}

// SetPermissionLevel changes the player's command permission level.
func (p *Player) SetPermissionLevel(level int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

// ChunkX returns the chunk X coordinate for the player's current position.
func (p *Player) ChunkX() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(math.Floor(p.pos.X)) >> 4
}

// ChunkZ returns the chunk Z coordinate for the player's current position.
func (p *Player) ChunkZ() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(math.Floor(p.pos.Z)) >> 4
}

// IsTracking returns whether this player is tracking the given entity.
func (p *Player) IsTracking(entityID int32) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.trackedPlayers[entityID]
	return ok
}

// Track marks an entity as tracked by this player.
func (p *Player) Track(entityID int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trackedPlayers[entityID] = struct{}{}
}

// Untrack removes an entity from this player's tracking set.
func (p *Player) Untrack(entityID int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.trackedPlayers, entityID)
}
