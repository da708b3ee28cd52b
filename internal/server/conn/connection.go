// Package conn runs one client connection through the handshake, status,
// login and play states.
package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/go-theft-craft/hologram/internal/server/config"
	"github.com/go-theft-craft/hologram/internal/server/holo"
	"github.com/go-theft-craft/hologram/internal/server/player"
	"github.com/go-theft-craft/hologram/internal/server/storage"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/internal/server/world/gen"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

// State represents the connection state.
type State int

const (
	StateHandshake State = iota
	StateStatus
	StateLogin
	StatePlay
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StatePlay:
		return "play"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Connection manages a single client connection through the protocol state machine.
type Connection struct {
	conn   net.Conn
	rw     io.ReadWriter
	cfg    *config.Config
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	world  *world.World
	holo   *holo.Service
	store  *storage.Storage

	// SaveAll persists the world. It is set by the server and may be nil.
	SaveAll func() error

	mu    sync.Mutex
	state State

	players *player.Manager
	self    *player.Player

	// Only accessed from the Handle goroutine.
	loadedChunks map[gen.ChunkPos]struct{}

	lastKeepAliveID   int32
	lastKeepAliveSent time.Time
	keepAliveAcked    bool
}

// NewConnection creates a new Connection from a raw TCP connection. store
// may be nil, in which case player positions are not persisted.
func NewConnection(ctx context.Context, conn net.Conn, cfg *config.Config, log *slog.Logger, hs *holo.Service, players *player.Manager, store *storage.Storage) *Connection {
	ctx, cancel := context.WithCancel(ctx)
	return &Connection{
		conn:           conn,
		rw:             conn,
		cfg:            cfg,
		log:            log.With("addr", conn.RemoteAddr().String()),
		ctx:            ctx,
		cancel:         cancel,
		state:          StateHandshake,
		world:          hs.World(),
		holo:           hs,
		store:          store,
		players:        players,
		loadedChunks:   make(map[gen.ChunkPos]struct{}),
		keepAliveAcked: true,
	}
}

// Handle runs the connection lifecycle. It reads packets and dispatches
// them to the appropriate state handler until the connection closes.
func (c *Connection) Handle() {
	defer func() {
		if c.self != nil {
			c.players.Remove(c.self)
			c.savePlayer()
		}
		c.cancel()
		c.conn.Close()
		c.log.Info("connection closed")
	}()

	c.log.Debug("connection accepted")

	go func() {
		<-c.ctx.Done()
		c.conn.Close()
	}()

	for {
		if err := c.handleNextPacket(); err != nil {
			if c.ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			c.log.Error("handling packet", "state", c.state, "error", err)
			return
		}
	}
}

func (c *Connection) handleNextPacket() error {
	packetID, data, err := protocol.ReadRawPacket(c.rw)
	if err != nil {
		return err
	}

	switch c.state {
	case StateHandshake:
		return c.handleHandshake(packetID, data)
	case StateStatus:
		return c.handleStatus(packetID, data)
	case StateLogin:
		return c.handleLogin(packetID, data)
	case StatePlay:
		return c.handlePlay(packetID, data)
	default:
		return fmt.Errorf("unknown state: %d", c.state)
	}
}

// writePacket writes a packet to the connection under the write lock.
func (c *Connection) writePacket(p protocol.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.WritePacket(c.rw, p)
}

// disconnect ends the connection after the current packet.
func (c *Connection) disconnect(reason string) {
	c.log.Info("disconnecting", "reason", reason)
	c.cancel()
}

func (c *Connection) savePlayer() {
	if c.store == nil {
		return
	}
	pos := c.self.GetPosition()
	err := c.store.SavePlayer(&storage.PlayerData{
		UUID:     c.self.UUID.String(),
		Username: c.self.Username,
		Position: storage.PositionData{X: pos.X, Y: pos.Y, Z: pos.Z, Yaw: pos.Yaw, Pitch: pos.Pitch},
	})
	if err != nil {
		c.log.Error("save player", "error", err)
	}
}
