package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 20 * time.Second
	outboxSize   = 64
)

// Backend answers observer requests. Both methods are called from
// connection goroutines.
type Backend interface {
	// Snapshot returns the current state of every watched projector.
	Snapshot(ctx context.Context) ([]payload.BusUpdate, error)
	// RequestWatch asks the server to watch the projector containing the seed.
	RequestWatch(ctx context.Context, req payload.WatchRequest) error
}

type session struct {
	id  uuid.UUID
	out chan []byte
}

// Hub fans broadcasts out to every connected observer.
type Hub struct {
	backend  Backend
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[uuid.UUID]*session

	dropped atomic.Int64
}

// NewHub returns a hub answering through backend.
func NewHub(backend Backend, log *slog.Logger) *Hub {
	return &Hub{
		backend: backend,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[uuid.UUID]*session),
	}
}

// Len returns the number of connected observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Dropped returns how many frames were discarded for slow observers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// BroadcastBusUpdate sends u to every observer without blocking. A full
// outbox drops its oldest frame.
func (h *Hub) BroadcastBusUpdate(u payload.BusUpdate) {
	b, err := Encode(Frame{Type: TypeUpdate, Update: &u})
	if err != nil {
		h.log.Error("encode observer update", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		if !sendLatest(s.out, b) {
			h.dropped.Inc()
		}
	}
}

// sendLatest queues b, evicting the oldest frame when full. It reports
// whether nothing was evicted.
func sendLatest(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return true
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return false
}

// ServeHTTP upgrades the request and serves one observer until it leaves.
func (h *Hub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		h.log.Debug("observer upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s := &session{id: uuid.New(), out: make(chan []byte, outboxSize)}
	log := h.log.With("observer", s.id.String(), "addr", r.RemoteAddr)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Register before the snapshot so updates broadcast while it is taken
	// queue behind it. Older duplicates are dropped by the receiver's tick
	// gating.
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, s.id)
		h.mu.Unlock()
	}()

	if err := h.greet(ctx, conn, s); err != nil {
		log.Debug("observer greeting failed", "error", err)
		return
	}
	log.Info("observer connected")

	go h.writeLoop(ctx, cancel, conn, s)
	h.readLoop(ctx, conn, log)
	log.Info("observer disconnected")
}

func (h *Hub) greet(ctx context.Context, conn *websocket.Conn, s *session) error {
	if err := writeFrame(conn, Frame{Type: TypeHello, Session: s.id.String()}); err != nil {
		return err
	}
	updates, err := h.backend.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	for i := range updates {
		if err := writeFrame(conn, Frame{Type: TypeUpdate, Update: &updates[i]}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, s *session) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-s.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				cancel()
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, log *slog.Logger) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := Decode(msg)
		if err != nil {
			log.Debug("bad observer frame", "error", err)
			continue
		}
		if f.Type != TypeWatch || f.Watch == nil {
			continue
		}
		if err := h.backend.RequestWatch(ctx, *f.Watch); err != nil {
			log.Debug("observer watch failed", "seed", f.Watch.SeedPos(), "error", err)
		}
	}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	b, err := Encode(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Type, err)
	}
	return nil
}

// Serve listens on addr and serves the hub until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	h.log.Info("observer feed started", "addr", ln.Addr().String(), "path", Path)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve observer feed: %w", err)
	}
	return nil
}
