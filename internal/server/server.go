package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/hologram/watch"
	"github.com/go-theft-craft/hologram/internal/server/config"
	"github.com/go-theft-craft/hologram/internal/server/conn"
	"github.com/go-theft-craft/hologram/internal/server/holo"
	"github.com/go-theft-craft/hologram/internal/server/player"
	"github.com/go-theft-craft/hologram/internal/server/storage"
	"github.com/go-theft-craft/hologram/internal/server/storage/auditlog"
	"github.com/go-theft-craft/hologram/internal/server/storage/watchdb"
	"github.com/go-theft-craft/hologram/internal/server/tick"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/internal/server/world/gen"
	"github.com/go-theft-craft/hologram/internal/transport/observer"
)

// autosaveInterval is how often world overrides and signals are flushed.
const autosaveInterval = 5 * time.Minute

// Server is the main Minecraft server that accepts TCP connections.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *storage.Storage
	world   *world.World
	players *player.Manager

	loop  *tick.Loop
	reg   *watch.Registry
	holo  *holo.Service
	out   *fanout
	hub   *observer.Hub
	db    *watchdb.DB
	audit *auditlog.Writer
}

// New builds the world, restores saved state from store and wires the
// projector registry to players, observers and persistence.
func New(cfg *config.Config, log *slog.Logger, store *storage.Storage) (*Server, error) {
	layers := make([]uint16, len(cfg.FlatLayers))
	for i, id := range cfg.FlatLayers {
		layers[i] = uint16(id) << 4
	}
	generator, err := gen.NewFlatGenerator(layers)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	w := world.NewWorld(world.Overworld, generator)
	if err := store.LoadWorld(w); err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}

	db, err := watchdb.Open(store.Path("world", "watched.db"), log.With("component", "watchdb"))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		store:   store,
		world:   w,
		players: player.NewManager(cfg.ViewDistance),
		db:      db,
	}
	if cfg.Hologram.AuditLog {
		s.audit = auditlog.NewWriter(store.Path("audit"), "broadcasts")
	}

	s.out = &fanout{players: s.players, audit: s.audit, log: log}
	detector := structure.NewDetector(cfg.Hologram.ProjectorBlock, cfg.Hologram.Ceiling)
	s.reg = watch.NewRegistry(cfg.Hologram.Config, structure.NewIndex(detector), s.out, db, log.With("component", "watch"))
	s.loop = tick.NewLoop(tick.DefaultRate, func(int64) {
		s.reg.Tick(s.world, s.players.Viewers())
	})
	s.holo = holo.New(w, s.reg, s.loop, log)

	if cfg.Observer.Addr != "" {
		s.hub = observer.NewHub(s.holo, log.With("component", "observer"))
		s.out.hub = s.hub
	}
	return s, nil
}

// Start runs the listener, the tick loop and the observer feed, and blocks
// until the context is cancelled or one of them fails.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer listener.Close()
	defer s.close()

	s.log.Info("server started",
		"port", s.cfg.Port,
		"motd", s.cfg.MOTD,
		"projectorBlock", s.cfg.Hologram.ProjectorBlock,
		"observer", s.cfg.Observer.Addr,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tick loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.restoreWatches(ctx)
	})

	if s.hub != nil {
		g.Go(func() error {
			return s.hub.Serve(ctx, s.cfg.Observer.Addr)
		})
	}

	g.Go(func() error {
		t := time.NewTicker(autosaveInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				if err := s.SaveAll(); err != nil {
					s.log.Error("autosave", "error", err)
				}
			}
		}
	})

	// Close listener when context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	g.Go(func() error {
		for {
			c, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					s.log.Info("server shutting down")
					return nil
				}
				s.log.Error("accept connection", "error", err)
				continue
			}

			connection := conn.NewConnection(ctx, c, s.cfg, s.log, s.holo, s.players, s.store)
			connection.SaveAll = s.SaveAll
			go connection.Handle()
		}
	})

	return g.Wait()
}

// restoreWatches re-detects the projectors watched before the last
// shutdown. Seeds whose structure is gone are skipped.
func (s *Server) restoreWatches(ctx context.Context) error {
	seeds, err := s.db.Seeds(ctx, s.world.Dimension())
	if err != nil {
		return fmt.Errorf("load watched seeds: %w", err)
	}
	if len(seeds) == 0 {
		return nil
	}
	n, err := s.holo.Restore(ctx, seeds)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("restore watches: %w", err)
	}
	s.log.Info("restored watched projectors", "count", n, "saved", len(seeds))
	return nil
}

// SaveAll writes world overrides and signals to disk.
func (s *Server) SaveAll() error {
	if err := s.store.SaveWorld(s.world); err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	return nil
}

func (s *Server) close() {
	if err := s.SaveAll(); err != nil {
		s.log.Error("final save", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.log.Error("close watch db", "error", err)
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			s.log.Error("close audit log", "error", err)
		}
	}
}

// fanout delivers each projector update to in-game players, the observer
// feed and the audit log. It runs on the tick goroutine.
type fanout struct {
	players *player.Manager
	hub     *observer.Hub
	audit   *auditlog.Writer
	log     *slog.Logger
}

func (f *fanout) BroadcastBusUpdate(u payload.BusUpdate) {
	msg, err := u.Message()
	if err != nil {
		f.log.Error("encode bus update", "error", err)
		return
	}
	f.players.Broadcast(msg)
	if f.hub != nil {
		f.hub.BroadcastBusUpdate(u)
	}
	if f.audit != nil {
		if err := f.audit.Record(u); err != nil {
			f.log.Warn("audit bus update", "error", err)
		}
	}
}
