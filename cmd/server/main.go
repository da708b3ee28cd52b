package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/go-theft-craft/hologram/internal/server"
	"github.com/go-theft-craft/hologram/internal/server/config"
	"github.com/go-theft-craft/hologram/internal/server/storage"
)

func main() {
	cfg := config.DefaultConfig()

	dataDir := pflag.String("data", "data", "data directory for config, world and player state")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.IntVar(&cfg.Port, "port", cfg.Port, "server port")
	pflag.StringVar(&cfg.MOTD, "motd", cfg.MOTD, "server description")
	pflag.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "maximum concurrent players")
	pflag.IntVar(&cfg.ViewDistance, "view-distance", cfg.ViewDistance, "chunk view distance")
	pflag.IntVar(&cfg.WorldRadius, "world-radius", cfg.WorldRadius, "world boundary in chunks (0 = infinite)")
	pflag.StringVar(&cfg.Observer.Addr, "observer", cfg.Observer.Addr, "listen address of the websocket observer feed (empty disables)")
	pflag.StringSliceVar(&cfg.Operators, "op", cfg.Operators, "operator player names")
	pflag.Int32Var(&cfg.Hologram.ProjectorBlock, "projector-block", cfg.Hologram.ProjectorBlock, "block ID projectors are built from")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	store, err := storage.New(*dataDir, log)
	if err != nil {
		log.Error("open data directory", "error", err)
		os.Exit(1)
	}

	fromFile := config.DefaultConfig()
	found, err := store.LoadConfig(fromFile)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	if found {
		explicit := make(map[string]bool)
		pflag.Visit(func(f *pflag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	} else if err := store.SaveConfig(cfg); err != nil {
		log.Warn("write default config", "error", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(cfg, log, store)
	if err != nil {
		log.Error("create server", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
