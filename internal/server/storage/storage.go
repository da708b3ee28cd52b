// Package storage persists config, world state and player positions under
// the server data directory.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/go-theft-craft/hologram/internal/server/config"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Storage handles file-based persistence for config, world, and player data.
type Storage struct {
	dir string
	log *slog.Logger
}

// New creates a new Storage rooted at dir, creating subdirectories as needed.
func New(dir string, log *slog.Logger) (*Storage, error) {
	dirs := []string{
		dir,
		filepath.Join(dir, "world"),
		filepath.Join(dir, "players"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return &Storage{dir: dir, log: log}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string { return s.dir }

// Path joins elem onto the data directory.
func (s *Storage) Path(elem ...string) string {
	return filepath.Join(append([]string{s.dir}, elem...)...)
}

// LoadConfig reads config.yaml into cfg. If the file does not exist, cfg is
// unchanged and false is returned.
func (s *Storage) LoadConfig(cfg *config.Config) (bool, error) {
	path := s.Path("config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("parse config: %w", err)
	}
	s.log.Info("loaded config from file", "path", path)
	return true, nil
}

// SaveConfig writes cfg to config.yaml atomically.
func (s *Storage) SaveConfig(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return atomicWrite(s.Path("config.yaml"), data)
}

// LoadWorld reads world.json and bulk-loads block overrides and signals.
func (s *Storage) LoadWorld(w *world.World) error {
	path := s.Path("world", "world.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read world: %w", err)
	}

	var wd WorldData
	if err := json.Unmarshal(data, &wd); err != nil {
		return fmt.Errorf("parse world: %w", err)
	}

	overrides := make(map[world.BlockPos]int32, len(wd.Overrides))
	for _, o := range wd.Overrides {
		overrides[world.BlockPos{X: o.X, Y: o.Y, Z: o.Z}] = o.StateID
	}
	signals := make(map[world.BlockPos]int, len(wd.Signals))
	for _, sg := range wd.Signals {
		if sg.Strength > 0 {
			signals[world.BlockPos{X: sg.X, Y: sg.Y, Z: sg.Z}] = min(sg.Strength, world.MaxSignal)
		}
	}

	w.LoadOverrides(overrides)
	w.LoadSignals(signals)
	s.log.Info("loaded world", "overrides", len(overrides), "signals", len(signals))
	return nil
}

// SaveWorld writes all block overrides and signals to world.json atomically.
func (s *Storage) SaveWorld(w *world.World) error {
	wd := WorldDataFromWorld(w)
	return s.atomicWriteJSON(s.Path("world", "world.json"), wd)
}

// LoadPlayer reads players/<uuid>.json and returns the data, or nil if not found.
func (s *Storage) LoadPlayer(uuid string) (*PlayerData, error) {
	path := s.Path("players", uuid+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read player %s: %w", uuid, err)
	}

	var pd PlayerData
	if err := json.Unmarshal(data, &pd); err != nil {
		return nil, fmt.Errorf("parse player %s: %w", uuid, err)
	}
	return &pd, nil
}

// SavePlayer persists a player's position.
func (s *Storage) SavePlayer(pd *PlayerData) error {
	return s.atomicWriteJSON(s.Path("players", pd.UUID+".json"), pd)
}

// atomicWriteJSON marshals v to JSON and writes it atomically.
func (s *Storage) atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return atomicWrite(path, append(data, '\n'))
}

// atomicWrite writes data using a temp file + rename.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
