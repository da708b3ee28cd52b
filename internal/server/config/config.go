// Package config holds the server settings loaded from config.yaml and
// overridden by command-line flags.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-theft-craft/hologram/internal/hologram/watch"
)

// DefaultProjectorBlock is stained glass.
const DefaultProjectorBlock = 95

// Config holds the server configuration.
type Config struct {
	Port         int    `yaml:"port"`
	MOTD         string `yaml:"motd"`
	MaxPlayers   int    `yaml:"max_players"`
	ViewDistance int    `yaml:"view_distance"`
	WorldRadius  int    `yaml:"world_radius"` // world boundary in chunks (0 = infinite)
	FlatLayers   []int  `yaml:"flat_layers"`  // block IDs bottom up; empty selects the default

	// Operators may run privileged commands (permission level 2).
	Operators []string `yaml:"operators"`

	Hologram HologramConfig `yaml:"hologram"`
	Observer ObserverConfig `yaml:"observer"`
}

// HologramConfig configures projector detection and sync.
type HologramConfig struct {
	ProjectorBlock int32 `yaml:"projector_block"`
	Ceiling        int   `yaml:"ceiling"`
	AuditLog       bool  `yaml:"audit_log"`

	watch.Config `yaml:",inline"`
}

// ObserverConfig configures the websocket feed for headless clients.
type ObserverConfig struct {
	Addr string `yaml:"addr"` // empty disables the feed
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:         25565,
		MOTD:         "A Hologram Server",
		MaxPlayers:   20,
		ViewDistance: 8,
		Hologram: HologramConfig{
			ProjectorBlock: DefaultProjectorBlock,
			Ceiling:        64,
			AuditLog:       true,
			Config:         watch.DefaultConfig(),
		},
	}
}

// IsOperator reports whether name is listed as an operator. Names compare
// case-insensitively.
func (c *Config) IsOperator(name string) bool {
	return slices.ContainsFunc(c.Operators, func(op string) bool {
		return strings.EqualFold(op, name)
	})
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ViewDistance < 1 {
		return fmt.Errorf("view distance %d must be at least 1", c.ViewDistance)
	}
	if b := c.Hologram.ProjectorBlock; b <= 0 || b > 4095 {
		return fmt.Errorf("projector block %d out of range", b)
	}
	if len(c.FlatLayers) > 255 {
		return fmt.Errorf("%d flat layers exceed world height", len(c.FlatLayers))
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["port"] {
		cfg.Port = fromFile.Port
	}
	if !explicitFlags["motd"] {
		cfg.MOTD = fromFile.MOTD
	}
	if !explicitFlags["max-players"] {
		cfg.MaxPlayers = fromFile.MaxPlayers
	}
	if !explicitFlags["view-distance"] {
		cfg.ViewDistance = fromFile.ViewDistance
	}
	if !explicitFlags["world-radius"] {
		cfg.WorldRadius = fromFile.WorldRadius
	}
	if !explicitFlags["observer"] {
		cfg.Observer = fromFile.Observer
	}
	if !explicitFlags["op"] {
		cfg.Operators = fromFile.Operators
	}

	block := cfg.Hologram.ProjectorBlock
	cfg.Hologram = fromFile.Hologram
	if explicitFlags["projector-block"] {
		cfg.Hologram.ProjectorBlock = block
	}
	cfg.FlatLayers = fromFile.FlatLayers
}
