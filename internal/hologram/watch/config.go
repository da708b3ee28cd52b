package watch

import "github.com/go-theft-craft/hologram/internal/hologram/bus"

// Cadence runs a task on ticks where tick % Period == Phase.
type Cadence struct {
	Period int64 `yaml:"period"`
	Phase  int64 `yaml:"phase"`
}

// Due reports whether the task runs on tick. A zero period disables it.
func (c Cadence) Due(tick int64) bool {
	return c.Period > 0 && tick%c.Period == c.Phase
}

// Config tunes discovery and revalidation.
type Config struct {
	GazeDistance float64 `yaml:"gaze_distance"`
	ScanRadiusXZ int     `yaml:"scan_radius_xz"`
	ScanRadiusY  int     `yaml:"scan_radius_y"`
	AnyScanStep  int     `yaml:"any_scan_step"`

	Gaze        Cadence `yaml:"gaze"`
	PoweredNear Cadence `yaml:"powered_near"`
	AnyNear     Cadence `yaml:"any_near"`
	Revalidate  Cadence `yaml:"revalidate"`

	Bootstrap      bool      `yaml:"bootstrap"`
	BootstrapCodes bus.Codes `yaml:"-"`
}

// DefaultConfig returns the stock cadences and radii.
func DefaultConfig() Config {
	return Config{
		GazeDistance:   20,
		ScanRadiusXZ:   8,
		ScanRadiusY:    4,
		AnyScanStep:    2,
		Gaze:           Cadence{Period: 10, Phase: 0},
		PoweredNear:    Cadence{Period: 20, Phase: 5},
		AnyNear:        Cadence{Period: 40, Phase: 15},
		Revalidate:     Cadence{Period: 20, Phase: 10},
		Bootstrap:      true,
		BootstrapCodes: bus.Codes{Model: 3, Anim: 0, Ctrl: 2},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GazeDistance <= 0 {
		c.GazeDistance = d.GazeDistance
	}
	if c.ScanRadiusXZ < 0 {
		c.ScanRadiusXZ = d.ScanRadiusXZ
	}
	if c.ScanRadiusY < 0 {
		c.ScanRadiusY = d.ScanRadiusY
	}
	if c.AnyScanStep <= 0 {
		c.AnyScanStep = d.AnyScanStep
	}
	if c.Bootstrap && c.BootstrapCodes.IsZero() {
		c.BootstrapCodes = d.BootstrapCodes
	}
	return c
}
