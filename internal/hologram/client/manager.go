package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// MaxCode is the highest model code.
const MaxCode = 255

// rescanInterval limits how often a scene without clips looks for new
// motion files.
const rescanInterval = time.Second

// ErrNoModel is recorded when a model folder has no loadable file.
var ErrNoModel = errors.New("no model file")

// Model is a ready scene with its placement settings.
type Model struct {
	Code     int
	Scene    *Scene
	Manifest *Manifest
	Clips    []Clip
}

type slot struct {
	code int
	dir  string
	done chan struct{}

	// Written before done is closed.
	scene    *Scene
	manifest *Manifest
	err      error

	clips      atomic.Value // []Clip
	lastRescan atomic.Int64
}

func (s *slot) ready() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ModelManager resolves model codes to scenes under
// <run>/hologram/models/NNN, loading each code once in the background.
type ModelManager struct {
	root   string
	log    *slog.Logger
	slots  sync.Map // int -> *slot
	loaded atomic.Int64
	failed atomic.Int64
}

// NewModelManager returns a manager rooted at runDir.
func NewModelManager(runDir string, log *slog.Logger) *ModelManager {
	return &ModelManager{
		root: filepath.Join(runDir, "hologram", "models"),
		log:  log,
	}
}

// Root returns the folder holding the per-code model folders.
func (m *ModelManager) Root() string { return m.root }

// Dir returns the folder for code, clamped to 0..255.
func (m *ModelManager) Dir(code int) string {
	return filepath.Join(m.root, fmt.Sprintf("%03d", min(max(code, 0), MaxCode)))
}

// EnsureLoaded starts loading code if it has not been requested before.
func (m *ModelManager) EnsureLoaded(code int) {
	m.slot(code)
}

func (m *ModelManager) slot(code int) *slot {
	code = min(max(code, 0), MaxCode)
	if v, ok := m.slots.Load(code); ok {
		return v.(*slot)
	}
	s := &slot{code: code, dir: m.Dir(code), done: make(chan struct{})}
	v, loaded := m.slots.LoadOrStore(code, s)
	if !loaded {
		go m.load(s)
	}
	return v.(*slot)
}

// Scene returns the model for code once it has loaded. Until then, or if
// loading failed, it returns false.
func (m *ModelManager) Scene(code int) (Model, bool) {
	s := m.slot(code)
	if !s.ready() || s.err != nil {
		return Model{}, false
	}
	clips, _ := s.clips.Load().([]Clip)
	if len(clips) == 0 {
		clips = m.rescan(s)
	}
	return Model{Code: s.code, Scene: s.scene, Manifest: s.manifest, Clips: clips}, true
}

// Wait blocks until code has finished loading and returns its load error.
func (m *ModelManager) Wait(ctx context.Context, code int) error {
	s := m.slot(code)
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return fmt.Errorf("wait for model %03d: %w", s.code, ctx.Err())
	}
}

// Forget drops a finished load so the next lookup retries it.
func (m *ModelManager) Forget(code int) {
	code = min(max(code, 0), MaxCode)
	if v, ok := m.slots.Load(code); ok && v.(*slot).ready() {
		m.slots.CompareAndDelete(code, v)
	}
}

// Stats returns how many loads succeeded and failed.
func (m *ModelManager) Stats() (loaded, failed int64) {
	return m.loaded.Load(), m.failed.Load()
}

func (m *ModelManager) load(s *slot) {
	defer close(s.done)
	log := m.log.With("code", s.code, "dir", s.dir)

	manifest, err := ReadManifest(s.dir)
	if err != nil {
		s.err = err
		m.failed.Inc()
		log.Warn("bad model manifest", "error", err)
		return
	}
	path, err := pickModelFile(s.dir, manifest)
	if err != nil {
		s.err = err
		m.failed.Inc()
		log.Warn("no model file found", "error", err)
		return
	}
	scene, err := LoadScene(path)
	if err != nil {
		s.err = err
		m.failed.Inc()
		log.Warn("model load failed", "path", path, "error", err)
		return
	}

	clips := append(append([]Clip(nil), scene.Clips...), m.motions(s.dir)...)
	s.scene = scene
	s.manifest = manifest
	s.clips.Store(clips)
	m.loaded.Inc()
	log.Info("model loaded",
		"path", path,
		"format", scene.Format,
		"nodes", scene.Nodes,
		"meshes", scene.Meshes,
		"clips", len(clips),
		"digest", scene.Digest[:16],
	)
}

// rescan looks for motion files dropped into the folder after the load.
func (m *ModelManager) rescan(s *slot) []Clip {
	now := time.Now().UnixNano()
	last := s.lastRescan.Load()
	if now-last < int64(rescanInterval) || !s.lastRescan.CAS(last, now) {
		return nil
	}
	clips := m.motions(s.dir)
	if len(clips) > 0 {
		s.clips.Store(clips)
		m.log.Info("loaded motions on demand", "code", s.code, "count", len(clips))
	}
	return clips
}

func (m *ModelManager) motions(dir string) []Clip {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var clips []Clip
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), MotionExt) {
			continue
		}
		clip, err := LoadMotion(filepath.Join(dir, e.Name()))
		if err != nil {
			m.log.Debug("skipping motion", "file", e.Name(), "error", err)
			continue
		}
		clips = append(clips, clip)
	}
	return clips
}

// pickModelFile returns the manifest's file when it exists inside dir,
// otherwise the first supported model in name order.
func pickModelFile(dir string, manifest *Manifest) (string, error) {
	if manifest != nil && manifest.File != "" && filepath.IsLocal(manifest.File) {
		p := filepath.Join(dir, manifest.File)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p, nil
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w in %s: %w", ErrNoModel, dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatOf(e.Name()); ok {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoModel, dir)
}
