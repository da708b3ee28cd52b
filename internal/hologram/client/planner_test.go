package client

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

type sceneMap map[int]Model

func (m sceneMap) Scene(code int) (Model, bool) {
	s, ok := m[code]
	return s, ok
}

type fixedLight int

func (l fixedLight) LightAt(world.BlockPos) int { return int(l) }

type planRecorder struct {
	plans []Plan
	fail  map[int]bool
}

func (r *planRecorder) Render(p Plan) error {
	if r.fail[p.Model.Code] {
		return errors.New("boom")
	}
	r.plans = append(r.plans, p)
	return nil
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParamDecode(t *testing.T) {
	tests := []struct {
		q             int
		scale, offset float64
	}{
		{0, 1, 0},
		{1, 0.25 + 1.75/15, -7.0 / 8},
		{8, 0.25 + 8*1.75/15, 0},
		{15, 2, 7.0 / 8},
	}
	for _, tt := range tests {
		if got := ParamScale(tt.q); !approx(got, tt.scale) {
			t.Errorf("ParamScale(%d) = %v, want %v", tt.q, got, tt.scale)
		}
		if got := ParamOffset(tt.q); !approx(got, tt.offset) {
			t.Errorf("ParamOffset(%d) = %v, want %v", tt.q, got, tt.offset)
		}
	}
}

func TestFitScaleAndCenter(t *testing.T) {
	k := payload.Key{Min: world.BlockPos{X: 0, Y: 10, Z: 0}, Max: world.BlockPos{X: 4, Y: 12, Z: 6}}
	if got := FitScale(k); !approx(got, 2.7) {
		t.Errorf("FitScale = %v, want 2.7", got)
	}
	if got := Center(k); got != (mgl64.Vec3{2.5, 11.5, 3.5}) {
		t.Errorf("Center = %v", got)
	}
	if got := FitScale(payload.Key{}); !approx(got, 0.9) {
		t.Errorf("single block FitScale = %v", got)
	}
}

func newPlannerFixture(scenes sceneMap) (*ActivationRegistry, *planRecorder, *Planner) {
	reg := NewActivationRegistry()
	out := &planRecorder{fail: map[int]bool{}}
	return reg, out, NewPlanner(reg, scenes, fixedLight(0x700070), out, discardLogger())
}

func applyCodes(reg *ActivationRegistry, c structure.Cuboid, codes bus.Codes, params bus.Params) {
	reg.Apply(payload.NewBusUpdate(c, codes, params, 1))
}

func TestPlannerPlacement(t *testing.T) {
	scene := &Scene{Meshes: 1}
	manifest := &Manifest{Scale: 2, Offset: []float64{0, 1, 0}}
	reg, _, p := newPlannerFixture(sceneMap{3: {Code: 3, Scene: scene, Manifest: manifest}})

	c := testCuboid(0, 2) // 3x3x3 at y 10..12
	applyCodes(reg, c, bus.Codes{Model: 3}, bus.Params{ScaleQ: 15, OffXQ: 16})

	plans := p.Plan(world.Overworld, mgl64.Vec3{1.5, 11.5, -10}, 0.05)
	if len(plans) != 1 {
		t.Fatalf("plans = %d, want 1", len(plans))
	}
	pl := plans[0]
	if want := 0.9 * 3 * 2 * 2; !approx(pl.Scale, want) {
		t.Errorf("scale = %v, want %v", pl.Scale, want)
	}
	if !approx(pl.Offset.X(), 7.0/8) || pl.Offset.Y() != 1 {
		t.Errorf("offset = %v", pl.Offset)
	}
	wantT := mgl64.Vec3{0 + 7.0/8, 0 + 1, 11.5 + 0}
	got := pl.Transform.Col(3).Vec3()
	if !got.ApproxEqual(wantT) {
		t.Errorf("translation = %v, want %v", got, wantT)
	}
	if pl.Light != FullBright {
		t.Errorf("light = %#x, want full bright", pl.Light)
	}
}

func TestPlannerControlFlags(t *testing.T) {
	tests := []struct {
		ctrl        int
		light       int
		ignoreDepth bool
		noCull      bool
	}{
		{0, FullBright, false, false},
		{1, FullBright, true, false},
		{3, 0x700070, false, false},
		{4, FullBright, false, true},
		{7, 0x700070, false, true},
	}
	for _, tt := range tests {
		reg, _, p := newPlannerFixture(sceneMap{1: {Code: 1, Scene: &Scene{Meshes: 1}}})
		applyCodes(reg, testCuboid(0, 2), bus.Codes{Model: 1, Ctrl: tt.ctrl}, bus.Params{})
		pl := p.Plan(world.Overworld, mgl64.Vec3{}, 0)[0]
		if pl.Light != tt.light || pl.IgnoreDepth != tt.ignoreDepth || pl.NoCull != tt.noCull {
			t.Errorf("ctrl %d: light %#x ignoreDepth %v noCull %v", tt.ctrl, pl.Light, pl.IgnoreDepth, pl.NoCull)
		}
	}
}

func TestPlannerSkips(t *testing.T) {
	reg, _, p := newPlannerFixture(sceneMap{
		1: {Code: 1, Scene: &Scene{Meshes: 1}},
		2: {Code: 2, Scene: &Scene{Meshes: 0}},
	})
	applyCodes(reg, testCuboid(0, 2), bus.Codes{Model: 0}, bus.Params{})   // inactive
	applyCodes(reg, testCuboid(10, 12), bus.Codes{Model: 2}, bus.Params{}) // empty scene
	applyCodes(reg, testCuboid(20, 22), bus.Codes{Model: 9}, bus.Params{}) // not loaded
	other := testCuboid(30, 32)
	other.Dimension = "minecraft:the_nether"
	applyCodes(reg, other, bus.Codes{Model: 1}, bus.Params{})

	if plans := p.Plan(world.Overworld, mgl64.Vec3{}, 0); len(plans) != 0 {
		t.Errorf("plans = %d, want 0", len(plans))
	}
}

func TestPlannerFrameAbsorbsRenderErrors(t *testing.T) {
	reg, out, p := newPlannerFixture(sceneMap{
		1: {Code: 1, Scene: &Scene{Meshes: 1}},
		2: {Code: 2, Scene: &Scene{Meshes: 1}},
	})
	out.fail[1] = true
	applyCodes(reg, testCuboid(0, 2), bus.Codes{Model: 1}, bus.Params{})
	applyCodes(reg, testCuboid(10, 12), bus.Codes{Model: 2}, bus.Params{})

	if n := p.Frame(world.Overworld, mgl64.Vec3{}, 0.05); n != 1 {
		t.Errorf("drawn = %d, want 1", n)
	}
	if len(out.plans) != 1 || out.plans[0].Model.Code != 2 {
		t.Errorf("rendered = %+v", out.plans)
	}
	if p.Frames() != 1 {
		t.Errorf("frames = %d", p.Frames())
	}
}

func TestPlannerAnimatesPerInstance(t *testing.T) {
	clips := []Clip{{Name: "loop", Duration: 1}}
	reg, _, p := newPlannerFixture(sceneMap{1: {Code: 1, Scene: &Scene{Meshes: 1}, Clips: clips}})
	applyCodes(reg, testCuboid(0, 2), bus.Codes{Model: 1, Anim: 1}, bus.Params{})

	p.Plan(world.Overworld, mgl64.Vec3{}, 0.25)
	pl := p.Plan(world.Overworld, mgl64.Vec3{}, 0.25)[0]
	if pl.Pose.Clip != 0 || pl.Pose.Time != 0.5 || pl.Pose.Reset {
		t.Errorf("pose = %+v", pl.Pose)
	}

	// Dropping the model to zero forgets the instance.
	applyCodes(reg, testCuboid(0, 2), bus.Codes{Model: 0}, bus.Params{})
	p.Plan(world.Overworld, mgl64.Vec3{}, 0.25)
	if len(p.anims) != 0 {
		t.Errorf("animators = %d after deactivation", len(p.anims))
	}
}
