package client

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"go.uber.org/atomic"
)

// FullBright is the packed block/sky light used unless a hologram asks for
// world lighting.
const FullBright = 0xF000F0

// ParamScale decodes the scale parameter: 1 when unset, otherwise
// 0.25 + q/15*1.75.
func ParamScale(q int) float64 {
	if q <= 0 {
		return 1
	}
	return 0.25 + float64(min(q, 15))/15*1.75
}

// ParamOffset decodes an offset parameter: 0 when unset, otherwise
// (q-8)/8 blocks.
func ParamOffset(q int) float64 {
	if q <= 0 {
		return 0
	}
	return float64(min(q, 15)-8) / 8
}

// FitScale fits a model to the smallest axis of the cuboid with a margin.
func FitScale(k payload.Key) float64 {
	sx := k.Max.X - k.Min.X + 1
	sy := k.Max.Y - k.Min.Y + 1
	sz := k.Max.Z - k.Min.Z + 1
	return math.Max(0.1, 0.9*float64(min(sx, sy, sz)))
}

// Center is the world-space centre of the projector.
func Center(k payload.Key) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(k.Min.X+k.Max.X+1) / 2,
		float64(k.Min.Y+k.Max.Y+1) / 2,
		float64(k.Min.Z+k.Max.Z+1) / 2,
	}
}

// Scenes resolves model codes to ready models.
type Scenes interface {
	Scene(code int) (Model, bool)
}

// LightSource returns the packed light value at a block.
type LightSource interface {
	LightAt(pos world.BlockPos) int
}

// Renderer draws one planned hologram.
type Renderer interface {
	Render(p Plan) error
}

// Plan is everything a renderer needs for one hologram in one frame.
type Plan struct {
	Key   payload.Key
	Model Model
	Pose  Pose

	Center    mgl64.Vec3
	Scale     float64
	Offset    mgl64.Vec3
	Transform mgl64.Mat4 // camera-relative

	Light       int
	IgnoreDepth bool
	NoCull      bool
}

type instanceKey struct {
	code int
	key  payload.Key
}

// Planner turns the activation registry into per-frame render plans. It is
// driven by a single render goroutine.
type Planner struct {
	reg    *ActivationRegistry
	scenes Scenes
	light  LightSource
	out    Renderer
	log    *slog.Logger

	anims  map[instanceKey]*Animator
	frames atomic.Int64
}

// NewPlanner returns a planner. light may be nil, in which case world-lit
// holograms are drawn full bright.
func NewPlanner(reg *ActivationRegistry, scenes Scenes, light LightSource, out Renderer, log *slog.Logger) *Planner {
	return &Planner{
		reg:    reg,
		scenes: scenes,
		light:  light,
		out:    out,
		log:    log,
		anims:  make(map[instanceKey]*Animator),
	}
}

// Frames returns how many frames have been rendered.
func (p *Planner) Frames() int64 { return p.frames.Load() }

// Plan builds the plans for dimension dim as seen from camera, advancing
// animations by dt seconds.
func (p *Planner) Plan(dim string, camera mgl64.Vec3, dt float64) []Plan {
	var plans []Plan
	live := make(map[instanceKey]struct{})

	for _, a := range p.reg.Snapshot() {
		if a.Key.Dimension != dim || a.Model <= 0 {
			continue
		}
		code := min(a.Model, MaxCode)
		m, ok := p.scenes.Scene(code)
		if !ok || !m.Scene.Renderable() {
			continue
		}

		ik := instanceKey{code: code, key: a.Key}
		live[ik] = struct{}{}
		anim, ok := p.anims[ik]
		if !ok {
			anim = &Animator{}
			p.anims[ik] = anim
		}

		plans = append(plans, p.plan(a, m, camera, anim.Advance(m.Clips, a.Anim, dt)))
	}

	for ik := range p.anims {
		if _, ok := live[ik]; !ok {
			delete(p.anims, ik)
		}
	}
	return plans
}

func (p *Planner) plan(a Active, m Model, camera mgl64.Vec3, pose Pose) Plan {
	center := Center(a.Key)
	scale := FitScale(a.Key) * m.Manifest.ScaleMultiplier() * ParamScale(a.ScaleQ)
	offset := mgl64.Vec3{
		m.Manifest.OffsetAt(0) + ParamOffset(a.OffXQ),
		m.Manifest.OffsetAt(1) + ParamOffset(a.OffYQ),
		m.Manifest.OffsetAt(2) + ParamOffset(a.OffZQ),
	}
	rel := center.Sub(camera)
	transform := mgl64.Translate3D(rel.X(), rel.Y(), rel.Z()).
		Mul4(mgl64.Translate3D(offset.X(), offset.Y(), offset.Z())).
		Mul4(mgl64.Scale3D(scale, scale, scale))

	light := FullBright
	if bus.WorldLit(a.Ctrl) && p.light != nil {
		light = p.light.LightAt(world.BlockPos{
			X: int(math.Floor(center.X())),
			Y: int(math.Floor(center.Y())),
			Z: int(math.Floor(center.Z())),
		})
	}

	return Plan{
		Key:         a.Key,
		Model:       m,
		Pose:        pose,
		Center:      center,
		Scale:       scale,
		Offset:      offset,
		Transform:   transform,
		Light:       light,
		IgnoreDepth: bus.IgnoresDepth(a.Ctrl),
		NoCull:      bus.NoCull(a.Ctrl),
	}
}

// Frame plans and renders one frame and returns how many holograms were
// drawn. Renderer errors are logged and the hologram skipped.
func (p *Planner) Frame(dim string, camera mgl64.Vec3, dt float64) int {
	p.frames.Inc()
	drawn := 0
	for _, plan := range p.Plan(dim, camera, dt) {
		if err := p.out.Render(plan); err != nil {
			p.log.Warn("hologram render failed", "key", plan.Key.String(), "code", plan.Model.Code, "error", err)
			continue
		}
		drawn++
	}
	return drawn
}
