package client

import "math"

// RestPose is the clip index meaning no animation.
const RestPose = -1

// SelectClip maps an animation code onto count clips: 0 is the rest pose,
// n >= 1 plays clip (n-1) mod count.
func SelectClip(animCode, count int) int {
	if count <= 0 || animCode <= 0 {
		return RestPose
	}
	return (animCode - 1) % count
}

// Pose is what a renderer should apply for one frame.
type Pose struct {
	Clip int
	Time float64
	// Reset is set when the clip changed and the previous pose must be
	// cleared before applying this one.
	Reset bool
}

// Animator tracks clip playback for one hologram instance.
type Animator struct {
	started bool
	clip    int
	time    float64
}

// Advance moves playback forward by dt seconds for animCode.
func (a *Animator) Advance(clips []Clip, animCode int, dt float64) Pose {
	if len(clips) == 0 {
		return Pose{Clip: RestPose}
	}
	idx := SelectClip(animCode, len(clips))
	reset := !a.started || idx != a.clip
	if reset {
		a.started = true
		a.clip = idx
		a.time = 0
	}
	if idx == RestPose {
		return Pose{Clip: RestPose, Reset: reset}
	}

	d := clips[idx].Duration
	if d <= 0 {
		return Pose{Clip: idx, Reset: reset}
	}
	t := a.time + dt
	if math.IsNaN(t) || math.IsInf(t, 0) {
		t = 0
	}
	a.time = math.Mod(t, d)
	return Pose{Clip: idx, Time: a.time, Reset: reset}
}
