package client

import (
	"fmt"
	"log/slog"
)

// LogRenderer is a Renderer that logs each plan instead of drawing it.
type LogRenderer struct {
	Log *slog.Logger
}

// Render logs p at debug level.
func (r LogRenderer) Render(p Plan) error {
	clip := "rest"
	if p.Pose.Clip >= 0 && p.Pose.Clip < len(p.Model.Clips) {
		c := p.Model.Clips[p.Pose.Clip]
		clip = fmt.Sprintf("%s@%.2fs/%.2fs", c.Name, p.Pose.Time, c.Duration)
	}
	r.Log.Debug("render hologram",
		"key", p.Key.String(),
		"code", p.Model.Code,
		"center", fmt.Sprintf("%.1f,%.1f,%.1f", p.Center.X(), p.Center.Y(), p.Center.Z()),
		"scale", p.Scale,
		"clip", clip,
		"light", fmt.Sprintf("%#x", p.Light),
		"ignoreDepth", p.IgnoreDepth,
		"noCull", p.NoCull,
	)
	return nil
}
