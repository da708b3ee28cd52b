// Command holoclient is a headless hologram client. It follows the server's
// observer feed, loads the models the projectors select and plans a render
// for each active hologram every client tick.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/go-theft-craft/hologram/internal/hologram/client"
	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/internal/transport/observer"
)

const (
	clientTickRate  = 20
	summaryInterval = 5 * time.Second
)

func main() {
	var (
		server = pflag.String("server", "ws://localhost:25580"+observer.Path, "observer feed URL")
		runDir = pflag.String("run", ".", "client run directory holding hologram/models")
		dim    = pflag.String("dimension", world.Overworld, "dimension the client is in")
		camera = pflag.String("camera", "0,64,0", "camera position x,y,z")
		gaze   = pflag.StringArray("gaze", nil, "block x,y,z the client looks at (repeatable)")
		debug  = pflag.Bool("debug", false, "log every render plan")
	)
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cam, err := parseVec(*camera)
	if err != nil {
		log.Error("invalid camera", "value", *camera, "error", err)
		os.Exit(2)
	}
	var seeds []world.BlockPos
	for _, g := range *gaze {
		v, err := parseVec(g)
		if err != nil {
			log.Error("invalid gaze", "value", g, "error", err)
			os.Exit(2)
		}
		seeds = append(seeds, world.BlockPos{X: int(math.Floor(v.X())), Y: int(math.Floor(v.Y())), Z: int(math.Floor(v.Z()))})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, log, *server, *runDir, *dim, cam, seeds); err != nil {
		color.Red("holoclient: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, url, runDir, dim string, camera mgl64.Vec3, gaze []world.BlockPos) error {
	conn, err := observer.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()
	color.Green("connected to %s (session %s)", url, conn.Session())

	reg := client.NewActivationRegistry()
	models := client.NewModelManager(runDir, log.With("component", "models"))
	planner := client.NewPlanner(reg, models, nil, client.LogRenderer{Log: log}, log)
	auto := client.NewAutoWatch(reg, client.AutoWatchPeriod)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return conn.Run(ctx, func(u payload.BusUpdate) {
			if !reg.Apply(u) {
				return
			}
			if u.Model > 0 {
				models.EnsureLoaded(int(u.Model))
			}
			log.Debug("bus update", "key", u.Key().String(), "model", u.Model, "anim", u.Anim, "ctrl", u.Ctrl, "tick", u.Tick)
		})
	})
	g.Go(func() error {
		tick := time.NewTicker(time.Second / clientTickRate)
		defer tick.Stop()
		summary := time.NewTicker(summaryInterval)
		defer summary.Stop()

		drawn := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
				drawn = planner.Frame(dim, camera, 1.0/clientTickRate)
				for _, seed := range auto.Tick(dim, gaze) {
					if err := conn.Watch(seed); err != nil {
						return fmt.Errorf("send watch request: %w", err)
					}
					log.Debug("auto watch", "seed", fmt.Sprintf("%d,%d,%d", seed.X, seed.Y, seed.Z))
				}
			case <-summary.C:
				printSummary(reg, models, planner, drawn)
			}
		}
	})
	return g.Wait()
}

func printSummary(reg *client.ActivationRegistry, models *client.ModelManager, planner *client.Planner, drawn int) {
	loaded, failed := models.Stats()
	header := color.New(color.FgCyan, color.Bold)
	header.Printf("projectors=%d drawn=%d frames=%d ", reg.Len(), drawn, planner.Frames())
	color.New(color.FgGreen).Printf("models loaded=%d ", loaded)
	if failed > 0 {
		color.New(color.FgRed).Printf("failed=%d", failed)
	}
	fmt.Println()
	for _, a := range reg.Snapshot() {
		state := color.YellowString("inactive")
		if a.Model > 0 {
			state = color.GreenString("model=%03d", a.Model)
		}
		fmt.Printf("  %s %s anim=%d ctrl=%d scaleQ=%d tick=%d\n",
			a.Key.String(), state, a.Anim, a.Ctrl, a.ScaleQ, a.Tick)
	}
}

func parseVec(s string) (mgl64.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v mgl64.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("parse %q: %w", p, err)
		}
		v[i] = f
	}
	return v, nil
}
