// Command box2d-sim runs a sample scene headless, logs what the world is doing
// and optionally streams body positions to websocket viewers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ByteArena/box2d/v2"
	"github.com/ByteArena/box2d/v2/config"
	"github.com/ByteArena/box2d/v2/internal/scenes"
)

type options struct {
	configPath string
	saveConfig string
	scene      string
	steps      int
	workers    int
	stream     string
	logFormat  string
	verbose    bool
	dump       bool
	list       bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("box2d-sim", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "YAML settings file")
	fs.StringVar(&o.saveConfig, "save-config", "", "write the effective settings to this file and exit")
	fs.StringVar(&o.scene, "scene", "", "scene to run (overrides the config)")
	fs.IntVar(&o.steps, "steps", -1, "number of steps (overrides the config)")
	fs.IntVar(&o.workers, "workers", -1, "island solver goroutines (overrides the config)")
	fs.StringVar(&o.stream, "stream", "", "listen address for the websocket frame stream")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format: text or json")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.BoolVar(&o.dump, "dump", false, "log a full world dump after the run")
	fs.BoolVar(&o.list, "list", false, "list the scenes and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func newLogger(format string, verbose bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

func settings(o options) (config.Settings, error) {
	s := config.Default()
	if o.configPath != "" {
		var err error
		if s, err = config.Load(o.configPath); err != nil {
			return s, err
		}
	}
	if o.scene != "" {
		s.Scene = o.scene
	}
	if o.steps >= 0 {
		s.Steps = o.steps
	}
	if o.workers >= 0 {
		s.Workers = o.workers
	}
	if o.stream != "" {
		s.Stream = o.stream
	}
	return s, s.Validate()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "box2d-sim:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	if o.list {
		for _, s := range scenes.All() {
			fmt.Printf("%-12s %s\n", s.Name, s.Description)
		}
		return nil
	}

	logger, err := newLogger(o.logFormat, o.verbose)
	if err != nil {
		return err
	}

	s, err := settings(o)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}

	if o.saveConfig != "" {
		if err := config.Save(o.saveConfig, s); err != nil {
			return err
		}
		logger.Info("settings written", "path", o.saveConfig)
		return nil
	}

	scene, ok := scenes.Lookup(s.Scene)
	if !ok {
		return fmt.Errorf("unknown scene %q (have %s)", s.Scene, strings.Join(scenes.Names(), ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	world := box2d.NewWorld(s.GravityVec())
	world.SetLogger(logger.With("scene", scene.Name))
	tracked := scene.Build(world)

	logger.Info("scene built",
		"scene", scene.Name,
		"bodies", world.BodyCount(),
		"joints", world.JointCount(),
		"proxies", world.ProxyCount(),
		"workers", s.Workers)

	var stream *streamer
	g, ctx := errgroup.WithContext(ctx)
	if s.Stream != "" {
		stream = newStreamer(logger)
		g.Go(func() error { return stream.serve(ctx, s.Stream) })
	}

	g.Go(func() error {
		defer stop()
		return simulate(ctx, logger, world, tracked, s, stream)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if o.dump {
		world.Dump()
	}
	return nil
}

// simulate steps the world. With a stream attached it runs in real time so
// viewers see the scene at its natural speed.
func simulate(ctx context.Context, logger *slog.Logger, world *box2d.World, tracked scenes.Tracked, s config.Settings, stream *streamer) error {
	dt := s.TimeStep()
	cfg := s.StepConfig()
	names := tracked.Names()
	reportEvery := max(int(s.Hertz), 1)

	var ticker *time.Ticker
	if stream != nil {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	start := time.Now()
	var stepTotal time.Duration

	for i := 0; s.Steps == 0 || i < s.Steps; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		} else if ctx.Err() != nil {
			logger.Info("interrupted", "step", i)
			return nil
		}

		world.Step(dt, cfg)
		p := world.Profile()
		stepTotal += p.Step

		if stream != nil {
			stream.broadcast(snapshot(world, tracked, names, i, dt))
		}

		if (i+1)%reportEvery == 0 {
			attrs := []any{
				"step", i + 1,
				"time", float64(i+1) * dt,
				"contacts", world.ContactCount(),
				"awake", awakeCount(world),
				"treeHeight", world.TreeHeight(),
				"step_ms", p.Step.Seconds() * 1000,
				"solve_ms", p.Solve.Seconds() * 1000,
				"toi_ms", p.SolveTOI.Seconds() * 1000,
			}
			logger.Debug("progress", attrs...)
		}
	}

	steps := max(s.Steps, 1)
	logger.Info("run finished",
		"steps", s.Steps,
		"wall", time.Since(start).Round(time.Millisecond),
		"avgStep", (stepTotal / time.Duration(steps)).String())

	for _, name := range names {
		b := world.Body(tracked[name])
		p := b.Position()
		logger.Info("body",
			"name", name,
			"x", p[0],
			"y", p[1],
			"angle", b.Angle(),
			"awake", b.IsAwake())
	}
	return nil
}

func awakeCount(w *box2d.World) int {
	n := 0
	for b := range w.Bodies() {
		if b.Type() != box2d.StaticBody && b.IsAwake() {
			n++
		}
	}
	return n
}
