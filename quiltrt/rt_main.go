package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gekko3d/holoquilt"
	"github.com/gekko3d/holoquilt/quiltrt/rt/app"
	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/device"
	"github.com/gekko3d/holoquilt/quiltrt/rt/lenticular"
	"github.com/gekko3d/holoquilt/quiltrt/rt/scene"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	preset := flag.String("preset", core.DefaultPreset.String(), "Quilt preset: standard, highres or ultrahighres")
	calibration := flag.String("calibration", "", "JSON file listing connected displays and their calibration")
	simulate := flag.Bool("simulate", false, "Run on a simulated display when no calibration file is given")
	strategy := flag.String("strategy", "cell", "View render resolution: cell or window")
	debug := flag.Bool("debug", false, "Show view 0 instead of the lenticular output")
	overscan := flag.Bool("overscan", false, "Crop the quilt to fill the display instead of letterboxing")
	invert := flag.Bool("invert", false, "Quilt views are stored right to left")
	captureDir := flag.String("capture-dir", ".", "Directory for quilt captures (C key)")
	verbose := flag.Bool("verbose", false, "Debug logging with per-frame timings")
	flag.Parse()

	logger := holoquilt.NewDefaultLogger("holoquilt", *verbose)

	cfg := app.DefaultConfig()
	var err error
	if cfg.Preset, err = core.ParsePreset(*preset); err != nil {
		fail(logger, err)
	}
	if cfg.Strategy, err = app.ParseStrategy(*strategy); err != nil {
		fail(logger, err)
	}
	if *debug {
		cfg.Debug = lenticular.DebugView0
	}
	cfg.Overscan = *overscan
	cfg.QuiltInvert = *invert
	cfg.CaptureDir = *captureDir

	var devices device.Source
	switch {
	case *calibration != "":
		devices = device.File{Path: *calibration}
	case *simulate:
		devices = device.Static{device.Simulated()}
	default:
		fail(logger, fmt.Errorf("%w: pass -calibration or -simulate", device.ErrNoDevice))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := newEngine(ctx, cfg, devices, *verbose)
	engine.Run()

	if lf, ok := holoquilt.Resource[holoquilt.LightField](engine); ok && lf.Err != nil {
		os.Exit(1)
	}
}

// newEngine assembles the light field engine. The window module goes first
// so the clock and input modules find the window it opens.
func newEngine(ctx context.Context, cfg app.Config, devices device.Source, verbose bool) *holoquilt.App {
	return holoquilt.NewAppBuilder().
		UseStates(holoquilt.StateReady, holoquilt.StateExited).
		UseModules(
			holoquilt.LoggingModule{Prefix: "holoquilt", Debug: verbose},
			holoquilt.PlatformWindowModule{Devices: devices, CaptureMouse: true},
			holoquilt.TimeModule{},
			holoquilt.InputModule{},
			holoquilt.LightFieldModule{
				Config:  cfg,
				Scene:   scene.NewTerrain(),
				Devices: devices,
				Context: ctx,
			},
		).
		Build()
}

func fail(logger holoquilt.Logger, err error) {
	logger.Errorf("%v", err)
	os.Exit(2)
}
