package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/device"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/gekko3d/holoquilt/quiltrt/rt/lenticular"
	"github.com/gekko3d/holoquilt/quiltrt/rt/quilt"
)

var ErrExited = errors.New("frame loop has exited")

type State int

const (
	StateReady State = iota
	StateRunning
	StateExited
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateExited:
		return "Exited"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Logger is the subset of the engine logger the frame loop writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Platform supplies the frame clock and polled input.
type Platform interface {
	Now() float64
	PollInput() core.InputState
}

// PlacementEnforcer is implemented by platforms whose window must stay on
// the display. EnforcePlacement reports whether it had to move it back.
type PlacementEnforcer interface {
	EnforcePlacement() bool
}

// Options are the collaborators the frame loop runs against.
type Options struct {
	Device   gpu.Device
	Surface  gpu.Surface
	Scene    Scene
	Platform Platform
	Devices  device.Source
	Logger   Logger
}

// App is the light field frame loop. It starts Ready, runs frames while
// Running, and ends Exited on an exit request or calibration loss. Exits
// take effect at frame boundaries.
type App struct {
	cfg      Config
	dev      gpu.Device
	surface  gpu.Surface
	scene    Scene
	platform Platform
	logger   Logger

	Info        core.DeviceInfo
	Layout      core.QuiltLayout
	Frame       core.FrameState
	Renderer    *ViewRenderer
	Compositor  *quilt.Compositor
	Reprojector *lenticular.Reprojector
	Watcher     *device.Watcher
	Profiler    *Profiler

	FPS        float64
	frameCount int
	fpsTime    float64

	state         State
	exitRequested bool
	exitErr       error
	capture       bool
}

// NewApp finds the display and allocates every frame resource. Failing to
// find a display or to allocate is fatal; the loop never starts.
func NewApp(ctx context.Context, cfg Config, opts Options) (*App, error) {
	if opts.Device == nil || opts.Surface == nil || opts.Scene == nil || opts.Platform == nil || opts.Devices == nil {
		return nil, fmt.Errorf("app: missing collaborator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	info, err := device.FirstDevice(ctx, opts.Devices)
	if err != nil {
		return nil, err
	}
	logger.Infof("light field display %q (%s) at %d,%d %dx%d", info.Name, info.Serial,
		info.WindowX, info.WindowY, info.ScreenWidth, info.ScreenHeight)

	layout, err := cfg.layout()
	if err != nil {
		return nil, err
	}
	logger.Infof("quilt %dx%d, %dx%d cells of %dx%d, %d views", layout.AtlasWidth, layout.AtlasHeight,
		layout.Columns, layout.Rows, layout.CellWidth, layout.CellHeight, layout.TotalViews)

	comp, err := quilt.NewCompositor(opts.Device, layout)
	if err != nil {
		return nil, err
	}
	if err := comp.Clear(cfg.ClearColor); err != nil {
		return nil, err
	}
	rep, err := lenticular.NewReprojector(layout, info.Calibration)
	if err != nil {
		return nil, err
	}
	rep.QuiltInvert = cfg.QuiltInvert
	rep.Overscan = cfg.Overscan
	rep.Debug = cfg.Debug
	rep.Background = cfg.ClearColor
	if cfg.QuiltAspect > 0 {
		rep.QuiltAspect = cfg.QuiltAspect
	}

	renderer, err := NewViewRenderer(opts.Device, layout, cfg.Strategy, opts.Surface.Size())
	if err != nil {
		return nil, err
	}

	watcher := device.NewWatcher(opts.Devices, info)
	watcher.Interval = cfg.WatchInterval

	if cfg.FOV <= 0 {
		cfg.FOV = core.DefaultFOV
	}

	return &App{
		cfg:         cfg,
		dev:         opts.Device,
		surface:     opts.Surface,
		scene:       opts.Scene,
		platform:    opts.Platform,
		logger:      logger,
		Info:        info,
		Layout:      layout,
		Renderer:    renderer,
		Compositor:  comp,
		Reprojector: rep,
		Watcher:     watcher,
		Profiler:    NewProfiler(),
		state:       StateReady,
	}, nil
}

func (a *App) State() State { return a.state }

// Err is the reason the loop exited, nil for a requested exit.
func (a *App) Err() error { return a.exitErr }

// RequestExit stops the loop after the frame in flight.
func (a *App) RequestExit() {
	a.exitRequested = true
}

// RequestCapture saves the next completed quilt to Config.CaptureDir.
func (a *App) RequestCapture() {
	a.capture = true
}

func (a *App) setState(s State) {
	if a.state == s {
		return
	}
	a.logger.Debugf("frame loop %v -> %v", a.state, s)
	a.state = s
}

// Start moves Ready to Running.
func (a *App) Start() error {
	switch a.state {
	case StateReady:
		a.setState(StateRunning)
		return nil
	case StateExited:
		return ErrExited
	}
	return fmt.Errorf("app: already %v", a.state)
}

// Run starts the loop and steps it until it exits. Cancelling ctx is an
// exit request.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	for a.state == StateRunning {
		if ctx.Err() != nil {
			a.RequestExit()
		}
		if err := a.Step(ctx); err != nil && !errors.Is(err, ErrExited) {
			return err
		}
	}
	return a.exitErr
}

// Step runs exactly one frame: input, update, every view, reprojection and
// present. Pending exits are applied once the frame is on screen.
func (a *App) Step(ctx context.Context) error {
	if a.state != StateRunning {
		if a.state == StateExited {
			return ErrExited
		}
		return fmt.Errorf("app: step while %v", a.state)
	}

	if err := a.frame(ctx); err != nil {
		a.exitErr = err
		a.logger.Errorf("frame %d failed: %v", a.Frame.Frame, err)
		a.setState(StateExited)
		return err
	}

	if a.exitRequested {
		if a.exitErr != nil {
			a.logger.Warnf("exiting: %v", a.exitErr)
		} else {
			a.logger.Infof("exit requested")
		}
		a.setState(StateExited)
	}
	return nil
}

func (a *App) frame(ctx context.Context) error {
	a.BeginFrame()

	if err := a.Profiler.Scope("views", a.RenderViews); err != nil {
		return err
	}
	if a.capture {
		a.capture = false
		path, err := a.Compositor.SavePNG(a.cfg.CaptureDir, a.Reprojector.ContentAspect())
		if err != nil {
			a.logger.Warnf("quilt capture: %v", err)
		} else {
			a.logger.Infof("quilt saved to %s", path)
		}
	}
	if err := a.Profiler.Scope("reproject", a.Reproject); err != nil {
		return err
	}
	if err := a.Profiler.Scope("present", a.surface.Present); err != nil {
		return err
	}
	a.updateFPS()

	if ctx.Err() != nil {
		return nil
	}
	if err := a.Watcher.Check(ctx, a.Frame.Time); err != nil {
		a.exitErr = err
		a.RequestExit()
	}
	return nil
}

// BeginFrame advances the clock and feeds this frame's input to the scene.
func (a *App) BeginFrame() {
	a.Profiler.Reset()
	a.Frame.Advance(a.platform.Now())

	in := a.platform.PollInput()
	if in.Exit {
		a.RequestExit()
	}
	if in.Capture {
		a.RequestCapture()
	}
	if in.Debug {
		a.Reprojector.Debug = lenticular.DebugView0
	} else {
		a.Reprojector.Debug = a.cfg.Debug
	}

	if pe, ok := a.platform.(PlacementEnforcer); ok && pe.EnforcePlacement() {
		a.logger.Warnf("window moved off the display, restored to %d,%d", a.Info.WindowX, a.Info.WindowY)
	}

	a.scene.HandleInput(in)
	a.scene.Update(a.Frame.DeltaTime)
}

// Rig is the camera rig for the current frame.
func (a *App) Rig() core.CameraRig {
	rig := core.NewCameraRig(a.Info.Calibration.ViewConeOrDefault(), a.scene.CameraSize(), a.Info.WindowAspect())
	rig.FOV = a.cfg.FOV
	return rig
}

// RenderViews renders every view and writes it into its quilt cell.
func (a *App) RenderViews() error {
	rig := a.Rig()
	base := a.scene.BaseViewTransform()
	n := a.Layout.TotalViews
	for i := 0; i < n; i++ {
		a.Frame.BeginView(i)
		cam := rig.ViewCamera(i, n, base)

		a.Profiler.BeginScope("render")
		tex, err := a.Renderer.Render(a.scene, cam)
		a.Profiler.EndScope("render")
		if err != nil {
			return fmt.Errorf("view %d: %w", i, err)
		}

		a.Profiler.BeginScope("compose")
		err = a.Compositor.Write(i, tex)
		a.Profiler.EndScope("compose")
		if err != nil {
			return err
		}
	}
	a.Profiler.SetCount("views", n)
	return nil
}

// Reproject draws the finished quilt onto the surface.
func (a *App) Reproject() error {
	frame, err := a.surface.Acquire()
	if err != nil {
		return err
	}
	return gpu.WithTarget(a.dev, frame, func() error {
		return a.Reprojector.Draw(a.dev, a.Compositor.Atlas())
	})
}

func (a *App) updateFPS() {
	a.frameCount++
	a.fpsTime += a.Frame.DeltaTime
	if a.fpsTime >= 1.0 {
		a.FPS = float64(a.frameCount) / a.fpsTime
		a.logger.Debugf("%.1f fps\n%s", a.FPS, a.Profiler)
		a.frameCount = 0
		a.fpsTime = 0
	}
}
