package holoquilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/gekko3d/holoquilt/quiltrt/rt/app"
	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/device"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/gekko3d/holoquilt/quiltrt/rt/platform"
)

// LightField is the resource holding the display frame loop.
type LightField struct {
	Loop *app.App
	// Err is why the loop stopped; nil for a requested exit.
	Err error
}

// LightFieldModule drives the light field frame loop from the engine. It
// needs an app built with UseStates(StateReady, StateExited): the loop is
// created on entering Ready, stepped once per tick in Render while Running,
// and the app moves to Exited when the loop exits.
//
// Device and Surface default to the *platform.GPU resource; set both to run
// headless.
type LightFieldModule struct {
	Config  app.Config
	Scene   app.Scene
	Devices device.Source
	Device  gpu.Device
	Surface gpu.Surface
	// Context cancellation is an exit request. Nil means never cancelled.
	Context context.Context
}

// enginePlatform feeds the frame loop from the Time and Input resources.
type enginePlatform struct {
	time  *Time
	input *Input
	win   *platform.Window
}

func (p enginePlatform) Now() float64               { return p.time.Now }
func (p enginePlatform) PollInput() core.InputState { return p.input.InputState }

func (p enginePlatform) EnforcePlacement() bool {
	if p.win == nil {
		return false
	}
	return p.win.EnforcePlacement()
}

func (m LightFieldModule) Install(a *App, cmd *Commands) {
	if !a.stateful || a.initialState != StateReady || a.finalState != StateExited {
		panic("LightFieldModule needs UseStates(StateReady, StateExited)")
	}
	if m.Scene == nil || m.Devices == nil {
		panic("LightFieldModule needs a Scene and a device Source")
	}
	ensureSingleRenderer(a, "lightfield")

	ctx := m.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := Resource[Time](a); !ok {
		TimeModule{}.Install(a, cmd)
	}
	if _, ok := Resource[Input](a); !ok {
		InputModule{}.Install(a, cmd)
	}
	cmd.AddResources(&LightField{})

	cmd.UseSystem(System(func(lf *LightField, t *Time, in *Input, cmd *Commands) {
		if err := m.start(ctx, a, lf, t, in); err != nil {
			lf.Err = err
			a.Logger().Errorf("light field: %v", err)
			cmd.ChangeState(StateExited)
			return
		}
		cmd.ChangeState(StateRunning)
	}).InStage(PreUpdate).InState(OnEnter(StateReady)))

	cmd.UseSystem(System(func(lf *LightField, cmd *Commands) {
		if ctx.Err() != nil {
			lf.Loop.RequestExit()
		}
		err := lf.Loop.Step(ctx)
		if lf.Loop.State() != app.StateExited {
			return
		}
		lf.Err = lf.Loop.Err()
		if lf.Err == nil && err != nil && !errors.Is(err, app.ErrExited) {
			lf.Err = err
		}
		cmd.ChangeState(StateExited)
	}).InStage(Render).InState(OnExecute(StateRunning)))

	cmd.UseSystem(System(func(lf *LightField) {
		if lf.Err != nil {
			a.Logger().Warnf("light field stopped: %v", lf.Err)
			return
		}
		a.Logger().Infof("light field stopped")
	}).InStage(Finale).InState(OnEnter(StateExited)))
}

func (m LightFieldModule) start(ctx context.Context, a *App, lf *LightField, t *Time, in *Input) error {
	dev, surface := m.Device, m.Surface
	win, _ := Resource[platform.Window](a)
	if dev == nil || surface == nil {
		g, ok := Resource[platform.GPU](a)
		if !ok {
			if _, err := device.FirstDevice(ctx, m.Devices); err != nil {
				return err
			}
			return fmt.Errorf("lightfield: no GPU device; install PlatformWindowModule or set Device and Surface")
		}
		dev, surface = g.Device, g.Surface
	}

	loop, err := app.NewApp(ctx, m.Config, app.Options{
		Device:   dev,
		Surface:  surface,
		Scene:    m.Scene,
		Platform: enginePlatform{time: t, input: in, win: win},
		Devices:  m.Devices,
		Logger:   a.Logger(),
	})
	if err != nil {
		return err
	}
	if err := loop.Start(); err != nil {
		return err
	}
	lf.Loop = loop
	return nil
}
