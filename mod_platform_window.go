package holoquilt

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gekko3d/holoquilt/quiltrt/rt/device"
	"github.com/gekko3d/holoquilt/quiltrt/rt/platform"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// PlatformWindowModule opens the undecorated window on the first light
// field display and a WebGPU device for it. It provides *platform.Window
// and *platform.GPU resources. Without a display nothing is installed and
// LightFieldModule exits with device.ErrNoDevice.
type PlatformWindowModule struct {
	Title        string
	CaptureMouse bool
	Devices      device.Source
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	if _, ok := Resource[platform.Window](app); ok {
		return
	}
	title := m.Title
	if title == "" {
		title = "Looking Glass Output"
	}

	info, err := device.FirstDevice(context.Background(), m.Devices)
	if err != nil {
		app.Logger().Errorf("platform window: %v", err)
		return
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(fmt.Sprintf("glfw init: %v", err))
	}
	win, err := platform.OpenWindow(info, title, m.CaptureMouse)
	if err != nil {
		panic(err)
	}
	g, err := platform.OpenGPU(win)
	if err != nil {
		panic(err)
	}
	app.Logger().Infof("window '%s' opened at (%d, %d), size %dx%d",
		title, info.WindowX, info.WindowY, info.ScreenWidth, info.ScreenHeight)
	cmd.AddResources(win, g)

	teardown := System(func(win *platform.Window, g *platform.GPU) {
		g.Release()
		win.Destroy()
		glfw.Terminate()
	}).InStage(Finale)
	if app.stateful {
		cmd.UseSystem(teardown.InState(OnEnter(app.finalState)))
	}
}
