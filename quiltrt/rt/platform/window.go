package platform

import (
	"fmt"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Geometry is the movable part of a window. *glfw.Window implements it.
type Geometry interface {
	GetPos() (x, y int)
	GetSize() (w, h int)
	SetPos(x, y int)
	SetSize(w, h int)
}

// Placement pins a window to the display rectangle of a device.
type Placement struct {
	X, Y, Width, Height int
}

func PlacementFor(info core.DeviceInfo) Placement {
	return Placement{X: info.WindowX, Y: info.WindowY, Width: info.ScreenWidth, Height: info.ScreenHeight}
}

// Enforce moves and resizes w back onto the display. It reports whether
// anything had drifted.
func (p Placement) Enforce(w Geometry) bool {
	x, y := w.GetPos()
	width, height := w.GetSize()
	if x == p.X && y == p.Y && width == p.Width && height == p.Height {
		return false
	}
	w.SetPos(p.X, p.Y)
	w.SetSize(p.Width, p.Height)
	return true
}

// Window is an undecorated GLFW window covering the light field display.
// It implements the frame loop's Platform and PlacementEnforcer.
type Window struct {
	Window    *glfw.Window
	Placement Placement
	Input     *InputReader
}

// OpenWindow creates the window. glfw.Init must already have been called on
// the main thread.
func OpenWindow(info core.DeviceInfo, title string, captureMouse bool) (*Window, error) {
	if info.ScreenWidth <= 0 || info.ScreenHeight <= 0 {
		return nil, fmt.Errorf("platform: display %q has no screen size", info.Name)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.CenterCursor, glfw.False)

	win, err := glfw.CreateWindow(info.ScreenWidth, info.ScreenHeight, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: create window: %w", err)
	}
	w := &Window{
		Window:    win,
		Placement: PlacementFor(info),
		Input:     NewInputReader(win),
	}
	win.SetPos(info.WindowX, info.WindowY)
	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.Input.AddScroll(yoff)
	})
	if captureMouse {
		win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	}
	w.Input.Mouselook = captureMouse
	return w, nil
}

func (w *Window) Now() float64 { return glfw.GetTime() }

// PollInput pumps window events. Closing the window counts as an exit.
func (w *Window) PollInput() core.InputState {
	glfw.PollEvents()
	in := w.Input.Read()
	if w.Window.ShouldClose() {
		in.Exit = true
	}
	return in
}

func (w *Window) EnforcePlacement() bool {
	return w.Placement.Enforce(w.Window)
}

func (w *Window) Destroy() {
	w.Window.Destroy()
}
