package platform

import (
	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// KeyState is the polled part of a window. *glfw.Window implements it.
type KeyState interface {
	GetKey(key glfw.Key) glfw.Action
	GetCursorPos() (x, y float64)
}

// Bindings maps frame loop actions to keys.
type Bindings struct {
	Exit, Debug, Capture       glfw.Key
	Forward, Back, Left, Right glfw.Key
}

func DefaultBindings() Bindings {
	return Bindings{
		Exit:    glfw.KeyEscape,
		Debug:   glfw.KeySpace,
		Capture: glfw.KeyC,
		Forward: glfw.KeyW,
		Back:    glfw.KeyS,
		Left:    glfw.KeyA,
		Right:   glfw.KeyD,
	}
}

// InputReader turns polled key state, cursor motion and accumulated scroll
// into one core.InputState per frame.
type InputReader struct {
	Keys      Bindings
	Mouselook bool

	src         KeyState
	lastX       float64
	lastY       float64
	cursorKnown bool
	scroll      float64
	captureHeld bool
}

func NewInputReader(src KeyState) *InputReader {
	return &InputReader{Keys: DefaultBindings(), Mouselook: true, src: src}
}

// AddScroll accumulates wheel motion until the next Read.
func (r *InputReader) AddScroll(dy float64) {
	r.scroll += dy
}

func (r *InputReader) pressed(k glfw.Key) bool {
	return r.src.GetKey(k) == glfw.Press
}

func (r *InputReader) Read() core.InputState {
	in := core.InputState{
		Exit:    r.pressed(r.Keys.Exit),
		Debug:   r.pressed(r.Keys.Debug),
		Forward: r.pressed(r.Keys.Forward),
		Back:    r.pressed(r.Keys.Back),
		Left:    r.pressed(r.Keys.Left),
		Right:   r.pressed(r.Keys.Right),
		Scroll:  r.scroll,
	}
	r.scroll = 0

	held := r.pressed(r.Keys.Capture)
	in.Capture = held && !r.captureHeld
	r.captureHeld = held

	x, y := r.src.GetCursorPos()
	if r.cursorKnown && r.Mouselook {
		in.MouseDX = x - r.lastX
		in.MouseDY = y - r.lastY
	}
	r.lastX, r.lastY = x, y
	r.cursorKnown = true
	return in
}
