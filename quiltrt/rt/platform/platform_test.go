package platform

import (
	"testing"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

type fakeKeys struct {
	down map[glfw.Key]bool
	x, y float64
}

func newFakeKeys() *fakeKeys { return &fakeKeys{down: map[glfw.Key]bool{}} }

func (f *fakeKeys) GetKey(k glfw.Key) glfw.Action {
	if f.down[k] {
		return glfw.Press
	}
	return glfw.Release
}

func (f *fakeKeys) GetCursorPos() (float64, float64) { return f.x, f.y }

func TestInputReader_Keys(t *testing.T) {
	keys := newFakeKeys()
	r := NewInputReader(keys)

	keys.down[glfw.KeyEscape] = true
	keys.down[glfw.KeySpace] = true
	keys.down[glfw.KeyW] = true
	keys.down[glfw.KeyA] = true
	in := r.Read()
	assert.True(t, in.Exit)
	assert.True(t, in.Debug)
	assert.True(t, in.Forward)
	assert.True(t, in.Left)
	assert.False(t, in.Back)
	assert.False(t, in.Right)

	keys.down = map[glfw.Key]bool{}
	assert.Equal(t, core.InputState{}, r.Read())
}

func TestInputReader_CaptureIsEdgeTriggered(t *testing.T) {
	keys := newFakeKeys()
	r := NewInputReader(keys)

	keys.down[glfw.KeyC] = true
	assert.True(t, r.Read().Capture)
	assert.False(t, r.Read().Capture, "held key captures once")

	keys.down[glfw.KeyC] = false
	assert.False(t, r.Read().Capture)
	keys.down[glfw.KeyC] = true
	assert.True(t, r.Read().Capture)
}

func TestInputReader_MouseDelta(t *testing.T) {
	keys := newFakeKeys()
	keys.x, keys.y = 100, 50
	r := NewInputReader(keys)

	in := r.Read()
	assert.Zero(t, in.MouseDX, "first read only primes the cursor")
	assert.Zero(t, in.MouseDY)

	keys.x, keys.y = 110, 45
	in = r.Read()
	assert.Equal(t, 10.0, in.MouseDX)
	assert.Equal(t, -5.0, in.MouseDY)

	r.Mouselook = false
	keys.x = 200
	in = r.Read()
	assert.Zero(t, in.MouseDX)
}

func TestInputReader_ScrollAccumulatesUntilRead(t *testing.T) {
	r := NewInputReader(newFakeKeys())
	r.AddScroll(1)
	r.AddScroll(0.5)
	assert.Equal(t, 1.5, r.Read().Scroll)
	assert.Zero(t, r.Read().Scroll)
}

type fakeGeometry struct {
	x, y, w, h int
	moves      int
}

func (g *fakeGeometry) GetPos() (int, int)  { return g.x, g.y }
func (g *fakeGeometry) GetSize() (int, int) { return g.w, g.h }
func (g *fakeGeometry) SetPos(x, y int)     { g.x, g.y = x, y; g.moves++ }
func (g *fakeGeometry) SetSize(w, h int)    { g.w, g.h = w, h }

func TestPlacement_Enforce(t *testing.T) {
	info := core.DeviceInfo{WindowX: 1920, WindowY: 0, ScreenWidth: 2560, ScreenHeight: 1600}
	p := PlacementFor(info)

	win := &fakeGeometry{x: 1920, y: 0, w: 2560, h: 1600}
	assert.False(t, p.Enforce(win))
	assert.Zero(t, win.moves)

	win.x, win.w = 10, 800
	assert.True(t, p.Enforce(win))
	assert.Equal(t, fakeGeometry{x: 1920, y: 0, w: 2560, h: 1600, moves: 1}, *win)
}
