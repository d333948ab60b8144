package scene

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeightField(t *testing.T) {
	assert.InDelta(t, 0, HeightAt(0, 0), 1e-6)
	assert.InDelta(t, 2, HeightAt(math.Pi/2, math.Pi/2), 1e-5)
	assert.InDelta(t, -2, HeightAt(-math.Pi/2, math.Pi/2), 1e-5)

	c := HeightColor(0)
	assert.InDelta(t, 0.5, c.X(), 1e-6)
	assert.InDelta(t, 0.5, c.Y(), 1e-6)
	assert.Equal(t, float32(1), c.Z())
}

func TestFlyCamera_Defaults(t *testing.T) {
	c := NewFlyCamera()
	f := c.Forward()
	assert.InDelta(t, 0, f.X(), 1e-6)
	assert.InDelta(t, 0, f.Y(), 1e-6)
	assert.InDelta(t, -1, f.Z(), 1e-6)
	assert.InDelta(t, 1, c.Right().X(), 1e-6)
}

func TestFlyCamera_Apply(t *testing.T) {
	c := NewFlyCamera()
	c.Apply(core.InputState{Forward: true}, 0.5)
	assert.InDelta(t, 0.5, c.Position.Z(), 1e-5)

	c.Apply(core.InputState{Right: true}, 0.2)
	assert.InDelta(t, 1, c.Position.X(), 1e-5)

	c.Apply(core.InputState{MouseDY: -1000}, 0)
	assert.Equal(t, float32(89), c.Pitch)
}

func TestTerrain_ScrollZoomIsClamped(t *testing.T) {
	s := NewTerrain()
	s.HandleInput(core.InputState{Scroll: 2})
	assert.Equal(t, float32(3), s.CameraSize())

	s.HandleInput(core.InputState{Scroll: 50})
	assert.Equal(t, core.MinCameraSize, s.CameraSize())

	s.HandleInput(core.InputState{Scroll: -50})
	assert.Equal(t, core.MaxCameraSize, s.CameraSize())
}

func TestTerrain_UpdateMovesCamera(t *testing.T) {
	s := NewTerrain()
	s.HandleInput(core.InputState{Back: true})
	s.Update(1)
	assert.InDelta(t, 8, s.Camera.Position.Z(), 1e-5)
	assert.Equal(t, s.Camera.ViewMatrix(), s.BaseViewTransform())
}

func newTarget(t *testing.T, dev gpu.Device, w, h int) (*gpu.RenderTarget, *gpu.Image, *gpu.DepthBuffer) {
	t.Helper()
	target, err := gpu.NewRenderTarget(dev, "View", image.Pt(w, h))
	require.NoError(t, err)
	return target, target.Color.(*gpu.Image), target.Depth.(*gpu.DepthBuffer)
}

func TestTerrain_RenderView(t *testing.T) {
	s := NewTerrain()
	s.Size = core.MaxCameraSize
	rig := core.NewCameraRig(40, s.CameraSize(), 1)
	cam := rig.ViewCamera(22, 45, s.BaseViewTransform())

	dev := gpu.NewSoftwareDevice()
	dev.Workers = 3
	target, img, depth := newTarget(t, dev, 32, 32)
	require.NoError(t, s.RenderView(dev, cam, target))

	// looking down on the lit middle of the field
	center := img.RGBAt(16, 16)
	assert.NotEqual(t, color.RGBA{A: 0xff}, center)
	assert.Greater(t, center.B, uint8(150))
	assert.Less(t, depth.At(16, 16), float32(1))

	// the field is narrower than the frustum at this distance
	assert.Equal(t, color.RGBA{A: 0xff}, img.RGBAt(0, 0))
	assert.Equal(t, float32(1), depth.At(0, 0))

	assert.Nil(t, dev.Depth(), "depth detached after the view")
}

func TestTerrain_RenderViewClearsPreviousView(t *testing.T) {
	s := NewTerrain()
	s.Size = core.MaxCameraSize
	rig := core.NewCameraRig(40, s.CameraSize(), 1)
	cam := rig.ViewCamera(22, 45, s.BaseViewTransform())

	dev := gpu.NewSoftwareDevice()
	target, img, _ := newTarget(t, dev, 16, 16)
	require.NoError(t, s.RenderView(dev, cam, target))
	first := append([]uint8(nil), img.Pix...)

	// a second pass over a kept depth buffer would discard every fragment
	require.NoError(t, s.RenderView(dev, cam, target))
	assert.Equal(t, first, img.Pix)
}

func TestTerrain_ParallelMatchesSerial(t *testing.T) {
	s := NewTerrain()
	rig := core.NewCameraRig(40, s.CameraSize(), 1.5)
	cam := rig.ViewCamera(3, 45, s.BaseViewTransform())

	dev := gpu.NewSoftwareDevice()
	dev.Workers = 1
	serial, serialImg, serialDepth := newTarget(t, dev, 24, 16)
	require.NoError(t, s.RenderView(dev, cam, serial))

	dev.Workers = 7
	parallel, parallelImg, parallelDepth := newTarget(t, dev, 24, 16)
	require.NoError(t, s.RenderView(dev, cam, parallel))

	assert.Equal(t, serialImg.Pix, parallelImg.Pix)
	assert.Equal(t, serialDepth.Values, parallelDepth.Values)
}

func TestTerrainProgram_Uniforms(t *testing.T) {
	s := NewTerrain()
	rig := core.NewCameraRig(40, s.CameraSize(), 1.5)
	p, err := s.Program(rig.ViewCamera(0, 45, s.BaseViewTransform()))
	require.NoError(t, err)

	b := p.Uniforms()
	require.Len(t, b, 160)
	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	assert.Equal(t, p.InvViewProj[0], f32(0))
	assert.Equal(t, p.ViewProj[15], f32(124))
	assert.Equal(t, p.Eye.Z(), f32(136))
	assert.Equal(t, float32(5), f32(140))
	assert.Equal(t, float32(1), f32(152))
	assert.Equal(t, float32(96), f32(156))
	assert.False(t, p.SamplesTexture())
}

func TestTerrain_SingularCamera(t *testing.T) {
	s := NewTerrain()
	dev := gpu.NewSoftwareDevice()
	target, _, _ := newTarget(t, dev, 4, 4)
	assert.Error(t, s.RenderView(dev, core.ViewCamera{}, target))
}

func TestSolid_RenderView(t *testing.T) {
	c := color.RGBA{R: 12, G: 34, B: 56, A: 0xff}
	s := NewSolid(c)
	dev := gpu.NewSoftwareDevice()
	target, img, _ := newTarget(t, dev, 4, 4)
	require.NoError(t, s.RenderView(dev, core.ViewCamera{}, target))
	assert.Equal(t, c, img.RGBAt(3, 3))
	assert.Equal(t, 1, s.Rendered)
}
