package scene

import (
	"image/color"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Solid renders every view as one flat colour. It is the round-trip test
// pattern: a correct pipeline shows exactly Color on every output pixel.
type Solid struct {
	Color color.RGBA
	Size  float32

	// Rendered counts RenderView calls.
	Rendered int
}

func NewSolid(c color.RGBA) *Solid {
	return &Solid{Color: c, Size: core.DefaultCameraSize}
}

func (s *Solid) Update(dt float64)              {}
func (s *Solid) HandleInput(in core.InputState) {}
func (s *Solid) BaseViewTransform() mgl32.Mat4  { return mgl32.Ident4() }
func (s *Solid) CameraSize() float32            { return s.Size }

func (s *Solid) RenderView(dev gpu.Device, cam core.ViewCamera, target *gpu.RenderTarget) error {
	s.Rendered++
	return target.Clear(dev, s.Color)
}
