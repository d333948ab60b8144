package gpu

import (
	"image/color"

	"github.com/gekko3d/holoquilt/quiltrt/rt/shaders"
)

// BlitProgram stretches its input texture over the viewport.
type BlitProgram struct{}

func (BlitProgram) Label() string    { return "Blit" }
func (BlitProgram) WGSL() string     { return shaders.BlitWGSL }
func (BlitProgram) Uniforms() []byte { return nil }

func (BlitProgram) Shade(u, v float32, src Sampler) (color.RGBA, bool) {
	if src == nil {
		return color.RGBA{A: 0xff}, true
	}
	return src.Sample(u, v), true
}

// SolidProgram fills the viewport with one colour. GPU devices use it to
// honour the scissor when clearing.
type SolidProgram struct {
	Color color.RGBA
}

func (SolidProgram) Label() string { return "Solid" }
func (SolidProgram) WGSL() string  { return shaders.SolidWGSL }

func (p SolidProgram) Uniforms() []byte {
	return UniformBlock(make([]byte, 0, 16)).
		F32(float32(p.Color.R)/255, float32(p.Color.G)/255, float32(p.Color.B)/255, 1).
		Bytes()
}

func (p SolidProgram) Shade(u, v float32, src Sampler) (color.RGBA, bool) {
	c := p.Color
	c.A = 0xff
	return c, true
}
