package lenticular

import (
	"fmt"
	"image/color"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/gekko3d/holoquilt/quiltrt/rt/shaders"
)

type DebugMode int32

const (
	DebugOff DebugMode = iota
	// DebugView0 shows view 0 stretched over the display, bypassing the
	// lens model.
	DebugView0
	// DebugQuilt shows the whole atlas.
	DebugQuilt
)

func (m DebugMode) String() string {
	switch m {
	case DebugOff:
		return "off"
	case DebugView0:
		return "view0"
	case DebugQuilt:
		return "quilt"
	}
	return fmt.Sprintf("DebugMode(%d)", int32(m))
}

// Reprojector turns a finished quilt into the interleaved frame a
// lenticular display shows. It is a gpu.Program: the software device runs
// Shade per pixel, GPU devices run shaders.LightfieldWGSL with Uniforms.
type Reprojector struct {
	Layout      core.QuiltLayout
	Calibration core.DeviceCalibration

	// QuiltAspect is the aspect of the content in one cell. Defaults to
	// the display aspect.
	QuiltAspect float32
	Overscan    bool
	// QuiltInvert is XORed with the device's own invert flag.
	QuiltInvert bool
	Debug       DebugMode
	// Background fills the display outside the fitted quilt.
	Background color.RGBA
}

var _ gpu.Program = (*Reprojector)(nil)

func NewReprojector(layout core.QuiltLayout, cal core.DeviceCalibration) (*Reprojector, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &Reprojector{
		Layout:      layout,
		Calibration: cal,
		QuiltAspect: cal.DisplayAspect,
		Background:  color.RGBA{A: 0xff},
	}, nil
}

// SetDebugView0 switches between view-0 passthrough and lens output.
func (r *Reprojector) SetDebugView0(on bool) {
	if on {
		r.Debug = DebugView0
	} else {
		r.Debug = DebugOff
	}
}

func (r *Reprojector) ToggleDebug() {
	r.SetDebugView0(r.Debug == DebugOff)
}

func (r *Reprojector) invert() bool {
	return r.Calibration.Invert != r.QuiltInvert
}

// ContentAspect is QuiltAspect, or the display aspect when unset.
func (r *Reprojector) ContentAspect() float32 {
	if r.QuiltAspect > 0 {
		return r.QuiltAspect
	}
	return r.Calibration.DisplayAspect
}

func (r *Reprojector) Label() string { return "Lightfield" }
func (r *Reprojector) WGSL() string  { return shaders.LightfieldWGSL }

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// Uniforms packs the Lightfield struct of lightfield.wgsl (80 bytes).
func (r *Reprojector) Uniforms() []byte {
	c := r.Calibration
	l := r.Layout
	return gpu.UniformBlock(make([]byte, 0, 80)).
		F32(c.Pitch, c.Tilt, c.Center, c.Subpixel, c.DisplayAspect, r.ContentAspect()).
		I32(int32(c.RedIndex), int32(c.BlueIndex)).
		F32(float32(l.Columns), float32(l.Rows), float32(l.TotalViews), 0).
		F32(l.ViewPortion.X(), l.ViewPortion.Y()).
		I32(boolToInt32(r.invert()), boolToInt32(r.Overscan), int32(r.Debug)).
		Pad(3).
		Bytes()
}

func (r *Reprojector) Shade(u, v float32, src gpu.Sampler) (color.RGBA, bool) {
	if src == nil {
		return color.RGBA{A: 0xff}, true
	}
	switch r.Debug {
	case DebugView0:
		return src.Sample(AtlasUV(r.Layout, 0, u, v)), true
	case DebugQuilt:
		return src.Sample(u, v), true
	}

	nu, nv, ok := FitAspect(u, v, r.ContentAspect(), r.Calibration.DisplayAspect, r.Overscan)
	if !ok {
		return color.RGBA{}, false
	}

	invert := r.invert()
	var rgb [3]color.RGBA
	for k := range rgb {
		z := SliceCoordinate(u, v, k, r.Calibration, invert)
		rgb[k] = src.Sample(AtlasUV(r.Layout, ViewIndex(z, r.Layout.TotalViews), nu, nv))
	}
	return color.RGBA{
		R: rgb[r.Calibration.RedIndex].R,
		G: rgb[1].G,
		B: rgb[r.Calibration.BlueIndex].B,
		A: 0xff,
	}, true
}

// Draw clears the bound target to Background and reprojects atlas over
// all of it.
func (r *Reprojector) Draw(dev gpu.Device, atlas gpu.Texture) error {
	return gpu.WithViewport(dev, gpu.FullTarget(dev), func() error {
		if err := dev.Clear(r.Background); err != nil {
			return err
		}
		if err := dev.Draw(r, atlas); err != nil {
			return fmt.Errorf("lenticular: %w", err)
		}
		return nil
	})
}
