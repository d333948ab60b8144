package lenticular

import (
	"encoding/binary"
	"image/color"
	"math"
	"testing"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	view0 = color.RGBA{R: 10, G: 20, B: 30, A: 0xff}
	view1 = color.RGBA{R: 40, G: 50, B: 60, A: 0xff}
	view2 = color.RGBA{R: 70, G: 80, B: 90, A: 0xff}
)

// Values in the range a 16:9 device reports.
func deviceCalibration() core.DeviceCalibration {
	return core.DeviceCalibration{
		Pitch:         47.58,
		Tilt:          -0.1153,
		Center:        0.042,
		Subpixel:      0.00013,
		RedIndex:      0,
		BlueIndex:     2,
		DisplayAspect: 16.0 / 9.0,
		Fringe:        0,
		ViewCone:      40,
	}
}

// Three views side by side; pitch 1 puts one full lenticule across the
// output so column x sees view floor(u*3).
func stripCalibration(aspect float32) core.DeviceCalibration {
	return core.DeviceCalibration{
		Pitch:         1,
		Subpixel:      1.0 / 3.0,
		RedIndex:      0,
		BlueIndex:     2,
		DisplayAspect: aspect,
	}
}

func stripLayout(t *testing.T) core.QuiltLayout {
	t.Helper()
	l, err := core.NewQuiltLayout(30, 10, 3, 1, 3)
	require.NoError(t, err)
	return l
}

func fillAtlas(t *testing.T, layout core.QuiltLayout, colors func(i int) color.RGBA) *gpu.Image {
	t.Helper()
	atlas := gpu.NewImage("Atlas", layout.AtlasWidth, layout.AtlasHeight)
	for i := 0; i < layout.TotalViews; i++ {
		cell, err := layout.Cell(i)
		require.NoError(t, err)
		atlas.Fill(cell, colors(i))
	}
	return atlas
}

func stripColors(i int) color.RGBA {
	return [...]color.RGBA{view0, view1, view2}[i]
}

func reproject(t *testing.T, r *Reprojector, atlas *gpu.Image, w, h int) *gpu.Image {
	t.Helper()
	dev := gpu.NewSoftwareDevice()
	out := gpu.NewImage("Window", w, h)
	require.NoError(t, dev.BindTarget(out))
	require.NoError(t, r.Draw(dev, atlas))
	return out
}

func TestReprojector_UniformColorRoundTrip(t *testing.T) {
	layout, err := core.NewQuiltLayout(53, 94, 5, 9, 45)
	require.NoError(t, err)
	flat := color.RGBA{R: 200, G: 120, B: 33, A: 0xff}
	atlas := fillAtlas(t, layout, func(int) color.RGBA { return flat })

	for _, invert := range []bool{false, true} {
		r, err := NewReprojector(layout, deviceCalibration())
		require.NoError(t, err)
		r.QuiltInvert = invert

		out := reproject(t, r, atlas, 64, 36)
		for y := 0; y < 36; y++ {
			for x := 0; x < 64; x++ {
				require.Equal(t, flat, out.RGBAt(x, y), "pixel (%d,%d) invert=%v", x, y, invert)
			}
		}
	}
}

func TestReprojector_ChannelsSampleSeparateViews(t *testing.T) {
	layout := stripLayout(t)
	atlas := fillAtlas(t, layout, stripColors)

	r, err := NewReprojector(layout, stripCalibration(3))
	require.NoError(t, err)
	out := reproject(t, r, atlas, 3, 1)

	// at u=1/6 channel k sees view k
	assert.Equal(t, color.RGBA{R: view0.R, G: view1.G, B: view2.B, A: 0xff}, out.RGBAt(0, 0))

	cal := stripCalibration(3)
	cal.RedIndex, cal.BlueIndex = 2, 0
	r, err = NewReprojector(layout, cal)
	require.NoError(t, err)
	out = reproject(t, r, atlas, 3, 1)
	assert.Equal(t, color.RGBA{R: view2.R, G: view1.G, B: view0.B, A: 0xff}, out.RGBAt(0, 0))
}

func TestReprojector_InvertIsXorOfDeviceAndQuilt(t *testing.T) {
	layout := stripLayout(t)
	atlas := fillAtlas(t, layout, stripColors)
	normal := color.RGBA{R: view0.R, G: view1.G, B: view2.B, A: 0xff}
	flipped := color.RGBA{R: view2.R, G: view1.G, B: view0.B, A: 0xff}

	tests := []struct {
		device, quilt bool
		want          color.RGBA
	}{
		{false, false, normal},
		{true, false, flipped},
		{false, true, flipped},
		{true, true, normal},
	}
	for _, tt := range tests {
		cal := stripCalibration(3)
		cal.Invert = tt.device
		r, err := NewReprojector(layout, cal)
		require.NoError(t, err)
		r.QuiltInvert = tt.quilt
		out := reproject(t, r, atlas, 3, 1)
		assert.Equal(t, tt.want, out.RGBAt(0, 0), "device=%v quilt=%v", tt.device, tt.quilt)
	}
}

func TestReprojector_DebugToggle(t *testing.T) {
	layout := stripLayout(t)
	atlas := fillAtlas(t, layout, stripColors)
	r, err := NewReprojector(layout, stripCalibration(3))
	require.NoError(t, err)

	lens := reproject(t, r, atlas, 3, 1)
	lensUniforms := r.Uniforms()

	r.ToggleDebug()
	assert.Equal(t, DebugView0, r.Debug)
	debug := reproject(t, r, atlas, 3, 1)
	for x := 0; x < 3; x++ {
		assert.Equal(t, view0, debug.RGBAt(x, 0))
	}

	debugUniforms := r.Uniforms()
	require.Len(t, debugUniforms, len(lensUniforms))
	for i := range lensUniforms {
		if i >= 64 && i < 68 {
			continue
		}
		assert.Equal(t, lensUniforms[i], debugUniforms[i], "uniform byte %d", i)
	}
	assert.Equal(t, int32(DebugView0), int32(binary.LittleEndian.Uint32(debugUniforms[64:])))

	r.ToggleDebug()
	assert.Equal(t, DebugOff, r.Debug)
	assert.Equal(t, lens.Pix, reproject(t, r, atlas, 3, 1).Pix)
	assert.Equal(t, lensUniforms, r.Uniforms())
}

func TestReprojector_DebugQuiltShowsAtlas(t *testing.T) {
	layout := stripLayout(t)
	atlas := fillAtlas(t, layout, stripColors)
	r, err := NewReprojector(layout, stripCalibration(3))
	require.NoError(t, err)
	r.Debug = DebugQuilt

	out := reproject(t, r, atlas, 30, 10)
	assert.Equal(t, atlas.Pix, out.Pix)
}

func TestReprojector_LetterboxDiscard(t *testing.T) {
	layout := stripLayout(t)
	flat := color.RGBA{R: 1, G: 2, B: 3, A: 0xff}
	atlas := fillAtlas(t, layout, func(int) color.RGBA { return flat })

	r, err := NewReprojector(layout, stripCalibration(2))
	require.NoError(t, err)
	r.QuiltAspect = 1

	out := reproject(t, r, atlas, 8, 4)
	black := color.RGBA{A: 0xff}
	for y := 0; y < 4; y++ {
		assert.Equal(t, black, out.RGBAt(0, y))
		assert.Equal(t, black, out.RGBAt(7, y))
		assert.Equal(t, flat, out.RGBAt(3, y))
		assert.Equal(t, flat, out.RGBAt(4, y))
	}
}

func TestFitAspect(t *testing.T) {
	u, v, ok := FitAspect(0.5, 0.5, 1, 2, false)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, u, 1e-6)
	assert.InDelta(t, 0.5, v, 1e-6)

	_, _, ok = FitAspect(0.1, 0.5, 1, 2, false)
	assert.False(t, ok)

	u, _, ok = FitAspect(0.3, 0.5, 1, 2, false)
	assert.True(t, ok)
	assert.InDelta(t, 0.1, u, 1e-6)

	// overscan crops instead of letterboxing
	u, v, ok = FitAspect(0, 0, 1, 2, true)
	assert.True(t, ok)
	assert.InDelta(t, 0, u, 1e-6)
	assert.InDelta(t, 0.25, v, 1e-6)

	// equal aspects are untouched in both modes
	for _, over := range []bool{false, true} {
		u, v, ok = FitAspect(0.01, 0.99, 1.5, 1.5, over)
		assert.True(t, ok)
		assert.InDelta(t, 0.01, u, 1e-6)
		assert.InDelta(t, 0.99, v, 1e-6)
	}
}

func TestViewIndexClamps(t *testing.T) {
	assert.Equal(t, 0, ViewIndex(0, 45))
	assert.Equal(t, 22, ViewIndex(0.5, 45))
	assert.Equal(t, 44, ViewIndex(1, 45))
	assert.Equal(t, 44, ViewIndex(math.Nextafter32(1, 0), 45))
}

func TestSliceCoordinateWraps(t *testing.T) {
	cal := core.DeviceCalibration{Pitch: 2, Center: 0.25, RedIndex: 0, BlueIndex: 2, DisplayAspect: 1}
	z := SliceCoordinate(0.1, 0, 0, cal, false)
	assert.InDelta(t, 0.95, z, 1e-5)
	assert.InDelta(t, 0.05, SliceCoordinate(0.1, 0, 0, cal, true), 1e-5)
}

func TestAtlasUVUsesViewPortion(t *testing.T) {
	layout, err := core.NewQuiltLayout(4096, 4096, 5, 9, 45)
	require.NoError(t, err)

	u, v := AtlasUV(layout, 44, 1, 1)
	assert.InDelta(t, layout.ViewPortion.X(), u, 1e-6)
	assert.InDelta(t, layout.ViewPortion.Y(), v, 1e-6)

	u, v = AtlasUV(layout, 6, 0, 0)
	assert.InDelta(t, float32(819)/4096, u, 1e-6)
	assert.InDelta(t, float32(455)/4096, v, 1e-6)
}

func TestUniformsLayout(t *testing.T) {
	layout, err := core.PlanQuilt(core.PresetHighRes)
	require.NoError(t, err)
	r, err := NewReprojector(layout, deviceCalibration())
	require.NoError(t, err)

	b := r.Uniforms()
	require.Len(t, b, 80)
	assert.Equal(t, float32(47.58), math.Float32frombits(binary.LittleEndian.Uint32(b[0:])))
	assert.Equal(t, float32(16.0/9.0), math.Float32frombits(binary.LittleEndian.Uint32(b[20:])))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[28:]))
	assert.Equal(t, float32(5), math.Float32frombits(binary.LittleEndian.Uint32(b[32:])))
	assert.Equal(t, float32(45), math.Float32frombits(binary.LittleEndian.Uint32(b[40:])))
	assert.Equal(t, layout.ViewPortion.X(), math.Float32frombits(binary.LittleEndian.Uint32(b[48:])))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[56:]))
	assert.Equal(t, make([]byte, 12), b[68:], "trailing padding")

	r.Overscan = true
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(r.Uniforms()[60:]))
}

func TestContentAspectFallsBackToDisplay(t *testing.T) {
	r, err := NewReprojector(stripLayout(t), deviceCalibration())
	require.NoError(t, err)

	r.QuiltAspect = 0
	assert.Equal(t, r.Calibration.DisplayAspect, r.ContentAspect())
	r.QuiltAspect = 0.75
	assert.Equal(t, float32(0.75), r.ContentAspect())
}

func TestNewReprojectorRejectsBadCalibration(t *testing.T) {
	cal := deviceCalibration()
	cal.RedIndex = 1
	_, err := NewReprojector(stripLayout(t), cal)
	assert.ErrorIs(t, err, core.ErrInvalidCalibration)
}
