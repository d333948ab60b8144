package lenticular

import (
	"math"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
)

func fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

func step(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

// FitAspect maps a normalised output coordinate into the quilt's content
// area so that content is fit rather than stretched. Without overscan the
// whole quilt stays visible (letterbox or pillarbox); with overscan the
// display is filled and the quilt is cropped. ok is false for coordinates
// that fall outside the content.
func FitAspect(u, v, quiltAspect, displayAspect float32, overscan bool) (float32, float32, bool) {
	var over float32
	if overscan {
		over = 1
	}
	modx := step(quiltAspect, displayAspect)*step(over, 0.5) +
		step(displayAspect, quiltAspect)*step(0.5, over)
	modx = min(max(modx, 0), 1)

	x, y := u-0.5, v-0.5
	x = modx*x*displayAspect/quiltAspect + (1-modx)*x
	y = modx*y + (1-modx)*y*quiltAspect/displayAspect
	x, y = x+0.5, y+0.5
	if x < 0 || y < 0 || x > 1 || y > 1 {
		return 0, 0, false
	}
	return x, y, true
}

// SliceCoordinate is the position, in [0,1), of subpixel channel k of the
// output pixel (u,v) across one lenticule.
func SliceCoordinate(u, v float32, k int, cal core.DeviceCalibration, invert bool) float32 {
	z := fract((u+float32(k)*cal.Subpixel+v*cal.Tilt)*cal.Pitch - cal.Center)
	if invert {
		z = fract(-z)
	}
	return z
}

// ViewIndex maps a slice coordinate to the view seen through it.
func ViewIndex(slice float32, totalViews int) int {
	i := int(math.Floor(float64(slice * float32(totalViews))))
	return min(max(i, 0), totalViews-1)
}

// AtlasUV returns the atlas coordinate of (u,v) inside the cell of view.
func AtlasUV(layout core.QuiltLayout, view int, u, v float32) (float32, float32) {
	row := view / layout.Columns
	col := view % layout.Columns
	x := (float32(col) + u) / float32(layout.Columns)
	y := (float32(row) + v) / float32(layout.Rows)
	return x * layout.ViewPortion.X(), y * layout.ViewPortion.Y()
}
