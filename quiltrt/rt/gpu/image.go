package gpu

import (
	"image"
	"image/color"
	"math"
)

// Image is a 3-channel, 8-bit colour image with no alpha. Rows are stored
// in framebuffer order: row 0 is the bottom row, matching the coordinate
// system viewports and quilt cells are expressed in.
type Image struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
	Name   string
}

var (
	_ Texture = (*Image)(nil)
	_ Sampler = (*Image)(nil)
)

func NewImage(label string, w, h int) *Image {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Image{
		Pix:    make([]uint8, 3*w*h),
		Stride: 3 * w,
		Rect:   image.Rect(0, 0, w, h),
		Name:   label,
	}
}

func (m *Image) Label() string { return m.Name }

func (m *Image) Size() image.Point { return m.Rect.Size() }

func (m *Image) Bounds() image.Rectangle { return m.Rect }

func (m *Image) ColorModel() color.Model { return color.RGBAModel }

func (m *Image) offset(x, y int) int {
	return (y-m.Rect.Min.Y)*m.Stride + (x-m.Rect.Min.X)*3
}

func (m *Image) At(x, y int) color.Color {
	return m.RGBAt(x, y)
}

func (m *Image) RGBAt(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(m.Rect)) {
		return color.RGBA{}
	}
	i := m.offset(x, y)
	return color.RGBA{m.Pix[i], m.Pix[i+1], m.Pix[i+2], 0xff}
}

func (m *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(m.Rect)) {
		return
	}
	m.SetRGB(x, y, color.RGBAModel.Convert(c).(color.RGBA))
}

// SetRGB stores c, dropping alpha.
func (m *Image) SetRGB(x, y int, c color.RGBA) {
	if !(image.Point{x, y}.In(m.Rect)) {
		return
	}
	i := m.offset(x, y)
	m.Pix[i] = c.R
	m.Pix[i+1] = c.G
	m.Pix[i+2] = c.B
}

// Fill sets every pixel inside r to c.
func (m *Image) Fill(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(m.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := m.offset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[i] = c.R
			m.Pix[i+1] = c.G
			m.Pix[i+2] = c.B
			i += 3
		}
	}
}

// Sample is a nearest-neighbour lookup with repeat addressing; (0,0) is the
// bottom-left corner of the image.
func (m *Image) Sample(u, v float32) color.RGBA {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	if w == 0 || h == 0 {
		return color.RGBA{A: 0xff}
	}
	x := wrap(int(math.Floor(float64(u)*float64(w))), w)
	y := wrap(int(math.Floor(float64(v)*float64(h))), h)
	return m.RGBAt(m.Rect.Min.X+x, m.Rect.Min.Y+y)
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// CopyFrom copies src into m. Both images must have the same size.
func (m *Image) CopyFrom(src *Image) bool {
	if m.Rect.Size() != src.Rect.Size() {
		return false
	}
	h := m.Rect.Dy()
	row := 3 * m.Rect.Dx()
	for y := 0; y < h; y++ {
		copy(m.Pix[y*m.Stride:y*m.Stride+row], src.Pix[y*src.Stride:y*src.Stride+row])
	}
	return true
}

// ToRGBA converts to a top-down *image.RGBA, the orientation image
// encoders expect.
func (m *Image) ToRGBA() *image.RGBA {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := m.offset(m.Rect.Min.X, m.Rect.Min.Y+y)
		dst := out.PixOffset(0, h-1-y)
		for x := 0; x < w; x++ {
			out.Pix[dst] = m.Pix[src]
			out.Pix[dst+1] = m.Pix[src+1]
			out.Pix[dst+2] = m.Pix[src+2]
			out.Pix[dst+3] = 0xff
			src += 3
			dst += 4
		}
	}
	return out
}

// RowsTopDown returns the pixels as tightly packed RGBA rows, top row first.
// This is the layout GPU texture uploads expect.
func (m *Image) RowsTopDown() []byte {
	return m.ToRGBA().Pix
}

// DepthBuffer is a float depth attachment matching a colour target.
type DepthBuffer struct {
	Values []float32
	Width  int
	Height int
	Name   string
}

var _ Texture = (*DepthBuffer)(nil)

// NewDepthBuffer returns a buffer cleared to the far plane.
func NewDepthBuffer(w, h int) *DepthBuffer {
	d := &DepthBuffer{Values: make([]float32, w*h), Width: w, Height: h}
	d.Clear(1)
	return d
}

func (d *DepthBuffer) Label() string     { return d.Name }
func (d *DepthBuffer) Size() image.Point { return image.Pt(d.Width, d.Height) }

func (d *DepthBuffer) Clear(v float32) {
	for i := range d.Values {
		d.Values[i] = v
	}
}

func (d *DepthBuffer) At(x, y int) float32 {
	return d.Values[y*d.Width+x]
}

// Test stores z at (x,y) when it is closer than the stored depth.
func (d *DepthBuffer) Test(x, y int, z float32) bool {
	i := y*d.Width + x
	if z < d.Values[i] {
		d.Values[i] = z
		return true
	}
	return false
}
