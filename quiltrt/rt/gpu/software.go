package gpu

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// SoftwareDevice rasterises full-screen passes on the CPU into *Image
// textures. It keeps the same viewport/scissor semantics as the GPU device
// and is what headless runs and tests draw with. Rows are shaded in
// parallel bands, so Program.Shade must not mutate shared state.
type SoftwareDevice struct {
	target    *Image
	depth     *DepthBuffer
	viewport  image.Rectangle
	scissor   image.Rectangle
	scissorOn bool

	// Workers is the number of row bands shaded at once; 0 or 1 is serial.
	Workers int
	// Draws counts Draw calls that touched at least one pixel.
	Draws int
}

var (
	_ Device    = (*SoftwareDevice)(nil)
	_ Reader    = (*SoftwareDevice)(nil)
	_ Resampler = (*SoftwareDevice)(nil)
)

func NewSoftwareDevice() *SoftwareDevice {
	return &SoftwareDevice{Workers: runtime.NumCPU()}
}

func (d *SoftwareDevice) NewTexture(label string, size image.Point) (Texture, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("software: texture %q has invalid size %v", label, size)
	}
	return NewImage(label, size.X, size.Y), nil
}

func (d *SoftwareDevice) image(t Texture) (*Image, error) {
	img, ok := t.(*Image)
	if !ok || img == nil {
		return nil, fmt.Errorf("software: %w: %T", ErrUnsupportedTexture, t)
	}
	return img, nil
}

func (d *SoftwareDevice) Upload(dst Texture, src *Image) error {
	img, err := d.image(dst)
	if err != nil {
		return err
	}
	if img == src {
		return nil
	}
	if !img.CopyFrom(src) {
		return fmt.Errorf("software: upload %v into %q of size %v", src.Size(), img.Name, img.Size())
	}
	return nil
}

func (d *SoftwareDevice) Read(t Texture) (*Image, error) {
	img, err := d.image(t)
	if err != nil {
		return nil, err
	}
	out := NewImage(img.Name, img.Rect.Dx(), img.Rect.Dy())
	out.CopyFrom(img)
	return out, nil
}

func (d *SoftwareDevice) BindTarget(t Texture) error {
	img, err := d.image(t)
	if err != nil {
		return err
	}
	d.target = img
	if d.viewport.Empty() {
		d.viewport = img.Rect
	}
	return nil
}

func (d *SoftwareDevice) Target() Texture {
	if d.target == nil {
		return nil
	}
	return d.target
}

func (d *SoftwareDevice) Viewport() image.Rectangle {
	return d.viewport
}

func (d *SoftwareDevice) SetViewport(r image.Rectangle) {
	d.viewport = r
}

func (d *SoftwareDevice) Scissor() (image.Rectangle, bool) {
	return d.scissor, d.scissorOn
}

func (d *SoftwareDevice) SetScissor(r image.Rectangle, enabled bool) {
	d.scissor = r
	d.scissorOn = enabled
}

func (d *SoftwareDevice) clip(r image.Rectangle) image.Rectangle {
	r = r.Intersect(d.target.Rect)
	if d.scissorOn {
		r = r.Intersect(d.scissor)
	}
	return r
}

func (d *SoftwareDevice) Clear(c color.RGBA) error {
	if d.target == nil {
		return fmt.Errorf("software: clear with no target bound")
	}
	d.target.Fill(d.clip(d.target.Rect), c)
	return nil
}

func (d *SoftwareDevice) NewDepthTexture(label string, size image.Point) (Texture, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("software: depth texture %q has invalid size %v", label, size)
	}
	db := NewDepthBuffer(size.X, size.Y)
	db.Name = label
	return db, nil
}

func (d *SoftwareDevice) BindDepth(t Texture) error {
	if t == nil {
		d.depth = nil
		return nil
	}
	db, ok := t.(*DepthBuffer)
	if !ok || db == nil {
		return fmt.Errorf("software: %w: %T is not a depth buffer", ErrUnsupportedTexture, t)
	}
	d.depth = db
	return nil
}

func (d *SoftwareDevice) Depth() Texture {
	if d.depth == nil {
		return nil
	}
	return d.depth
}

func (d *SoftwareDevice) ClearDepth() error {
	if d.depth == nil {
		return fmt.Errorf("software: clear depth with no depth buffer bound")
	}
	d.depth.Clear(1)
	return nil
}

// Resample scales src into dst bilinearly.
func (d *SoftwareDevice) Resample(dst, src Texture) error {
	to, err := d.image(dst)
	if err != nil {
		return err
	}
	from, err := d.image(src)
	if err != nil {
		return err
	}
	xdraw.ApproxBiLinear.Scale(to, to.Rect, from, from.Rect, xdraw.Src, nil)
	return nil
}

func (d *SoftwareDevice) Draw(p Program, src Texture) error {
	if d.target == nil {
		return fmt.Errorf("software: draw %q with no target bound", p.Label())
	}
	var sampler Sampler
	if src != nil {
		img, err := d.image(src)
		if err != nil {
			return err
		}
		if img == d.target {
			return fmt.Errorf("software: %q samples its own render target", p.Label())
		}
		sampler = img
	}

	dp, _ := p.(DepthProgram)
	depth := d.depth
	if dp == nil {
		depth = nil
	}
	if depth != nil && depth.Size() != d.target.Size() {
		return fmt.Errorf("software: depth %v does not match target %q %v", depth.Size(), d.target.Name, d.target.Size())
	}

	vp := d.viewport
	if vp.Empty() {
		return nil
	}
	area := d.clip(vp)
	if area.Empty() {
		return nil
	}

	shadeRows := func(y0, y1 int) {
		w, h := float32(vp.Dx()), float32(vp.Dy())
		for y := y0; y < y1; y++ {
			v := (float32(y-vp.Min.Y) + 0.5) / h
			for x := area.Min.X; x < area.Max.X; x++ {
				u := (float32(x-vp.Min.X) + 0.5) / w
				if depth != nil {
					c, z, ok := dp.ShadeDepth(u, v, sampler)
					if ok && depth.Test(x, y, z) {
						d.target.SetRGB(x, y, c)
					}
					continue
				}
				if c, ok := p.Shade(u, v, sampler); ok {
					d.target.SetRGB(x, y, c)
				}
			}
		}
	}

	rows := area.Dy()
	workers := min(max(d.Workers, 1), rows)
	if workers == 1 {
		shadeRows(area.Min.Y, area.Max.Y)
	} else {
		per := (rows + workers - 1) / workers
		var wg sync.WaitGroup
		for y0 := area.Min.Y; y0 < area.Max.Y; y0 += per {
			y1 := min(y0+per, area.Max.Y)
			wg.Add(1)
			go func() {
				defer wg.Done()
				shadeRows(y0, y1)
			}()
		}
		wg.Wait()
	}
	d.Draws++
	return nil
}
