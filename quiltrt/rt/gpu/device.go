package gpu

import (
	"errors"
	"image"
	"image/color"
)

var ErrUnsupportedTexture = errors.New("texture does not belong to this device")

// Texture is a 2D colour surface owned by a Device.
type Texture interface {
	Label() string
	Size() image.Point
}

// Sampler reads a texture at normalised coordinates, (0,0) bottom-left.
type Sampler interface {
	Sample(u, v float32) color.RGBA
}

// Program is a full-screen fragment pass. The software device evaluates
// Shade per pixel; GPU devices compile WGSL (entry points vs_main/fs_main)
// and bind Uniforms at group 0 binding 2 when it is non-nil.
type Program interface {
	Label() string
	WGSL() string
	Uniforms() []byte
	// Shade returns the colour for the normalised viewport coordinate
	// (u,v). ok=false discards the fragment.
	Shade(u, v float32, src Sampler) (c color.RGBA, ok bool)
}

// DepthProgram is a Program that also writes fragment depth in [0,1].
// While a depth buffer is bound, a fragment is kept only when its depth is
// less than the stored value, which it then replaces.
type DepthProgram interface {
	Program
	ShadeDepth(u, v float32, src Sampler) (c color.RGBA, depth float32, ok bool)
}

// StateContext is the ambient rasteriser state shared by every pass drawn
// on a device. Like a GL context, binding a target leaves it untouched.
type StateContext interface {
	Viewport() image.Rectangle
	SetViewport(r image.Rectangle)
	Scissor() (r image.Rectangle, enabled bool)
	SetScissor(r image.Rectangle, enabled bool)
}

// Device is the drawing surface the frame loop runs on. Rectangles are in
// framebuffer coordinates with the origin at the bottom-left of the bound
// target.
type Device interface {
	StateContext

	NewTexture(label string, size image.Point) (Texture, error)
	// Upload replaces the contents of dst with src. Sizes must match.
	Upload(dst Texture, src *Image) error

	BindTarget(t Texture) error
	Target() Texture

	// NewDepthTexture allocates a depth buffer for targets of size.
	NewDepthTexture(label string, size image.Point) (Texture, error)
	// BindDepth attaches t to later DepthProgram draws. nil detaches.
	BindDepth(t Texture) error
	Depth() Texture
	// ClearDepth resets the whole bound depth buffer to the far plane.
	ClearDepth() error

	// Clear fills the scissor rectangle, or the whole target when the
	// scissor test is off.
	Clear(c color.RGBA) error
	// Draw runs p over the current viewport, clipped by the scissor, with
	// src bound as its input texture. src may be nil.
	Draw(p Program, src Texture) error
}

// Reader is implemented by devices that can copy a texture back to host
// memory.
type Reader interface {
	Read(t Texture) (*Image, error)
}

// RenderTarget is the offscreen colour+depth pair a scene draws a view
// into. Both textures belong to the device the target was made on.
type RenderTarget struct {
	Color Texture
	Depth Texture
}

func NewRenderTarget(dev Device, label string, size image.Point) (*RenderTarget, error) {
	c, err := dev.NewTexture(label, size)
	if err != nil {
		return nil, err
	}
	d, err := dev.NewDepthTexture(label+" Depth", size)
	if err != nil {
		return nil, err
	}
	return &RenderTarget{Color: c, Depth: d}, nil
}

func (t *RenderTarget) Size() image.Point {
	return t.Color.Size()
}

// Draw binds the target and its depth buffer with a full viewport while fn
// runs, then restores the previous bindings.
func (t *RenderTarget) Draw(dev Device, fn func() error) error {
	return WithTarget(dev, t.Color, func() error {
		return WithDepth(dev, t.Depth, func() error {
			return WithViewport(dev, FullTarget(dev), fn)
		})
	})
}

// Clear resets colour to c and depth to the far plane.
func (t *RenderTarget) Clear(dev Device, c color.RGBA) error {
	return t.Draw(dev, func() error {
		if err := dev.Clear(c); err != nil {
			return err
		}
		if t.Depth == nil {
			return nil
		}
		return dev.ClearDepth()
	})
}

// WithViewport restricts both viewport and scissor to r while fn runs. The
// previous viewport and scissor are restored on every exit path, including
// errors and panics, so nothing leaks into later passes.
func WithViewport(ctx StateContext, r image.Rectangle, fn func() error) error {
	prevViewport := ctx.Viewport()
	prevScissor, prevEnabled := ctx.Scissor()
	defer func() {
		ctx.SetViewport(prevViewport)
		ctx.SetScissor(prevScissor, prevEnabled)
	}()

	ctx.SetViewport(r)
	ctx.SetScissor(r, true)
	return fn()
}

// WithTarget binds t while fn runs and rebinds the previous target after.
func WithTarget(dev Device, t Texture, fn func() error) error {
	prev := dev.Target()
	if err := dev.BindTarget(t); err != nil {
		return err
	}
	defer func() {
		if prev != nil {
			_ = dev.BindTarget(prev)
		}
	}()
	return fn()
}

// WithDepth binds depth (nil detaches) while fn runs.
func WithDepth(dev Device, depth Texture, fn func() error) error {
	prev := dev.Depth()
	if err := dev.BindDepth(depth); err != nil {
		return err
	}
	defer func() { _ = dev.BindDepth(prev) }()
	return fn()
}

// Resampler is implemented by devices with a better scaler than a blit.
type Resampler interface {
	Resample(dst, src Texture) error
}

// Resample scales all of src into all of dst.
func Resample(dev Device, dst, src Texture) error {
	if r, ok := dev.(Resampler); ok {
		return r.Resample(dst, src)
	}
	return WithTarget(dev, dst, func() error {
		return WithViewport(dev, image.Rectangle{Max: dst.Size()}, func() error {
			return dev.Draw(BlitProgram{}, src)
		})
	})
}

// FullTarget is the viewport covering the whole bound target.
func FullTarget(dev Device) image.Rectangle {
	if t := dev.Target(); t != nil {
		return image.Rectangle{Max: t.Size()}
	}
	return image.Rectangle{}
}
