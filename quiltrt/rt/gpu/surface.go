package gpu

import (
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is the on-screen framebuffer. Acquire returns the texture to draw
// this frame into; Present shows it.
type Surface interface {
	Acquire() (Texture, error)
	Present() error
	Size() image.Point
}

// ImageSurface is a headless Surface backed by a single software image.
type ImageSurface struct {
	Frame    *Image
	Presents int
}

func NewImageSurface(w, h int) *ImageSurface {
	return &ImageSurface{Frame: NewImage("Window", w, h)}
}

func (s *ImageSurface) Acquire() (Texture, error) { return s.Frame, nil }
func (s *ImageSurface) Size() image.Point         { return s.Frame.Size() }

func (s *ImageSurface) Present() error {
	s.Presents++
	return nil
}

// WGPUSurface wraps a configured swapchain surface.
type WGPUSurface struct {
	Surface *wgpu.Surface
	Adapter *wgpu.Adapter
	Device  *wgpu.Device
	Config  *wgpu.SurfaceConfiguration

	current *WGPUTexture
	frame   *wgpu.Texture
}

var _ Surface = (*WGPUSurface)(nil)

func (s *WGPUSurface) Size() image.Point {
	return image.Pt(int(s.Config.Width), int(s.Config.Height))
}

func (s *WGPUSurface) Acquire() (Texture, error) {
	s.release()
	tex, err := s.Surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("wgpu: acquire surface texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: create surface view: %w", err)
	}
	s.frame = tex
	s.current = &WGPUTexture{
		Texture:  tex,
		View:     view,
		Format:   s.Config.Format,
		size:     s.Size(),
		name:     "Surface",
		borrowed: true,
	}
	return s.current, nil
}

func (s *WGPUSurface) Present() error {
	if s.current == nil {
		return fmt.Errorf("wgpu: present without an acquired frame")
	}
	s.Surface.Present()
	s.release()
	return nil
}

// Resize reconfigures the swapchain for a new framebuffer size.
func (s *WGPUSurface) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	s.Config.Width = uint32(w)
	s.Config.Height = uint32(h)
	s.Surface.Configure(s.Adapter, s.Device, s.Config)
}

func (s *WGPUSurface) release() {
	if s.current != nil {
		if s.current.View != nil {
			s.current.View.Release()
		}
		s.current = nil
	}
	if s.frame != nil {
		s.frame.Release()
		s.frame = nil
	}
}
