package app

import (
	"fmt"
	"image"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the application side of the frame loop.
type Scene interface {
	Update(dt float64)
	HandleInput(in core.InputState)
	// BaseViewTransform is the centre camera for the current frame.
	BaseViewTransform() mgl32.Mat4
	// CameraSize is the half height of the focal plane in scene units.
	CameraSize() float32
	// RenderView draws the scene for one camera into target with dev.
	RenderView(dev gpu.Device, cam core.ViewCamera, target *gpu.RenderTarget) error
}

// ViewRenderer renders one view into an offscreen target and hands back a
// cell-sized device texture for the compositor. The target is reused
// across views, so a view must be composited before the next is rendered.
type ViewRenderer struct {
	Strategy RenderStrategy

	dev    gpu.Device
	target *gpu.RenderTarget
	cell   gpu.Texture
}

func NewViewRenderer(dev gpu.Device, layout core.QuiltLayout, strategy RenderStrategy, window image.Point) (*ViewRenderer, error) {
	cellSize := layout.CellSize()
	r := &ViewRenderer{Strategy: strategy, dev: dev}

	switch strategy {
	case RenderIntoCell:
		target, err := gpu.NewRenderTarget(dev, "View", cellSize)
		if err != nil {
			return nil, fmt.Errorf("view renderer: allocate view target: %w", err)
		}
		r.target = target
		r.cell = target.Color
	case RenderAtWindowResolution:
		if window.X <= 0 || window.Y <= 0 {
			return nil, fmt.Errorf("view renderer: invalid window size %v", window)
		}
		target, err := gpu.NewRenderTarget(dev, "View", window)
		if err != nil {
			return nil, fmt.Errorf("view renderer: allocate view target: %w", err)
		}
		cell, err := dev.NewTexture("View Cell", cellSize)
		if err != nil {
			return nil, fmt.Errorf("view renderer: allocate view texture: %w", err)
		}
		r.target = target
		r.cell = cell
	default:
		return nil, fmt.Errorf("view renderer: %v", strategy)
	}
	return r, nil
}

// RenderSize is the resolution the scene is drawn at.
func (r *ViewRenderer) RenderSize() image.Point {
	return r.target.Size()
}

func (r *ViewRenderer) Render(s Scene, cam core.ViewCamera) (gpu.Texture, error) {
	if err := s.RenderView(r.dev, cam, r.target); err != nil {
		return nil, fmt.Errorf("render view: %w", err)
	}
	if r.Strategy == RenderAtWindowResolution {
		if err := gpu.Resample(r.dev, r.cell, r.target.Color); err != nil {
			return nil, fmt.Errorf("resample view: %w", err)
		}
	}
	return r.cell, nil
}
