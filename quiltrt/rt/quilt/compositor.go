package quilt

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
)

// Compositor owns the quilt atlas and writes rendered views into their
// cells. It shares the device with the rest of the frame and leaves the
// device's viewport, scissor and bound target as it found them.
type Compositor struct {
	dev    gpu.Device
	layout core.QuiltLayout
	atlas  gpu.Texture
	blit   gpu.BlitProgram
}

// NewCompositor allocates the atlas for layout. An allocation failure is
// fatal for the session; there is no smaller fallback atlas.
func NewCompositor(dev gpu.Device, layout core.QuiltLayout) (*Compositor, error) {
	atlas, err := dev.NewTexture("Quilt Atlas", layout.AtlasSize())
	if err != nil {
		return nil, fmt.Errorf("quilt: allocate %dx%d atlas: %w", layout.AtlasWidth, layout.AtlasHeight, err)
	}
	c := &Compositor{dev: dev, layout: layout, atlas: atlas}
	if err := c.Clear(color.RGBA{A: 0xff}); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Compositor) Atlas() gpu.Texture {
	return c.atlas
}

func (c *Compositor) Layout() core.QuiltLayout {
	return c.layout
}

// CellRect is the atlas rectangle view i is written to.
func (c *Compositor) CellRect(i int) (image.Rectangle, error) {
	return c.layout.Cell(i)
}

// Clear fills the whole atlas, including the unused remainder past the last
// whole cell.
func (c *Compositor) Clear(col color.RGBA) error {
	return gpu.WithTarget(c.dev, c.atlas, func() error {
		return gpu.WithViewport(c.dev, image.Rectangle{Max: c.layout.AtlasSize()}, func() error {
			return c.dev.Clear(col)
		})
	})
}

// Write draws view into cell i of the atlas with one full-screen pass
// restricted to the cell. Indices outside [0, TotalViews) are rejected
// before anything is drawn.
func (c *Compositor) Write(i int, view gpu.Texture) error {
	cell, err := c.layout.Cell(i)
	if err != nil {
		return fmt.Errorf("quilt: write view: %w", err)
	}
	return gpu.WithTarget(c.dev, c.atlas, func() error {
		return gpu.WithViewport(c.dev, cell, func() error {
			return c.dev.Draw(c.blit, view)
		})
	})
}
