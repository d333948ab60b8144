package quilt

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/google/uuid"
)

var ErrCaptureUnsupported = errors.New("device cannot read textures back")

// Snapshot copies the atlas into host memory.
func (c *Compositor) Snapshot() (*gpu.Image, error) {
	r, ok := c.dev.(gpu.Reader)
	if !ok {
		return nil, fmt.Errorf("quilt: snapshot on %T: %w", c.dev, ErrCaptureUnsupported)
	}
	img, err := r.Read(c.atlas)
	if err != nil {
		return nil, fmt.Errorf("quilt: read atlas: %w", err)
	}
	return img, nil
}

// EncodePNG writes the atlas as a top-down PNG.
func (c *Compositor) EncodePNG(w io.Writer) error {
	img, err := c.Snapshot()
	if err != nil {
		return err
	}
	return png.Encode(w, img.ToRGBA())
}

// CaptureName is the file name players use to recognise a quilt:
// <id>_qs<columns>x<rows>a<aspect>.png.
func CaptureName(layout core.QuiltLayout, aspect float32) string {
	return fmt.Sprintf("%s_qs%dx%da%s.png",
		uuid.NewString(), layout.Columns, layout.Rows,
		strconv.FormatFloat(float64(aspect), 'f', -1, 32))
}

// SavePNG captures the atlas into dir and returns the written path.
func (c *Compositor) SavePNG(dir string, aspect float32) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("quilt: capture dir: %w", err)
	}
	path := filepath.Join(dir, CaptureName(c.layout, aspect))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("quilt: create capture: %w", err)
	}
	if err := c.EncodePNG(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("quilt: close capture: %w", err)
	}
	return path, nil
}
