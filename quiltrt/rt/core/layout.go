package core

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrUnknownPreset  = errors.New("unknown quilt preset")
	ErrInvalidLayout  = errors.New("invalid quilt layout")
	ErrViewOutOfRange = errors.New("view index out of range")
)

// QuiltPreset selects one of the fixed quilt geometries.
type QuiltPreset int

const (
	PresetStandard QuiltPreset = iota
	PresetHighRes
	PresetUltraHighRes
)

// DefaultPreset is the 45 view 4k quilt most devices are driven with.
const DefaultPreset = PresetHighRes

type presetGeometry struct {
	name                string
	width, height       int
	columns, rows, view int
}

var presetTable = map[QuiltPreset]presetGeometry{
	PresetStandard:     {name: "standard", width: 2048, height: 2048, columns: 4, rows: 8, view: 32},
	PresetHighRes:      {name: "highres", width: 4096, height: 4096, columns: 5, rows: 9, view: 45},
	PresetUltraHighRes: {name: "ultrahighres", width: 8192, height: 8192, columns: 5, rows: 9, view: 45},
}

func (p QuiltPreset) String() string {
	if g, ok := presetTable[p]; ok {
		return g.name
	}
	return fmt.Sprintf("QuiltPreset(%d)", int(p))
}

// ParsePreset maps a preset name (as printed by String) back to the preset.
func ParsePreset(name string) (QuiltPreset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, g := range presetTable {
		if g.name == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// QuiltLayout is the immutable geometry of the quilt atlas.
type QuiltLayout struct {
	AtlasWidth  int
	AtlasHeight int
	Columns     int
	Rows        int
	TotalViews  int
	CellWidth   int
	CellHeight  int

	// ViewPortion is the fraction of the atlas covered by whole cells. It is
	// below 1 when the atlas size is not a multiple of the cell size.
	ViewPortion mgl32.Vec2
}

// PlanQuilt returns the layout for a preset. Unknown presets are a
// configuration error; there is no fallback geometry.
func PlanQuilt(p QuiltPreset) (QuiltLayout, error) {
	g, ok := presetTable[p]
	if !ok {
		return QuiltLayout{}, fmt.Errorf("%w: %d", ErrUnknownPreset, int(p))
	}
	return NewQuiltLayout(g.width, g.height, g.columns, g.rows, g.view)
}

// NewQuiltLayout validates and derives a layout from raw atlas geometry.
func NewQuiltLayout(width, height, columns, rows, totalViews int) (QuiltLayout, error) {
	switch {
	case width <= 0 || height <= 0:
		return QuiltLayout{}, fmt.Errorf("%w: atlas %dx%d", ErrInvalidLayout, width, height)
	case columns <= 0 || rows <= 0:
		return QuiltLayout{}, fmt.Errorf("%w: grid %dx%d", ErrInvalidLayout, columns, rows)
	case columns > width || rows > height:
		return QuiltLayout{}, fmt.Errorf("%w: grid %dx%d larger than atlas %dx%d", ErrInvalidLayout, columns, rows, width, height)
	case totalViews <= 0 || totalViews > columns*rows:
		return QuiltLayout{}, fmt.Errorf("%w: %d views in a %dx%d grid", ErrInvalidLayout, totalViews, columns, rows)
	}

	cw := width / columns
	ch := height / rows
	return QuiltLayout{
		AtlasWidth:  width,
		AtlasHeight: height,
		Columns:     columns,
		Rows:        rows,
		TotalViews:  totalViews,
		CellWidth:   cw,
		CellHeight:  ch,
		ViewPortion: mgl32.Vec2{
			float32(cw*columns) / float32(width),
			float32(ch*rows) / float32(height),
		},
	}, nil
}

// Cell returns the atlas rectangle for view i in framebuffer coordinates
// (origin bottom-left). View 0 is the bottom-left cell; views fill a row
// left to right and then move up one row.
func (l QuiltLayout) Cell(i int) (image.Rectangle, error) {
	if i < 0 || i >= l.TotalViews {
		return image.Rectangle{}, fmt.Errorf("%w: %d not in [0,%d)", ErrViewOutOfRange, i, l.TotalViews)
	}
	x := (i % l.Columns) * l.CellWidth
	y := (i / l.Columns) * l.CellHeight
	return image.Rect(x, y, x+l.CellWidth, y+l.CellHeight), nil
}

func (l QuiltLayout) CellSize() image.Point {
	return image.Pt(l.CellWidth, l.CellHeight)
}

func (l QuiltLayout) AtlasSize() image.Point {
	return image.Pt(l.AtlasWidth, l.AtlasHeight)
}
