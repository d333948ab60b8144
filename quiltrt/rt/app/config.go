package app

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/device"
	"github.com/gekko3d/holoquilt/quiltrt/rt/lenticular"
)

// RenderStrategy picks the resolution views are rendered at.
type RenderStrategy int

const (
	// RenderIntoCell renders at quilt cell size; one copy per view.
	RenderIntoCell RenderStrategy = iota
	// RenderAtWindowResolution renders at window size and resamples
	// into the cell.
	RenderAtWindowResolution
)

func (s RenderStrategy) String() string {
	switch s {
	case RenderIntoCell:
		return "cell"
	case RenderAtWindowResolution:
		return "window"
	}
	return fmt.Sprintf("RenderStrategy(%d)", int(s))
}

func ParseStrategy(name string) (RenderStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cell", "":
		return RenderIntoCell, nil
	case "window":
		return RenderAtWindowResolution, nil
	}
	return 0, fmt.Errorf("unknown render strategy %q", name)
}

type Config struct {
	Preset core.QuiltPreset
	// Layout overrides Preset when set.
	Layout *core.QuiltLayout

	FOV      float32
	Strategy RenderStrategy

	QuiltInvert bool
	Overscan    bool
	// QuiltAspect of 0 uses the display aspect.
	QuiltAspect float32
	Debug       lenticular.DebugMode

	// ClearColor fills the atlas before the first frame and the display
	// outside the fitted quilt.
	ClearColor color.RGBA
	CaptureDir string
	// WatchInterval is the seconds between device presence checks.
	WatchInterval float64
}

func DefaultConfig() Config {
	return Config{
		Preset:        core.DefaultPreset,
		FOV:           core.DefaultFOV,
		Strategy:      RenderIntoCell,
		ClearColor:    color.RGBA{A: 0xff},
		CaptureDir:    ".",
		WatchInterval: device.DefaultWatchInterval,
	}
}

func (c Config) layout() (core.QuiltLayout, error) {
	if c.Layout != nil {
		l := *c.Layout
		return core.NewQuiltLayout(l.AtlasWidth, l.AtlasHeight, l.Columns, l.Rows, l.TotalViews)
	}
	return core.PlanQuilt(c.Preset)
}
