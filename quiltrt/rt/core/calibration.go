package core

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidCalibration = errors.New("invalid device calibration")

// DefaultViewCone is used when a device does not report its view cone.
const DefaultViewCone float32 = 40

// DeviceCalibration holds the per-device lenticular parameters. It is read
// once when the session starts and never changes afterwards.
type DeviceCalibration struct {
	Pitch         float32 `json:"pitch"`
	Tilt          float32 `json:"tilt"`
	Center        float32 `json:"center"`
	Subpixel      float32 `json:"subp"`
	RedIndex      int     `json:"ri"`
	BlueIndex     int     `json:"bi"`
	Invert        bool    `json:"invView"`
	DisplayAspect float32 `json:"displayAspect"`
	Fringe        float32 `json:"fringe"`
	ViewCone      float32 `json:"viewCone"`
}

// Validate rejects calibrations the reprojector cannot consume.
func (c DeviceCalibration) Validate() error {
	if !isChannelIndex(c.RedIndex) || !isChannelIndex(c.BlueIndex) {
		return fmt.Errorf("%w: channel indices ri=%d bi=%d must be 0 or 2", ErrInvalidCalibration, c.RedIndex, c.BlueIndex)
	}
	if !(c.DisplayAspect > 0) || math.IsInf(float64(c.DisplayAspect), 0) {
		return fmt.Errorf("%w: display aspect %v", ErrInvalidCalibration, c.DisplayAspect)
	}
	for name, v := range map[string]float32{"pitch": c.Pitch, "tilt": c.Tilt, "center": c.Center, "subp": c.Subpixel} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidCalibration, name, v)
		}
	}
	if c.ViewCone < 0 || c.ViewCone >= 180 {
		return fmt.Errorf("%w: view cone %v", ErrInvalidCalibration, c.ViewCone)
	}
	return nil
}

// ViewConeOrDefault returns the reported view cone in degrees.
func (c DeviceCalibration) ViewConeOrDefault() float32 {
	if c.ViewCone == 0 {
		return DefaultViewCone
	}
	return c.ViewCone
}

func isChannelIndex(i int) bool {
	return i == 0 || i == 2
}

// DeviceInfo describes one connected display and where its window lives on
// the desktop.
type DeviceInfo struct {
	Index        int               `json:"index"`
	Name         string            `json:"hdmiName"`
	Serial       string            `json:"serial"`
	Type         string            `json:"type"`
	WindowX      int               `json:"windowX"`
	WindowY      int               `json:"windowY"`
	ScreenWidth  int               `json:"screenW"`
	ScreenHeight int               `json:"screenH"`
	Calibration  DeviceCalibration `json:"calibration"`
}

// WindowAspect is the aspect ratio of the device's output window.
func (d DeviceInfo) WindowAspect() float32 {
	if d.ScreenWidth <= 0 || d.ScreenHeight <= 0 {
		return d.Calibration.DisplayAspect
	}
	return float32(d.ScreenWidth) / float32(d.ScreenHeight)
}
