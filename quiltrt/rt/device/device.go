package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
)

var (
	ErrNoDevice        = errors.New("no light field display found")
	ErrCalibrationLost = errors.New("device calibration lost")
)

// Source enumerates the connected displays.
type Source interface {
	Devices(ctx context.Context) ([]core.DeviceInfo, error)
}

// Static is a fixed device list.
type Static []core.DeviceInfo

func (s Static) Devices(ctx context.Context) ([]core.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]core.DeviceInfo(nil), s...), nil
}

// File reads the device list from a JSON file on every call, so a
// display that disappears from the file is noticed by a Watcher.
type File struct {
	Path string
}

func (f File) Devices(ctx context.Context) ([]core.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("device: read %s: %w", f.Path, err)
	}
	return Parse(data)
}

type deviceList struct {
	Devices []core.DeviceInfo `json:"devices"`
}

// Parse decodes {"devices": [...]}.
func Parse(data []byte) ([]core.DeviceInfo, error) {
	var list deviceList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("device: decode device list: %w", err)
	}
	return list.Devices, nil
}

// FirstDevice returns display 0 with a validated calibration. No display
// is a fatal condition for the session.
func FirstDevice(ctx context.Context, src Source) (core.DeviceInfo, error) {
	devices, err := src.Devices(ctx)
	if err != nil {
		return core.DeviceInfo{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if len(devices) == 0 {
		return core.DeviceInfo{}, ErrNoDevice
	}
	dev := devices[0]
	if err := dev.Calibration.Validate(); err != nil {
		return core.DeviceInfo{}, fmt.Errorf("device %d (%s): %w", dev.Index, dev.Name, err)
	}
	return dev, nil
}

// Simulated is a 2560x1600 desktop-class display used when running
// without hardware.
func Simulated() core.DeviceInfo {
	return core.DeviceInfo{
		Index:        0,
		Name:         "Simulated",
		Serial:       "SIM-0000",
		Type:         "standard",
		WindowX:      0,
		WindowY:      0,
		ScreenWidth:  2560,
		ScreenHeight: 1600,
		Calibration: core.DeviceCalibration{
			Pitch:         49.8,
			Tilt:          -0.12,
			Center:        0.04,
			Subpixel:      0.00013,
			RedIndex:      0,
			BlueIndex:     2,
			DisplayAspect: 1.6,
			ViewCone:      40,
		},
	}
}
