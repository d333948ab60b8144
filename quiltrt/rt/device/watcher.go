package device

import (
	"context"
	"fmt"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
)

// DefaultWatchInterval is how often, in seconds, the frame loop re-checks
// that its display is still present.
const DefaultWatchInterval = 2.0

// Watcher re-queries a Source between frames and reports when the display
// the session started on is gone or its calibration has changed.
type Watcher struct {
	Source   Source
	Device   core.DeviceInfo
	Interval float64

	last    float64
	checked bool
}

func NewWatcher(src Source, dev core.DeviceInfo) *Watcher {
	return &Watcher{Source: src, Device: dev, Interval: DefaultWatchInterval}
}

// Check returns ErrCalibrationLost once the display is no longer usable.
// now is the frame time in seconds; queries are rate limited to Interval.
func (w *Watcher) Check(ctx context.Context, now float64) error {
	if w.checked && now-w.last < w.Interval {
		return nil
	}
	w.checked = true
	w.last = now

	devices, err := w.Source.Devices(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCalibrationLost, err)
	}
	for _, d := range devices {
		if d.Serial != w.Device.Serial || d.Index != w.Device.Index {
			continue
		}
		if d.Calibration != w.Device.Calibration {
			return fmt.Errorf("%w: calibration of %s changed", ErrCalibrationLost, d.Serial)
		}
		return nil
	}
	return fmt.Errorf("%w: %s (%s) disconnected", ErrCalibrationLost, w.Device.Name, w.Device.Serial)
}
