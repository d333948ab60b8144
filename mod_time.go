package holoquilt

import (
	"time"

	"github.com/gekko3d/holoquilt/quiltrt/rt/platform"
)

// Time is the engine clock in seconds, sampled once per tick.
type Time struct {
	Now   float64
	Dt    float64
	Ticks uint64
}

// TimeModule samples Clock in Prelude. A nil Clock uses the platform
// window's clock when PlatformWindowModule opened one, and otherwise counts
// wall time from Install.
type TimeModule struct {
	Clock func() float64
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	clock := mod.Clock
	if clock == nil {
		if win, ok := Resource[platform.Window](app); ok {
			clock = win.Now
		}
	}
	if clock == nil {
		start := time.Now()
		clock = func() float64 { return time.Since(start).Seconds() }
	}
	cmd.AddResources(&Time{})
	cmd.UseSystem(System(func(t *Time) {
		timeSystem(t, clock())
	}).InStage(Prelude))
}

func timeSystem(t *Time, now float64) {
	if t.Ticks > 0 {
		t.Dt = now - t.Now
	}
	t.Now = now
	t.Ticks++
}
