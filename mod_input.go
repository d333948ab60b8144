package holoquilt

import (
	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/platform"
)

// InputSource is polled once per tick.
type InputSource interface {
	PollInput() core.InputState
}

// Input holds this tick's input snapshot.
type Input struct {
	core.InputState
	// Polls counts the snapshots taken so far.
	Polls uint64
}

// InputModule polls Source in Prelude. With no Source it polls the
// platform window installed by PlatformWindowModule.
type InputModule struct {
	Source InputSource
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	cmd.UseSystem(System(func(in *Input) {
		src := mod.Source
		if src == nil {
			win, ok := Resource[platform.Window](app)
			if !ok {
				return
			}
			src = win
		}
		in.InputState = src.PollInput()
		in.Polls++
	}).InStage(Prelude))
}
