package app

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/device"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/gekko3d/holoquilt/quiltrt/rt/lenticular"
	"github.com/gekko3d/holoquilt/quiltrt/rt/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var flat = color.RGBA{R: 180, G: 90, B: 45, A: 0xff}

type scriptedPlatform struct {
	now    float64
	inputs []core.InputState
	polls  int

	moved    bool
	enforced int
}

func (p *scriptedPlatform) Now() float64 {
	p.now += 1.0 / 60
	return p.now
}

func (p *scriptedPlatform) PollInput() core.InputState {
	var in core.InputState
	if p.polls < len(p.inputs) {
		in = p.inputs[p.polls]
	}
	p.polls++
	return in
}

func (p *scriptedPlatform) EnforcePlacement() bool {
	if p.moved {
		p.moved = false
		p.enforced++
		return true
	}
	return false
}

type recordingScene struct {
	*scene.Solid
	offsets []float32
	inputs  []core.InputState
	dts     []float64
}

func (s *recordingScene) HandleInput(in core.InputState) { s.inputs = append(s.inputs, in) }
func (s *recordingScene) Update(dt float64)              { s.dts = append(s.dts, dt) }

func (s *recordingScene) RenderView(dev gpu.Device, cam core.ViewCamera, target *gpu.RenderTarget) error {
	s.offsets = append(s.offsets, cam.Offset)
	return s.Solid.RenderView(dev, cam, target)
}

type fixture struct {
	app      *App
	dev      *gpu.SoftwareDevice
	surface  *gpu.ImageSurface
	scene    *recordingScene
	platform *scriptedPlatform
}

func smallLayout(t *testing.T) *core.QuiltLayout {
	t.Helper()
	l, err := core.NewQuiltLayout(50, 90, 5, 9, 45)
	require.NoError(t, err)
	return &l
}

func newFixture(t *testing.T, cfg Config, src device.Source, inputs ...core.InputState) *fixture {
	t.Helper()
	if cfg.Layout == nil {
		cfg.Layout = smallLayout(t)
	}
	f := &fixture{
		dev:      gpu.NewSoftwareDevice(),
		surface:  gpu.NewImageSurface(32, 20),
		scene:    &recordingScene{Solid: scene.NewSolid(flat)},
		platform: &scriptedPlatform{inputs: inputs},
	}
	a, err := NewApp(context.Background(), cfg, Options{
		Device:   f.dev,
		Surface:  f.surface,
		Scene:    f.scene,
		Platform: f.platform,
		Devices:  src,
	})
	require.NoError(t, err)
	f.app = a
	return f
}

func simulated() device.Static {
	return device.Static{device.Simulated()}
}

func requireFlat(t *testing.T, img *gpu.Image) {
	t.Helper()
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			require.Equal(t, flat, img.RGBAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestNewApp_NoDeviceIsFatal(t *testing.T) {
	_, err := NewApp(context.Background(), DefaultConfig(), Options{
		Device:   gpu.NewSoftwareDevice(),
		Surface:  gpu.NewImageSurface(4, 4),
		Scene:    scene.NewSolid(flat),
		Platform: &scriptedPlatform{},
		Devices:  device.Static{},
	})
	assert.ErrorIs(t, err, device.ErrNoDevice)
}

func TestNewApp_UnknownPresetIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preset = core.QuiltPreset(42)
	_, err := NewApp(context.Background(), cfg, Options{
		Device:   gpu.NewSoftwareDevice(),
		Surface:  gpu.NewImageSurface(4, 4),
		Scene:    scene.NewSolid(flat),
		Platform: &scriptedPlatform{},
		Devices:  simulated(),
	})
	assert.ErrorIs(t, err, core.ErrUnknownPreset)
}

func TestApp_StateMachine(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated())
	a := f.app
	ctx := context.Background()

	assert.Equal(t, StateReady, a.State())
	assert.Error(t, a.Step(ctx))

	require.NoError(t, a.Start())
	assert.Equal(t, StateRunning, a.State())
	assert.Error(t, a.Start())

	require.NoError(t, a.Step(ctx))
	assert.Equal(t, StateRunning, a.State())

	a.RequestExit()
	require.NoError(t, a.Step(ctx))
	assert.Equal(t, StateExited, a.State())
	assert.NoError(t, a.Err())

	assert.ErrorIs(t, a.Step(ctx), ErrExited)
	assert.ErrorIs(t, a.Start(), ErrExited)
}

func TestApp_UniformSceneRoundTrip(t *testing.T) {
	for _, strategy := range []RenderStrategy{RenderIntoCell, RenderAtWindowResolution} {
		t.Run(strategy.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = strategy
			f := newFixture(t, cfg, simulated())
			require.NoError(t, f.app.Start())
			require.NoError(t, f.app.Step(context.Background()))

			requireFlat(t, f.surface.Frame)
			assert.Equal(t, 1, f.surface.Presents)
			assert.Equal(t, 45, f.scene.Rendered)
		})
	}
}

func TestApp_RenderStrategySizes(t *testing.T) {
	cfg := DefaultConfig()
	f := newFixture(t, cfg, simulated())
	assert.Equal(t, f.app.Layout.CellSize(), f.app.Renderer.RenderSize())

	cfg.Strategy = RenderAtWindowResolution
	f = newFixture(t, cfg, simulated())
	assert.Equal(t, f.surface.Size(), f.app.Renderer.RenderSize())
}

func TestApp_ViewsSweepSymmetrically(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated())
	require.NoError(t, f.app.Start())
	require.NoError(t, f.app.Step(context.Background()))

	offs := f.scene.offsets
	require.Len(t, offs, 45)
	// the camera distance is negative, so view 0 (angle -cone/2) shifts +x
	assert.Greater(t, offs[0], float32(0))
	assert.InDelta(t, -offs[0], offs[44], 1e-4)
	assert.InDelta(t, 0, offs[22], 1e-5)
	assert.Equal(t, 44, f.app.Frame.CurrentViewIndex)
}

func TestApp_ExitFinishesCurrentFrame(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated(),
		core.InputState{},
		core.InputState{Exit: true},
		core.InputState{},
	)
	require.NoError(t, f.app.Run(context.Background()))

	assert.Equal(t, StateExited, f.app.State())
	assert.Equal(t, 2, f.surface.Presents)
	assert.Equal(t, 90, f.scene.Rendered)
	requireFlat(t, f.surface.Frame)
}

func TestApp_ContextCancelExitsAtFrameBoundary(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.app.Run(ctx))
	assert.Equal(t, StateExited, f.app.State())
	assert.Equal(t, 1, f.surface.Presents)
}

type unpluggable struct {
	devices device.Static
}

func (u *unpluggable) Devices(ctx context.Context) ([]core.DeviceInfo, error) {
	return u.devices.Devices(ctx)
}

func TestApp_CalibrationLossExits(t *testing.T) {
	src := &unpluggable{devices: simulated()}
	cfg := DefaultConfig()
	cfg.WatchInterval = 0
	f := newFixture(t, cfg, src)
	ctx := context.Background()

	require.NoError(t, f.app.Start())
	require.NoError(t, f.app.Step(ctx))
	assert.Equal(t, StateRunning, f.app.State())

	src.devices = nil
	require.NoError(t, f.app.Step(ctx))
	assert.Equal(t, StateExited, f.app.State())
	assert.ErrorIs(t, f.app.Err(), device.ErrCalibrationLost)
	assert.Equal(t, 2, f.surface.Presents)
}

func TestApp_RunReturnsCalibrationLoss(t *testing.T) {
	src := &unpluggable{}
	src.devices = simulated()
	cfg := DefaultConfig()
	cfg.WatchInterval = 0
	f := newFixture(t, cfg, src)
	src.devices = nil

	err := f.app.Run(context.Background())
	assert.ErrorIs(t, err, device.ErrCalibrationLost)
	assert.Equal(t, 1, f.surface.Presents)
}

func TestApp_DebugKeyHoldsViewZero(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated(),
		core.InputState{Debug: true},
		core.InputState{},
	)
	ctx := context.Background()
	require.NoError(t, f.app.Start())

	require.NoError(t, f.app.Step(ctx))
	assert.Equal(t, lenticular.DebugView0, f.app.Reprojector.Debug)
	requireFlat(t, f.surface.Frame)

	require.NoError(t, f.app.Step(ctx))
	assert.Equal(t, lenticular.DebugOff, f.app.Reprojector.Debug)
}

func TestApp_InputAndTimeReachScene(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated(),
		core.InputState{Scroll: 1},
		core.InputState{Forward: true},
	)
	ctx := context.Background()
	require.NoError(t, f.app.Start())
	require.NoError(t, f.app.Step(ctx))
	require.NoError(t, f.app.Step(ctx))

	require.Len(t, f.scene.inputs, 2)
	assert.Equal(t, 1.0, f.scene.inputs[0].Scroll)
	assert.True(t, f.scene.inputs[1].Forward)
	assert.Equal(t, 0.0, f.scene.dts[0])
	assert.InDelta(t, 1.0/60, f.scene.dts[1], 1e-9)
	assert.Equal(t, uint64(2), f.app.Frame.Frame)
}

func TestApp_EnforcesWindowPlacement(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated())
	f.platform.moved = true
	require.NoError(t, f.app.Start())
	require.NoError(t, f.app.Step(context.Background()))
	assert.Equal(t, 1, f.platform.enforced)
}

func TestApp_CaptureWritesQuilt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptureDir = t.TempDir()
	f := newFixture(t, cfg, simulated())
	require.NoError(t, f.app.Start())

	f.app.RequestCapture()
	require.NoError(t, f.app.Step(context.Background()))

	matches, err := filepath.Glob(filepath.Join(cfg.CaptureDir, "*_qs5x9a1.6.png"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// one capture per request
	require.NoError(t, f.app.Step(context.Background()))
	matches, _ = filepath.Glob(filepath.Join(cfg.CaptureDir, "*.png"))
	assert.Len(t, matches, 1)
}

func TestApp_CaptureKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptureDir = t.TempDir()
	f := newFixture(t, cfg, simulated(), core.InputState{}, core.InputState{Capture: true})
	require.NoError(t, f.app.Start())

	require.NoError(t, f.app.Step(context.Background()))
	matches, _ := filepath.Glob(filepath.Join(cfg.CaptureDir, "*.png"))
	assert.Empty(t, matches)

	require.NoError(t, f.app.Step(context.Background()))
	matches, _ = filepath.Glob(filepath.Join(cfg.CaptureDir, "*.png"))
	assert.Len(t, matches, 1)
}

func TestProfiler_AccumulatesPerFrame(t *testing.T) {
	f := newFixture(t, DefaultConfig(), simulated())
	require.NoError(t, f.app.Start())
	require.NoError(t, f.app.Step(context.Background()))

	p := f.app.Profiler
	assert.Equal(t, []string{"views", "render", "compose", "reproject", "present"}, p.Order)
	assert.Equal(t, 45, p.Counts["views"])
	assert.Contains(t, p.String(), "compose")
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Window")
	require.NoError(t, err)
	assert.Equal(t, RenderAtWindowResolution, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, RenderIntoCell, s)

	_, err = ParseStrategy("mipmap")
	assert.Error(t, err)
}

// deviceScene draws with whatever device the frame loop hands it.
type deviceScene struct {
	*scene.Solid
	devs    []gpu.Device
	targets []*gpu.RenderTarget
}

func (s *deviceScene) RenderView(dev gpu.Device, cam core.ViewCamera, target *gpu.RenderTarget) error {
	s.devs = append(s.devs, dev)
	s.targets = append(s.targets, target)
	return s.Solid.RenderView(dev, cam, target)
}

func TestApp_ScenesDrawWithTheFrameDevice(t *testing.T) {
	for _, strategy := range []RenderStrategy{RenderIntoCell, RenderAtWindowResolution} {
		t.Run(strategy.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strategy = strategy
			f := newFixture(t, cfg, simulated())
			s := &deviceScene{Solid: scene.NewSolid(flat)}
			f.app.scene = s

			require.NoError(t, f.app.Start())
			require.NoError(t, f.app.Step(context.Background()))

			require.Len(t, s.devs, 45)
			target := s.targets[0]
			for i := range s.devs {
				require.Same(t, f.dev, s.devs[i])
				require.Same(t, target, s.targets[i], "one target reused across views")
			}
			require.IsType(t, &gpu.DepthBuffer{}, target.Depth)
			assert.Equal(t, target.Size(), target.Depth.Size())
			assert.Equal(t, f.app.Renderer.RenderSize(), target.Size())
			assert.Nil(t, f.dev.Depth(), "depth detached after the view pass")
			requireFlat(t, f.surface.Frame)
		})
	}
}

func TestApp_ClearColorFillsUncoveredPixels(t *testing.T) {
	bg := color.RGBA{R: 20, G: 40, B: 60, A: 0xff}
	cfg := DefaultConfig()
	cfg.ClearColor = bg
	cfg.QuiltAspect = 0.5
	l, err := core.NewQuiltLayout(52, 92, 5, 9, 45)
	require.NoError(t, err)
	cfg.Layout = &l

	f := newFixture(t, cfg, simulated())
	require.NoError(t, f.app.Start())
	require.NoError(t, f.app.Step(context.Background()))

	atlas := f.app.Compositor.Atlas().(*gpu.Image)
	assert.Equal(t, bg, atlas.RGBAt(51, 91), "remainder past the last cell")
	assert.Equal(t, flat, atlas.RGBAt(5, 5))

	// a 0.5 quilt on a 1.6 display is pillarboxed
	assert.Equal(t, bg, f.surface.Frame.RGBAt(0, 10))
	assert.Equal(t, flat, f.surface.Frame.RGBAt(16, 10))
}
