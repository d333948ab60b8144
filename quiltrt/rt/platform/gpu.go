package platform

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// GPU owns the WebGPU objects created for a window.
type GPU struct {
	Instance *wgpu.Instance
	Device   *gpu.WGPUDevice
	Surface  *gpu.WGPUSurface
}

// OpenGPU creates a device and a vsynced swapchain for the window.
func OpenGPU(w *Window) (*GPU, error) {
	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(w.Window))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("platform: request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Lightfield Device"})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("platform: request device: %w", err)
	}
	queue := device.GetQueue()

	width, height := w.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		instance.Release()
		return nil, fmt.Errorf("platform: surface reports no formats")
	}
	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	dev, err := gpu.NewWGPUDevice(device, queue)
	if err != nil {
		instance.Release()
		return nil, err
	}
	g := &GPU{
		Instance: instance,
		Device:   dev,
		Surface:  &gpu.WGPUSurface{Surface: surface, Adapter: adapter, Device: device, Config: config},
	}
	w.Window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		g.Surface.Resize(width, height)
	})
	return g, nil
}

func (g *GPU) Release() {
	g.Device.Release()
	g.Instance.Release()
}
