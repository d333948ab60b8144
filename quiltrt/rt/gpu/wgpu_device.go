package gpu

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUTexture is a texture and its default view.
type WGPUTexture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Format  wgpu.TextureFormat

	size image.Point
	name string
	// borrowed textures (swapchain frames) are released by their owner
	borrowed bool
}

func (t *WGPUTexture) Label() string     { return t.name }
func (t *WGPUTexture) Size() image.Point { return t.size }

func (t *WGPUTexture) Release() {
	if t == nil || t.borrowed {
		return
	}
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Release()
		t.Texture = nil
	}
}

type pipelineKey struct {
	program string
	format  wgpu.TextureFormat
	depth   bool
}

const depthFormat = wgpu.TextureFormatDepth32Float

// texturedProgram lets a Program declare that it binds no input texture.
type texturedProgram interface {
	SamplesTexture() bool
}

func (SolidProgram) SamplesTexture() bool { return false }

// WGPUDevice implements Device on a WebGPU device. Viewport and scissor are
// tracked on the host and applied to each render pass, which gives them the
// same persistent, GL-like behaviour as the software device.
type WGPUDevice struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	sampler     *wgpu.Sampler
	modules     map[string]*wgpu.ShaderModule
	pipelines   map[pipelineKey]*wgpu.RenderPipeline
	uniforms    map[string]*wgpu.Buffer
	placeholder *WGPUTexture

	target    *WGPUTexture
	depth     *WGPUTexture
	viewport  image.Rectangle
	scissor   image.Rectangle
	scissorOn bool
}

var _ Device = (*WGPUDevice)(nil)

func NewWGPUDevice(device *wgpu.Device, queue *wgpu.Queue) (*WGPUDevice, error) {
	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}
	d := &WGPUDevice{
		Device:    device,
		Queue:     queue,
		sampler:   sampler,
		modules:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
		uniforms:  make(map[string]*wgpu.Buffer),
	}

	ph, err := d.NewTexture("Placeholder", image.Pt(1, 1))
	if err != nil {
		return nil, err
	}
	d.placeholder = ph.(*WGPUTexture)
	if err := d.Upload(d.placeholder, NewImage("Placeholder", 1, 1)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *WGPUDevice) NewTexture(label string, size image.Point) (Texture, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("wgpu: texture %q has invalid size %v", label, size)
	}
	tex, err := d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(size.X), Height: uint32(size.Y), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		// WebGPU has no 3-channel render format; alpha is written as 1 and ignored.
		Format: wgpu.TextureFormatRGBA8Unorm,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment |
			wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: create view for %q: %w", label, err)
	}
	return &WGPUTexture{
		Texture: tex,
		View:    view,
		Format:  wgpu.TextureFormatRGBA8Unorm,
		size:    size,
		name:    label,
	}, nil
}

func (d *WGPUDevice) texture(t Texture) (*WGPUTexture, error) {
	tex, ok := t.(*WGPUTexture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("wgpu: %w: %T", ErrUnsupportedTexture, t)
	}
	return tex, nil
}

func (d *WGPUDevice) Upload(dst Texture, src *Image) error {
	tex, err := d.texture(dst)
	if err != nil {
		return err
	}
	if tex.size != src.Size() {
		return fmt.Errorf("wgpu: upload %v into %q of size %v", src.Size(), tex.name, tex.size)
	}
	w, h := uint32(tex.size.X), uint32(tex.size.Y)
	err = d.Queue.WriteTexture(tex.Texture.AsImageCopy(), src.RowsTopDown(), &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  4 * w,
		RowsPerImage: h,
	}, &wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1})
	if err != nil {
		return fmt.Errorf("wgpu: upload %q: %w", tex.name, err)
	}
	return nil
}

func (d *WGPUDevice) BindTarget(t Texture) error {
	tex, err := d.texture(t)
	if err != nil {
		return err
	}
	d.target = tex
	if d.viewport.Empty() {
		d.viewport = image.Rectangle{Max: tex.size}
	}
	return nil
}

func (d *WGPUDevice) Target() Texture {
	if d.target == nil {
		return nil
	}
	return d.target
}

func (d *WGPUDevice) NewDepthTexture(label string, size image.Point) (Texture, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("wgpu: depth texture %q has invalid size %v", label, size)
	}
	tex, err := d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(size.X), Height: uint32(size.Y), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create depth texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: create view for %q: %w", label, err)
	}
	return &WGPUTexture{Texture: tex, View: view, Format: depthFormat, size: size, name: label}, nil
}

func (d *WGPUDevice) BindDepth(t Texture) error {
	if t == nil {
		d.depth = nil
		return nil
	}
	tex, err := d.texture(t)
	if err != nil {
		return err
	}
	if tex.Format != depthFormat {
		return fmt.Errorf("wgpu: %w: %q is not a depth texture", ErrUnsupportedTexture, tex.name)
	}
	d.depth = tex
	return nil
}

func (d *WGPUDevice) Depth() Texture {
	if d.depth == nil {
		return nil
	}
	return d.depth
}

func (d *WGPUDevice) ClearDepth() error {
	if d.depth == nil {
		return fmt.Errorf("wgpu: clear depth with no depth texture bound")
	}
	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depth.View,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	if err := pass.End(); err != nil {
		return fmt.Errorf("wgpu: clear depth pass: %w", err)
	}
	return d.submit(encoder)
}

func (d *WGPUDevice) Viewport() image.Rectangle { return d.viewport }

func (d *WGPUDevice) SetViewport(r image.Rectangle) { d.viewport = r }

func (d *WGPUDevice) Scissor() (image.Rectangle, bool) { return d.scissor, d.scissorOn }

func (d *WGPUDevice) SetScissor(r image.Rectangle, enabled bool) {
	d.scissor = r
	d.scissorOn = enabled
}

func (d *WGPUDevice) Clear(c color.RGBA) error {
	if d.target == nil {
		return fmt.Errorf("wgpu: clear with no target bound")
	}
	if d.scissorOn {
		// A load-op clear ignores the scissor; draw a solid pass instead.
		prev := d.viewport
		d.viewport = image.Rectangle{Max: d.target.size}
		defer func() { d.viewport = prev }()
		return d.Draw(SolidProgram{Color: c}, nil)
	}

	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    d.target.View,
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(c.R) / 255,
				G: float64(c.G) / 255,
				B: float64(c.B) / 255,
				A: 1,
			},
		}},
	})
	if err := pass.End(); err != nil {
		return fmt.Errorf("wgpu: clear pass: %w", err)
	}
	return d.submit(encoder)
}

func (d *WGPUDevice) Draw(p Program, src Texture) error {
	if d.target == nil {
		return fmt.Errorf("wgpu: draw %q with no target bound", p.Label())
	}
	bounds := image.Rectangle{Max: d.target.size}
	vp := d.viewport
	if vp.Empty() {
		return nil
	}
	if !vp.In(bounds) {
		return fmt.Errorf("wgpu: viewport %v outside target %q %v", vp, d.target.name, bounds)
	}
	area := vp.Intersect(bounds)
	if d.scissorOn {
		area = area.Intersect(d.scissor)
	}
	if area.Empty() {
		return nil
	}

	useDepth := false
	if _, ok := p.(DepthProgram); ok && d.depth != nil {
		if d.depth.size != d.target.size {
			return fmt.Errorf("wgpu: depth %v does not match target %q %v", d.depth.size, d.target.name, d.target.size)
		}
		useDepth = true
	}

	pipeline, err := d.pipeline(p, d.target.Format, useDepth)
	if err != nil {
		return err
	}
	bindGroup, err := d.bindGroup(p, pipeline, src)
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	defer encoder.Release()

	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    d.target.View,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	}
	if useDepth {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:         d.depth.View,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
	}
	pass := encoder.BeginRenderPass(desc)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)

	fvp := d.flip(vp)
	pass.SetViewport(float32(fvp.Min.X), float32(fvp.Min.Y), float32(fvp.Dx()), float32(fvp.Dy()), 0, 1)
	fsc := d.flip(area)
	pass.SetScissorRect(uint32(fsc.Min.X), uint32(fsc.Min.Y), uint32(fsc.Dx()), uint32(fsc.Dy()))
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("wgpu: %s pass: %w", p.Label(), err)
	}
	return d.submit(encoder)
}

// flip converts a bottom-left origin rectangle to WebGPU's top-left
// framebuffer coordinates.
func (d *WGPUDevice) flip(r image.Rectangle) image.Rectangle {
	h := d.target.size.Y
	return image.Rect(r.Min.X, h-r.Max.Y, r.Max.X, h-r.Min.Y)
}

func (d *WGPUDevice) submit(encoder *wgpu.CommandEncoder) error {
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpu: finish encoder: %w", err)
	}
	defer cmd.Release()
	d.Queue.Submit(cmd)
	return nil
}

func (d *WGPUDevice) pipeline(p Program, format wgpu.TextureFormat, depth bool) (*wgpu.RenderPipeline, error) {
	key := pipelineKey{program: p.Label(), format: format, depth: depth}
	if pl, ok := d.pipelines[key]; ok {
		return pl, nil
	}

	module, ok := d.modules[p.Label()]
	if !ok {
		var err error
		module, err = d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          p.Label(),
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: p.WGSL()},
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: compile %s shader: %w", p.Label(), err)
		}
		d.modules[p.Label()] = module
	}

	var depthState *wgpu.DepthStencilState
	if depth {
		depthState = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	pl, err := d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: p.Label() + " Pipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		DepthStencil: depthState,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s pipeline: %w", p.Label(), err)
	}
	d.pipelines[key] = pl
	return pl, nil
}

func (d *WGPUDevice) bindGroup(p Program, pipeline *wgpu.RenderPipeline, src Texture) (*wgpu.BindGroup, error) {
	var entries []wgpu.BindGroupEntry

	samples := true
	if tp, ok := p.(texturedProgram); ok {
		samples = tp.SamplesTexture()
	}
	if samples {
		tex := d.placeholder
		if src != nil {
			var err error
			if tex, err = d.texture(src); err != nil {
				return nil, err
			}
		}
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: 0, TextureView: tex.View},
			wgpu.BindGroupEntry{Binding: 1, Sampler: d.sampler},
		)
	}

	if data := p.Uniforms(); data != nil {
		buf, err := d.uniformBuffer(p.Label(), data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: 2, Buffer: buf, Size: buf.GetSize()})
	}

	bg, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.Label() + " BG",
		Layout:  pipeline.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s bind group: %w", p.Label(), err)
	}
	return bg, nil
}

func (d *WGPUDevice) uniformBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	size := uint64(len(data)+15) &^ 15
	buf, ok := d.uniforms[label]
	if !ok || buf.GetSize() < size {
		if ok {
			buf.Release()
		}
		var err error
		buf, err = d.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label + " Uniforms",
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create %s uniform buffer: %w", label, err)
		}
		d.uniforms[label] = buf
	}
	padded := make([]byte, size)
	copy(padded, data)
	if err := d.Queue.WriteBuffer(buf, 0, padded); err != nil {
		return nil, fmt.Errorf("wgpu: write %s uniforms: %w", label, err)
	}
	return buf, nil
}

// Release frees every GPU object the device created.
func (d *WGPUDevice) Release() {
	for k, pl := range d.pipelines {
		pl.Release()
		delete(d.pipelines, k)
	}
	for k, m := range d.modules {
		m.Release()
		delete(d.modules, k)
	}
	for k, b := range d.uniforms {
		b.Release()
		delete(d.uniforms, k)
	}
	d.placeholder.Release()
	if d.sampler != nil {
		d.sampler.Release()
		d.sampler = nil
	}
}
