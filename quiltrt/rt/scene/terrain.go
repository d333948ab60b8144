package scene

import (
	"fmt"
	"image/color"
	"math"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/gekko3d/holoquilt/quiltrt/rt/gpu"
	"github.com/gekko3d/holoquilt/quiltrt/rt/shaders"
	"github.com/go-gl/mathgl/mgl32"
)

// HeightAt is the demo height field, z = 2 sin(x) sin(y).
func HeightAt(x, y float32) float32 {
	return float32(2 * math.Sin(float64(x)) * math.Sin(float64(y)))
}

func heightGradient(x, y float32) (float32, float32) {
	sx, cx := math.Sincos(float64(x))
	sy, cy := math.Sincos(float64(y))
	return float32(2 * cx * sy), float32(2 * sx * cy)
}

// HeightColor maps a height to the banded cyan/magenta palette.
func HeightColor(h float32) mgl32.Vec3 {
	c := float32(math.Sin(float64(h)*5)*0.5 + 0.5)
	return mgl32.Vec3{c, 1 - c, 1}
}

// Terrain is the demo scene: a lit height field over [-Extent, Extent]²,
// drawn with one TerrainProgram pass per view.
type Terrain struct {
	Camera *FlyCamera
	Size   float32
	Extent float32
	Steps  int
	// Light is the point light position in world space.
	Light mgl32.Vec3

	input core.InputState
}

func NewTerrain() *Terrain {
	return &Terrain{
		Camera: NewFlyCamera(),
		Size:   core.DefaultCameraSize,
		Extent: 5,
		Steps:  96,
		Light:  mgl32.Vec3{0, 0, 1},
	}
}

func (t *Terrain) HandleInput(in core.InputState) {
	t.input = in
	if in.Scroll != 0 {
		t.Size = core.ClampCameraSize(t.Size - float32(in.Scroll))
	}
}

func (t *Terrain) Update(dt float64) {
	t.Camera.Apply(t.input, float32(dt))
	t.input.MouseDX, t.input.MouseDY = 0, 0
}

func (t *Terrain) BaseViewTransform() mgl32.Mat4 { return t.Camera.ViewMatrix() }
func (t *Terrain) CameraSize() float32           { return t.Size }

// Program is the ray-march pass for cam.
func (t *Terrain) Program(cam core.ViewCamera) (TerrainProgram, error) {
	vp := cam.ViewProjection()
	if vp.Det() == 0 {
		return TerrainProgram{}, fmt.Errorf("scene: singular view-projection")
	}
	return TerrainProgram{
		ViewProj:    vp,
		InvViewProj: vp.Inv(),
		Eye:         cam.View.Inv().Col(3).Vec3(),
		Light:       t.Light,
		Extent:      t.Extent,
		Steps:       max(t.Steps, 1),
	}, nil
}

func (t *Terrain) RenderView(dev gpu.Device, cam core.ViewCamera, target *gpu.RenderTarget) error {
	prog, err := t.Program(cam)
	if err != nil {
		return err
	}
	return target.Draw(dev, func() error {
		if err := dev.Clear(color.RGBA{A: 0xff}); err != nil {
			return err
		}
		if err := dev.ClearDepth(); err != nil {
			return err
		}
		return dev.Draw(prog, nil)
	})
}

// TerrainProgram ray-marches the height field through every fragment of
// one view. GPU devices run shaders.TerrainWGSL; ShadeDepth is the same
// march on the CPU.
type TerrainProgram struct {
	ViewProj    mgl32.Mat4
	InvViewProj mgl32.Mat4
	Eye         mgl32.Vec3
	Light       mgl32.Vec3
	Extent      float32
	Steps       int
}

var _ gpu.DepthProgram = TerrainProgram{}

func (TerrainProgram) Label() string        { return "Terrain" }
func (TerrainProgram) WGSL() string         { return shaders.TerrainWGSL }
func (TerrainProgram) SamplesTexture() bool { return false }

// Uniforms packs the Terrain struct of terrain.wgsl (160 bytes).
func (p TerrainProgram) Uniforms() []byte {
	return gpu.UniformBlock(make([]byte, 0, 160)).
		F32(p.InvViewProj[:]...).
		F32(p.ViewProj[:]...).
		F32(p.Eye.X(), p.Eye.Y(), p.Eye.Z(), p.Extent).
		F32(p.Light.X(), p.Light.Y(), p.Light.Z(), float32(p.Steps)).
		Bytes()
}

func (p TerrainProgram) Shade(u, v float32, src gpu.Sampler) (color.RGBA, bool) {
	c, _, ok := p.ShadeDepth(u, v, src)
	return c, ok
}

func (p TerrainProgram) ShadeDepth(u, v float32, _ gpu.Sampler) (color.RGBA, float32, bool) {
	nx, ny := u*2-1, v*2-1
	near := unproject(p.InvViewProj, nx, ny, -1)
	far := unproject(p.InvViewProj, nx, ny, 1)

	hit, ok := p.march(near, far)
	if !ok {
		return color.RGBA{}, 1, false
	}
	clip := p.ViewProj.Mul4x1(hit.Vec4(1))
	depth := mgl32.Clamp(clip.Z()/clip.W()*0.5+0.5, 0, 1)
	return p.shade(hit), depth, true
}

func unproject(inv mgl32.Mat4, x, y, z float32) mgl32.Vec3 {
	v := inv.Mul4x1(mgl32.Vec4{x, y, z, 1})
	return v.Vec3().Mul(1 / v.W())
}

// march finds the first crossing of the segment a→b with the height field.
func (p TerrainProgram) march(a, b mgl32.Vec3) (mgl32.Vec3, bool) {
	dir := b.Sub(a)
	t0, t1, ok := p.clipToBounds(a, dir)
	if !ok {
		return mgl32.Vec3{}, false
	}
	above := func(s float32) float32 {
		q := a.Add(dir.Mul(s))
		return q.Z() - HeightAt(q.X(), q.Y())
	}

	prev := t0
	if above(prev) <= 0 {
		return a.Add(dir.Mul(prev)), true
	}
	steps := max(p.Steps, 1)
	dt := (t1 - t0) / float32(steps)
	for i := 1; i <= steps; i++ {
		cur := t0 + dt*float32(i)
		if above(cur) > 0 {
			prev = cur
			continue
		}
		lo, hi := prev, cur
		for j := 0; j < 8; j++ {
			mid := (lo + hi) / 2
			if above(mid) > 0 {
				lo = mid
			} else {
				hi = mid
			}
		}
		return a.Add(dir.Mul(hi)), true
	}
	return mgl32.Vec3{}, false
}

// clipToBounds intersects a+s·dir, s∈[0,1], with the box enclosing the
// height field.
func (p TerrainProgram) clipToBounds(a, dir mgl32.Vec3) (float32, float32, bool) {
	lo := mgl32.Vec3{-p.Extent, -p.Extent, -2.01}
	hi := mgl32.Vec3{p.Extent, p.Extent, 2.01}
	t0, t1 := float32(0), float32(1)
	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if a[i] < lo[i] || a[i] > hi[i] {
				return 0, 0, false
			}
			continue
		}
		s0 := (lo[i] - a[i]) / dir[i]
		s1 := (hi[i] - a[i]) / dir[i]
		if s0 > s1 {
			s0, s1 = s1, s0
		}
		t0 = max(t0, s0)
		t1 = min(t1, s1)
		if t0 > t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}

func (p TerrainProgram) shade(q mgl32.Vec3) color.RGBA {
	hx, hy := heightGradient(q.X(), q.Y())
	n := mgl32.Vec3{-hx, -hy, 1}.Normalize()
	l := p.Light.Sub(q).Normalize()
	o := p.Eye.Sub(q).Normalize()
	r := o.Sub(n.Mul(2 * n.Dot(o)))

	diffuse := 0.7 * max(0, n.Dot(l))
	specular := 0.6 * float32(math.Pow(float64(max(0, -r.Dot(l))), 4))
	base := HeightColor(q.Z())

	to8 := func(v float32) uint8 {
		return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
	}
	return color.RGBA{
		R: to8(0.1 + base.X()*diffuse + specular),
		G: to8(0.1 + base.Y()*diffuse + specular),
		B: to8(0.1 + base.Z()*diffuse + specular),
		A: 0xff,
	}
}
