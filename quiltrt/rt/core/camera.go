package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultFOV is the vertical field of view in degrees. A display about
	// 4.75" tall seen from roughly 36" away subtends about 14 degrees.
	DefaultFOV        float32 = 14
	DefaultCameraSize float32 = 5
	NearPlane         float32 = 0.1
	FarPlane          float32 = 100

	MinCameraSize float32 = 1
	MaxCameraSize float32 = 10
)

// ViewCamera is the camera pair for a single view. It is recomputed for
// every view of every frame.
type ViewCamera struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	// Offset is the horizontal shift of this view along the base camera's
	// right axis, in scene units.
	Offset float32
}

// ViewProjection returns Projection * View.
func (c ViewCamera) ViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.View)
}

// CameraRig holds the inputs shared by every view of a frame.
type CameraRig struct {
	ViewCone float32 // degrees, total sweep across all views
	Size     float32 // half height of the focal plane, scene units
	FOV      float32 // vertical field of view, degrees
	Aspect   float32 // output window width / height
}

func NewCameraRig(viewCone, size, aspect float32) CameraRig {
	return CameraRig{
		ViewCone: viewCone,
		Size:     size,
		FOV:      DefaultFOV,
		Aspect:   aspect,
	}
}

// Distance is the signed distance from the focal plane to the cameras. It
// is negative: the cameras sit behind the plane along the view axis.
func (r CameraRig) Distance() float32 {
	fov := float64(mgl32.DegToRad(r.FOV))
	return float32(-float64(r.Size) / math.Tan(fov/2))
}

// OffsetAngle returns the sweep angle in radians for view i. Views run
// from -ViewCone/2 to +ViewCone/2. A single view sits on the axis.
func (r CameraRig) OffsetAngle(i, totalViews int) float32 {
	if totalViews <= 1 {
		return 0
	}
	t := float32(i)/float32(totalViews-1) - 0.5
	return t * mgl32.DegToRad(r.ViewCone)
}

// Offset is the horizontal camera shift for view i.
func (r CameraRig) Offset(i, totalViews int) float32 {
	return r.Distance() * float32(math.Tan(float64(r.OffsetAngle(i, totalViews))))
}

// ViewCamera computes the parallax-shifted view and the off-axis projection
// for view i. The shift is applied in the base camera's local frame and the
// projection is sheared rather than rotated, so every view keeps its image
// plane coplanar with the focal plane at distance Size.
func (r CameraRig) ViewCamera(i, totalViews int, base mgl32.Mat4) ViewCamera {
	dist := r.Distance()
	offset := r.Offset(i, totalViews)

	// Left-multiplying moves the camera in its own frame: +x is always the
	// base camera's right axis whatever its orientation.
	view := mgl32.Translate3D(offset, 0, dist).Mul4(base)

	aspect := r.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	proj := mgl32.Perspective(mgl32.DegToRad(r.FOV), aspect, NearPlane, FarPlane)
	if r.Size != 0 {
		proj.Set(0, 2, proj.At(0, 2)+offset/(r.Size*aspect))
	}

	return ViewCamera{View: view, Projection: proj, Offset: offset}
}

// ClampCameraSize keeps a zoomed camera size within the supported range.
func ClampCameraSize(size float32) float32 {
	return mgl32.Clamp(size, MinCameraSize, MaxCameraSize)
}
