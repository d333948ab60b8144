package scene

import (
	"math"

	"github.com/gekko3d/holoquilt/quiltrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// FlyCamera is a free-look camera driven by WASD and mouse motion. Y is up.
type FlyCamera struct {
	Position    mgl32.Vec3
	Up          mgl32.Vec3
	Yaw         float32 // degrees, -90 looks down -Z
	Pitch       float32 // degrees
	Speed       float32 // units per second
	Sensitivity float32 // degrees per mouse pixel
}

func NewFlyCamera() *FlyCamera {
	return &FlyCamera{
		Position:    mgl32.Vec3{0, 0, 3},
		Up:          mgl32.Vec3{0, 1, 0},
		Yaw:         -90,
		Speed:       5,
		Sensitivity: 0.5,
	}
}

func (c *FlyCamera) Forward() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(c.Pitch))
	return mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}.Normalize()
}

func (c *FlyCamera) Right() mgl32.Vec3 {
	return c.Forward().Cross(c.Up).Normalize()
}

// Apply moves and turns the camera for one frame of input.
func (c *FlyCamera) Apply(in core.InputState, dt float32) {
	c.Yaw += float32(in.MouseDX) * c.Sensitivity
	c.Pitch -= float32(in.MouseDY) * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -89, 89)

	if dt <= 0 {
		return
	}
	forward, right := c.Forward(), c.Right()
	move := mgl32.Vec3{}
	if in.Forward {
		move = move.Add(forward)
	}
	if in.Back {
		move = move.Sub(forward)
	}
	if in.Right {
		move = move.Add(right)
	}
	if in.Left {
		move = move.Sub(right)
	}
	if move.Len() > 0 {
		c.Position = c.Position.Add(move.Normalize().Mul(c.Speed * dt))
	}
}

func (c *FlyCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), c.Up)
}
