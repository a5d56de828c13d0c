package scene

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/types"
)

const (
	// Default vertical field of view in degrees.
	DefaultFOV float32 = 45

	// Pitch is clamped to this range (in degrees) to avoid flipping over
	// the vertical axis.
	maxPitch float32 = 89
)

type CameraDirection uint8

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
	Up
	Down
)

// The camera type describes a pinhole camera. Rotation stores pitch, yaw and
// roll in degrees; with a zero rotation the camera looks down the negative Z
// axis and positive yaw turns it towards positive X.
type Camera struct {
	Position types.Vec3
	Rotation types.Vec3

	// Vertical field of view in degrees.
	FOV float32

	// Width / height ratio of the render target.
	Aspect float32
}

func NewCamera(fov float32) *Camera {
	if fov <= 0 {
		fov = DefaultFOV
	}
	return &Camera{
		FOV:    fov,
		Aspect: 1,
	}
}

func (c *Camera) String() string {
	return fmt.Sprintf(
		"Camera: pos (%3.3f, %3.3f, %3.3f) rot (%3.1f, %3.1f, %3.1f) fov %3.1f",
		c.Position[0], c.Position[1], c.Position[2],
		c.Rotation[0], c.Rotation[1], c.Rotation[2],
		c.FOV,
	)
}

// Orientation returns the camera rotation as a quaternion. Yaw is applied
// first, followed by pitch and roll.
func (c *Camera) Orientation() mgl32.Quat {
	return mgl32.AnglesToQuat(
		mgl32.DegToRad(-c.Rotation[1]),
		mgl32.DegToRad(c.Rotation[0]),
		mgl32.DegToRad(c.Rotation[2]),
		mgl32.YXZ,
	)
}

// Basis returns the camera forward, right and up unit vectors.
func (c *Camera) Basis() (forward, right, up types.Vec3) {
	q := c.Orientation()
	forward = types.Vec3(q.Rotate(mgl32.Vec3{0, 0, -1}))
	right = types.Vec3(q.Rotate(mgl32.Vec3{1, 0, 0}))
	up = types.Vec3(q.Rotate(mgl32.Vec3{0, 1, 0}))
	return forward, right, up
}

// GenerateRay returns the primary ray through the normalized image
// coordinates (u, v). (0, 0) is the top-left corner of the image and (1, 1)
// the bottom-right one.
func (c *Camera) GenerateRay(u, v float32) bvh.Ray {
	forward, right, up := c.Basis()
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}

	tanHalf := math32.Tan(mgl32.DegToRad(c.FOV) * 0.5)
	px := (2*u - 1) * aspect * tanHalf
	py := (1 - 2*v) * tanHalf

	dir := forward.Add(right.Mul(px)).Add(up.Mul(py)).Normalize()
	return bvh.NewRay(c.Position, dir)
}

// Move the camera. Forward and sideways movements follow the camera yaw and
// stay on the horizontal plane.
func (c *Camera) Move(dir CameraDirection, amount float32) {
	yaw := mgl32.DegToRad(c.Rotation[1])
	sin, cos := math32.Sincos(yaw)

	switch dir {
	case Forward:
		c.Position = c.Position.Add(types.XYZ(sin, 0, -cos).Mul(amount))
	case Backward:
		c.Position = c.Position.Sub(types.XYZ(sin, 0, -cos).Mul(amount))
	case Left:
		c.Position = c.Position.Sub(types.XYZ(cos, 0, sin).Mul(amount))
	case Right:
		c.Position = c.Position.Add(types.XYZ(cos, 0, sin).Mul(amount))
	case Up:
		c.Position[1] += amount
	case Down:
		c.Position[1] -= amount
	}
}

// Rotate adds the pitch and yaw deltas (in degrees) to the camera rotation.
// The resulting pitch is clamped to +/- 89 degrees.
func (c *Camera) Rotate(pitch, yaw float32) {
	c.Rotation[0] = math32.Max(-maxPitch, math32.Min(maxPitch, c.Rotation[0]+pitch))
	c.Rotation[1] += yaw
}
