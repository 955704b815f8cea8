// Package gfx holds the small value types shared by the window, the render
// facade and its backends.
package gfx

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

type Platform int

const (
	OpenGL Platform = iota
	Vulkan
)

func (p Platform) String() string {
	switch p {
	case OpenGL:
		return "opengl"
	case Vulkan:
		return "vulkan"
	}
	return fmt.Sprintf("Platform(%d)", int(p))
}

// ParsePlatform maps "opengl" or "vulkan" to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "opengl", "gl":
		return OpenGL, nil
	case "vulkan", "vk":
		return Vulkan, nil
	}
	return 0, errors.Newf("unknown platform %q", s)
}

// Mesh identifies geometry that already lives on the GPU.
type Mesh struct {
	ID          uint32
	VertexCount int
	IndexCount  int
}

// Transform places an object in the world. Rotation is in radians, applied
// X, then Y, then Z.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix returns the model matrix T * Rz * Ry * Rx * S.
func (t Transform) Matrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := mgl32.HomogRotate3DZ(t.Rotation.Z()).
		Mul4(mgl32.HomogRotate3DY(t.Rotation.Y())).
		Mul4(mgl32.HomogRotate3DX(t.Rotation.X()))
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}
