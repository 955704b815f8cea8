package gfx

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("vulkan")
	require.NoError(t, err)
	assert.Equal(t, Vulkan, p)

	p, err = ParsePlatform("gl")
	require.NoError(t, err)
	assert.Equal(t, OpenGL, p)

	_, err = ParsePlatform("metal")
	assert.Error(t, err)

	assert.Equal(t, "vulkan", Vulkan.String())
	assert.Equal(t, "Platform(7)", Platform(7).String())
}

func TestTransformIdentity(t *testing.T) {
	assert.True(t, NewTransform().Matrix().ApproxEqual(mgl32.Ident4()))
}

func TestTransformMatrix(t *testing.T) {
	tr := NewTransform()
	tr.Position = mgl32.Vec3{1, 2, 3}
	tr.Rotation = mgl32.Vec3{0, 0, math.Pi / 2}
	tr.Scale = mgl32.Vec3{2, 2, 2}

	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})

	// scaled to (2,0,0), rotated to (0,2,0), translated to (1,4,3)
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec4{1, 4, 3, 1}, 1e-5), "got %v", p)
}
