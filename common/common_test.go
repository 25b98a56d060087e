package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	for _, in := range []string{"#ffd700", "0xffd700", "FFD700"} {
		c, err := ParseHexColor(in)
		require.NoError(t, err, in)
		assert.InDelta(t, 1.0, c[0], 1e-6)
		assert.InDelta(t, 215.0/255, c[1], 1e-6)
		assert.InDelta(t, 0.0, c[2], 1e-6)
		assert.Equal(t, float32(1), c[3])
	}

	_, err := ParseHexColor("#fff")
	assert.Error(t, err)
	_, err = ParseHexColor("zzzzzz")
	assert.Error(t, err)
}

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(10, 0))
	assert.Equal(t, 50.0, Percent(5, 10))
	assert.Equal(t, 100.0, Percent(12, 10))
	assert.Zero(t, Percent(-1, 10))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImportedTextureDecodeScalesDown(t *testing.T) {
	tex := &ImportedTexture{Name: "bg", Data: encodePNG(t, 64, 32), MimeType: "image/png"}

	full, err := tex.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), full.Width)
	assert.Equal(t, uint32(32), full.Height)
	assert.Len(t, full.Pixels, 64*32*4)

	small, err := tex.Decode(16)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), small.Width)
	assert.Equal(t, uint32(8), small.Height)
	assert.Len(t, small.Pixels, 16*8*4)
	assert.InDelta(t, 200, int(small.Pixels[0]), 2)
}

func TestImportedTextureDecodeErrors(t *testing.T) {
	var nilTex *ImportedTexture
	_, err := nilTex.Decode(0)
	assert.Error(t, err)

	_, err = (&ImportedTexture{Name: "empty"}).Decode(0)
	assert.Error(t, err)

	_, err = (&ImportedTexture{Name: "junk", Data: []byte("not an image")}).Decode(0)
	assert.Error(t, err)
}

func TestPerspectiveMapsDepthToZeroOne(t *testing.T) {
	proj := Perspective(float32(math.Pi/2), 1, 0.1, 1000)

	near := proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -1000, 1})
	assert.InDelta(t, 0.0, near[2]/near[3], 1e-4)
	assert.InDelta(t, 1.0, far[2]/far[3], 1e-4)
}

func TestFrustumCulling(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(75), 16.0/9.0, 0.1, 1000)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f := ExtractFrustum(proj.Mul4(view))

	assert.True(t, f.IntersectsAABB(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}))
	assert.False(t, f.IntersectsAABB(mgl32.Vec3{-1, -1, 10}, mgl32.Vec3{1, 1, 12}), "behind the camera")
	assert.False(t, f.IntersectsAABB(mgl32.Vec3{-1, -1, -2000}, mgl32.Vec3{1, 1, -1990}), "past the far plane")
	assert.False(t, f.IntersectsAABB(mgl32.Vec3{500, -1, -1}, mgl32.Vec3{501, 1, 1}), "far to the right")
}

func TestTransformAABB(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 2, 2))
	lo, hi := TransformAABB(m, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	assert.Equal(t, mgl32.Vec3{-1, 0, 1}, lo)
	assert.Equal(t, mgl32.Vec3{3, 4, 5}, hi)
}
