// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// Color is a linear RGBA color with components in [0, 1].
type Color [4]float32

// White is opaque white.
var White = Color{1, 1, 1, 1}

// Black is opaque black.
var Black = Color{0, 0, 0, 1}

// RGB returns the first three components of the color.
func (c Color) RGB() [3]float32 {
	return [3]float32{c[0], c[1], c[2]}
}

// Scale returns the color with its RGB components multiplied by f. Alpha is kept.
func (c Color) Scale(f float32) Color {
	return Color{c[0] * f, c[1] * f, c[2] * f, c[3]}
}

// ParseHexColor parses "#rrggbb", "0xrrggbb" or "rrggbb" into an opaque Color.
//
// Parameters:
//   - s: the hex color string
//
// Returns:
//   - Color: the parsed color
//   - error: an error if the string is not a 6 digit hex color
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if len(h) != 6 {
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return Color{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
		1,
	}, nil
}

// TextureStagingData holds RGBA pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// ImportedMaterial represents material properties from an imported model file.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo/diffuse color (RGBA).
	BaseColor Color

	// DiffuseTexture holds embedded texture data (if present).
	DiffuseTexture *ImportedTexture
}

// ImportedTexture represents encoded image data extracted from a model file or fetched as a standalone image.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "diffuse", "background").
	Name string

	// Data contains raw image bytes (PNG/JPEG).
	Data []byte

	// MimeType indicates the image format (e.g., "image/png", "image/jpeg").
	MimeType string
}

// Decode decodes the texture to RGBA staging data, scaling it down so neither side exceeds maxDimension.
// A maxDimension of 0 disables scaling.
// Reference: https://pkg.go.dev/golang.org/x/image/draw
//
// Parameters:
//   - maxDimension: the largest width or height the GPU accepts
//
// Returns:
//   - TextureStagingData: RGBA pixels (4 bytes per pixel, row-major order)
//   - error: error if decoding fails
func (t *ImportedTexture) Decode(maxDimension uint32) (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, errors.New("texture is nil")
	}
	if len(t.Data) == 0 {
		return TextureStagingData{}, fmt.Errorf("texture %q has no data", t.Name)
	}

	img, _, err := image.Decode(bytes.NewReader(t.Data))
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image %q: %w", t.Name, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxDimension > 0 {
		width, height = fitWithin(width, height, int(maxDimension))
	}

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	}

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(width),
		Height: uint32(height),
	}, nil
}

// fitWithin scales (w, h) down uniformly so that neither side exceeds limit.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
