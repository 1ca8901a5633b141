// Package render draws placeholder images locally.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/utafrali/catalogseed/internal/assetpool"
)

const (
	borderWidth = 4
	// Upscale factor for the 7x13 bitmap face.
	textScale = 4
)

// Generator writes PNG files with a solid background, a border and a centred
// label.
type Generator struct{}

// New creates a local generator.
func New() *Generator {
	return &Generator{}
}

var _ assetpool.Generator = (*Generator)(nil)

// Generate renders req and writes it to req.Path.
func (g *Generator) Generate(ctx context.Context, req assetpool.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Width <= 0 || req.Height <= 0 {
		return "", fmt.Errorf("invalid size %dx%d", req.Width, req.Height)
	}
	bg, err := ParseHex(req.Background)
	if err != nil {
		return "", err
	}
	fg, err := ParseHex(req.Foreground)
	if err != nil {
		return "", err
	}

	img := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(fg), image.Point{}, draw.Src)
	inner := img.Bounds().Inset(borderWidth)
	draw.Draw(img, inner, image.NewUniform(bg), image.Point{}, draw.Src)

	drawLabel(img, req.Text, fg)

	return req.Path, writePNG(req.Path, img)
}

func drawLabel(dst *image.RGBA, text string, fg color.Color) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	w := d.MeasureString(text).Ceil()
	h := face.Metrics().Height.Ceil()

	label := image.NewRGBA(image.Rect(0, 0, w, h))
	d.Dst = label
	d.Src = image.NewUniform(fg)
	d.Dot = fixed.P(0, face.Metrics().Ascent.Ceil())
	d.DrawString(text)

	scale := textScale
	for scale > 1 && (w*scale > dst.Bounds().Dx()-2*borderWidth || h*scale > dst.Bounds().Dy()-2*borderWidth) {
		scale--
	}
	sw, sh := w*scale, h*scale
	x0 := (dst.Bounds().Dx() - sw) / 2
	y0 := (dst.Bounds().Dy() - sh) / 2
	draw.NearestNeighbor.Scale(dst, image.Rect(x0, y0, x0+sw, y0+sh), label, label.Bounds(), draw.Over, nil)
}

// writePNG writes through a temp file so a crash never leaves a truncated
// pool file behind.
func writePNG(path string, img image.Image) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".render-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("move %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
