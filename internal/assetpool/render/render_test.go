package render

import (
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogseed/internal/assetpool"
)

func TestGenerate_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool_image_001.png")

	got, err := New().Generate(context.Background(), assetpool.GenerateRequest{
		Text:       "#001",
		Width:      120,
		Height:     80,
		Background: "#1f77b4",
		Foreground: "#ffffff",
		Path:       path,
	})
	require.NoError(t, err)
	assert.Equal(t, path, got)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())

	border := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, border)

	inside := color.RGBAModel.Convert(img.At(borderWidth+1, borderWidth+1)).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, inside)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	g := New()

	_, err := g.Generate(context.Background(), assetpool.GenerateRequest{Width: 0, Height: 10, Background: "#000000", Foreground: "#ffffff", Path: filepath.Join(dir, "a.png")})
	assert.Error(t, err)

	_, err = g.Generate(context.Background(), assetpool.GenerateRequest{Width: 10, Height: 10, Background: "blue", Foreground: "#ffffff", Path: filepath.Join(dir, "b.png")})
	assert.Error(t, err)
}

func TestGenerate_TinyImageStillRendersLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.png")
	_, err := New().Generate(context.Background(), assetpool.GenerateRequest{
		Text: "a very long label", Width: 16, Height: 16,
		Background: "#000000", Foreground: "#ffffff", Path: path,
	})
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff7f0e")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}, c)

	c, err = ParseHex("000000")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), c.A)

	_, err = ParseHex("#zzzzzz")
	assert.Error(t, err)
}
