package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/quire/layout"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFontBytes(t *testing.T) {
	a := Assets{Fonts: map[string][]byte{"custom": []byte("font")}}

	data, err := a.FontBytes("builtin:latin-modern")
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	data, err = a.FontBytes("built-in:custom")
	require.NoError(t, err)
	assert.Equal(t, []byte("font"), data)

	_, err = a.FontBytes("builtin:nope")
	require.ErrorContains(t, err, "nope")

	_, err = a.FontBytes("fonts/body.ttf")
	require.Error(t, err, "没有 BaseDir 时拒绝相对路径")
}

func TestImageFromDisk(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(4, 2, color.White)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), buf.Bytes(), 0o644))

	a := Assets{BaseDir: dir, Images: map[string][]byte{"logo": buf.Bytes()}}
	img, err := a.Image("logo.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())

	img, err = a.Image("builtin:logo")
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = a.Image("missing.png")
	require.Error(t, err)
}

func TestFitImage(t *testing.T) {
	img := solid(200, 100, color.Black)

	dx, dy, dw, dh := FitImage(img, "contain", 50, 50)
	assert.Equal(t, [4]float64{0, 12.5, 50, 25}, [4]float64{dx, dy, dw, dh})

	dx, dy, dw, dh = FitImage(img, "cover", 50, 50)
	assert.Equal(t, [4]float64{-25, 0, 100, 50}, [4]float64{dx, dy, dw, dh})

	dx, dy, dw, dh = FitImage(img, "fill", 50, 50)
	assert.Equal(t, [4]float64{0, 0, 50, 50}, [4]float64{dx, dy, dw, dh})
}

func TestComposeCoverAndOpacity(t *testing.T) {
	img := solid(200, 100, color.RGBA{R: 255, A: 255})

	out, dx, dy, dw, dh := Compose(img, layout.ImageBox{Width: 50, Height: 50, Fit: "cover"})
	assert.Equal(t, [4]float64{0, 0, 50, 50}, [4]float64{dx, dy, dw, dh})
	assert.Equal(t, 100, out.Bounds().Dx(), "裁成与框相同的宽高比")
	assert.Equal(t, 100, out.Bounds().Dy())

	out, _, _, _, _ = Compose(img, layout.ImageBox{Width: 50, Height: 25, Opacity: 0.5})
	_, _, _, a := out.At(0, 0).RGBA()
	assert.InDelta(t, 0x8080, a, 0x200)
}
