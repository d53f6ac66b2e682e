package workers

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitNeverUpscales(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 120, 80))
	got := fit(src, 800, 600)
	assert.Equal(t, 120, got.Bounds().Dx())
	assert.Equal(t, 80, got.Bounds().Dy())
}

func TestFitKeepsAspectRatio(t *testing.T) {
	tall := fit(image.NewNRGBA(image.Rect(0, 0, 600, 1200)), 800, 600)
	assert.Equal(t, image.Rect(0, 0, 300, 600), tall.Bounds())

	wide := fit(image.NewNRGBA(image.Rect(0, 0, 4000, 10)), 250, 150)
	assert.Equal(t, 250, wide.Bounds().Dx())
	assert.Equal(t, 1, wide.Bounds().Dy())
}

func TestFitFlattensTransparency(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	got := fit(src, 10, 10)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, got.RGBAAt(1, 1))
}
