package convert_test

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenetia/zap/pkg/convert"
)

// writeTestImage creates a solid-color PNG and returns its path.
func writeTestImage(t *testing.T, dir string, width, height int) string {
	t.Helper()

	path := filepath.Join(dir, "input.png")
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestImageConvert(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, 40, 30)
	output := filepath.Join(dir, "output.jpg")

	svc := convert.NewImageService()
	require.NoError(t, svc.Convert(context.Background(), input, output))

	img, err := imaging.Open(output)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestImageResize(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, 100, 50)
	svc := convert.NewImageService()

	t.Run("stretch", func(t *testing.T) {
		output := filepath.Join(dir, "stretched.png")
		require.NoError(t, svc.Resize(context.Background(), input, output, 30, 30, false))

		img, err := imaging.Open(output)
		require.NoError(t, err)
		assert.Equal(t, 30, img.Bounds().Dx())
		assert.Equal(t, 30, img.Bounds().Dy())
	})

	t.Run("keep aspect", func(t *testing.T) {
		output := filepath.Join(dir, "fitted.png")
		require.NoError(t, svc.Resize(context.Background(), input, output, 30, 30, true))

		// 100x50 fit into 30x30 keeps the 2:1 ratio
		img, err := imaging.Open(output)
		require.NoError(t, err)
		assert.Equal(t, 30, img.Bounds().Dx())
		assert.Equal(t, 15, img.Bounds().Dy())
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		output := filepath.Join(dir, "bad.png")
		assert.Error(t, svc.Resize(context.Background(), input, output, 0, 30, false))
		assert.Error(t, svc.Resize(context.Background(), input, output, 30, -1, false))
	})
}

func TestImageCrop(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, 100, 100)
	svc := convert.NewImageService()

	output := filepath.Join(dir, "cropped.png")
	require.NoError(t, svc.Crop(context.Background(), input, output, 10, 20, 40, 30))

	img, err := imaging.Open(output)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())

	// A rectangle reaching past the edge is rejected, not clamped
	assert.Error(t, svc.Crop(context.Background(), input, output, 80, 80, 40, 40))
	assert.Error(t, svc.Crop(context.Background(), input, output, -1, 0, 10, 10))
}

func TestImageCompress(t *testing.T) {
	dir := t.TempDir()
	input := writeTestImage(t, dir, 60, 60)
	svc := convert.NewImageService()

	output := filepath.Join(dir, "compressed.jpg")
	require.NoError(t, svc.Compress(context.Background(), input, output, 40))

	img, err := imaging.Open(output)
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())

	assert.Error(t, svc.Compress(context.Background(), input, output, 0))
	assert.Error(t, svc.Compress(context.Background(), input, output, 101))
}
