package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ImageService performs image transformations with the imaging library.
// Background removal is the one exception: it is delegated to the
// external rembg tool, same as the original service.
type ImageService struct {
	// RembgPath overrides the rembg binary location. Empty means $PATH.
	RembgPath string
}

func NewImageService() *ImageService {
	return &ImageService{}
}

// Convert re-encodes the image into the format implied by the output
// file's extension.
func (s *ImageService) Convert(ctx context.Context, input, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	if err := imaging.Save(img, output); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// Resize scales the image to the given dimensions. With keepAspect the
// image is fit inside the bounding box instead of stretched.
func (s *ImageService) Resize(ctx context.Context, input, output string, width, height int, keepAspect bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	if keepAspect {
		img = imaging.Fit(img, width, height, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	if err := imaging.Save(img, output); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// Crop cuts the rectangle with top-left corner (x, y) and the given size.
func (s *ImageService) Crop(ctx context.Context, input, output string, x, y, width, height int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 || x < 0 || y < 0 {
		return fmt.Errorf("invalid crop rectangle %d,%d %dx%d", x, y, width, height)
	}

	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	rect := image.Rect(x, y, x+width, y+height)
	if !rect.In(img.Bounds()) {
		return fmt.Errorf("crop rectangle %v outside image bounds %v", rect, img.Bounds())
	}

	if err := imaging.Save(imaging.Crop(img, rect), output); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// Compress re-encodes the image at the given quality (1-100, JPEG) or
// with maximum deflate effort (PNG).
func (s *ImageService) Compress(ctx context.Context, input, output string, quality int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if quality < 1 || quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", quality)
	}

	img, err := imaging.Open(input, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	var opts []imaging.EncodeOption
	switch strings.ToLower(filepath.Ext(output)) {
	case ".jpg", ".jpeg":
		opts = append(opts, imaging.JPEGQuality(quality))
	case ".png":
		opts = append(opts, imaging.PNGCompressionLevel(png.BestCompression))
	}

	if err := imaging.Save(img, output, opts...); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// RemoveBackground runs the external rembg tool over the input image.
func (s *ImageService) RemoveBackground(ctx context.Context, input, output string) error {
	bin := s.RembgPath
	if bin == "" {
		bin = "rembg"
	}

	cmd := exec.CommandContext(ctx, bin, "i", input, output)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("background removal failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
