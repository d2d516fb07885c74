// Package imageio decodes client uploads and normalises them into an opaque
// RGB image ready to be written as JPEG.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of an upload.
const MaxPixels = 80_000_000

var (
	ErrNotAnImage = errors.New("payload is not a decodable image")
	ErrTooLarge   = errors.New("image dimensions exceed the allowed pixel count")
)

// Normalize decodes data, composites any transparency onto white and, when
// maxDimension > 0, shrinks the image so neither side exceeds it. The
// decoder format name is returned for logging.
func Normalize(data []byte, maxDimension int) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, ErrNotAnImage
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	var img image.Image = flatten(src)

	if maxDimension > 0 {
		b := img.Bounds()
		if b.Dx() > maxDimension || b.Dy() > maxDimension {
			img = resize.Thumbnail(uint(maxDimension), uint(maxDimension), img, resize.Lanczos3)
		}
	}

	return img, format, nil
}

// flatten copies src onto a white RGBA canvas anchored at the origin.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
