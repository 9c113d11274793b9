// Package export converts baked lightmaps into standard images and writes
// them to disk.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"

	"github.com/Faultbox/lightbake/pkg/target"
)

// ErrUnsupportedExt is returned for output paths with an unknown extension.
var ErrUnsupportedExt = errors.New("unsupported image extension")

// Extensions lists the output file extensions Write understands.
var Extensions = []string{".png", ".webp", ".tga"}

// ToImage copies a target into an 8-bit image. Single-channel formats become
// *image.Gray, RGBA formats *image.NRGBA. Float values are clamped to [0, 1].
func ToImage(t *target.Target) image.Image {
	r := image.Rect(0, 0, t.Width, t.Height)
	if t.Format.Channels() == 1 {
		img := image.NewGray(r)
		for y := 0; y < t.Height; y++ {
			for x := 0; x < t.Width; x++ {
				img.SetGray(x, y, color.Gray{Y: to8(t.Texel(x, y)[0])})
			}
		}
		return img
	}

	img := image.NewNRGBA(r)
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			c := t.Texel(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = to8(c[0])
			img.Pix[i+1] = to8(c[1])
			img.Pix[i+2] = to8(c[2])
			img.Pix[i+3] = to8(c[3])
		}
	}
	return img
}

// Scale resamples img by an integer factor using Catmull-Rom filtering.
// A factor of 1 or less returns img unchanged.
func Scale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	r := image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor)

	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(r)
	} else {
		dst = image.NewNRGBA(r)
	}
	draw.CatmullRom.Scale(dst, r, img, b, draw.Src, nil)
	return dst
}

// Encode writes img to w in the format named by ext.
func Encode(w io.Writer, ext string, img image.Image) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".webp":
		return nativewebp.Encode(w, img, nil)
	case ".tga":
		return tga.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
}

// Write encodes img to path, choosing the format from the file extension and
// creating parent directories as needed.
func Write(path string, img image.Image) (err error) {
	ext := filepath.Ext(path)
	if !supported(ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: close %s: %w", path, cerr)
		}
	}()

	if err := Encode(f, ext, img); err != nil {
		return fmt.Errorf("export: encode %s: %w", path, err)
	}
	return nil
}

func supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func to8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
