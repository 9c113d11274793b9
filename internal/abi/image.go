package abi

import (
	"unsafe"

	"github.com/Faultbox/lightbake/pkg/target"
)

// Image is any wire shape of an output image.
type Image interface {
	// Buffer returns the image description and the host bytes it covers.
	// The slice is nil only when the host pointer is nil.
	Buffer() (width, height uint32, format target.Format, pix []byte)
}

// ImageSlice is the canonical image shape with an explicit pixel format
// (one of the target.Format values).
type ImageSlice struct {
	Width  uint32
	Height uint32
	Format uint32
	Data   *byte
}

// ImageSliceF32 is the legacy float image. Pixels are RGBA32F.
type ImageSliceF32 struct {
	Width  uint32
	Height uint32
	Data   *float32
}

// ImageSliceU8 is the legacy 8-bit image. Pixels are RGBA8.
type ImageSliceU8 struct {
	Width  uint32
	Height uint32
	Data   *byte
}

// Buffer implements Image.
func (img *ImageSlice) Buffer() (uint32, uint32, target.Format, []byte) {
	f := target.Format(img.Format)
	return img.Width, img.Height, f, pixels(unsafe.Pointer(img.Data), img.Width, img.Height, f)
}

// Buffer implements Image.
func (img *ImageSliceF32) Buffer() (uint32, uint32, target.Format, []byte) {
	return img.Width, img.Height, target.FormatRGBA32F, pixels(unsafe.Pointer(img.Data), img.Width, img.Height, target.FormatRGBA32F)
}

// Buffer implements Image.
func (img *ImageSliceU8) Buffer() (uint32, uint32, target.Format, []byte) {
	return img.Width, img.Height, target.FormatRGBA8, pixels(unsafe.Pointer(img.Data), img.Width, img.Height, target.FormatRGBA8)
}

// pixels returns the bytes a width×height image of format f occupies at p.
// When the size is unknown (bad format, overflow) it returns an empty
// non-nil slice so that validation reports the real problem instead of a
// null buffer.
func pixels(p unsafe.Pointer, width, height uint32, f target.Format) []byte {
	if p == nil {
		return nil
	}
	n, ok := target.Size(width, height, f)
	if !ok || f.BytesPerPixel() == 0 {
		n = 0
	}
	return unsafe.Slice((*byte)(p), n)
}
