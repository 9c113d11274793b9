// Package target describes caller-owned lightmap output buffers.
//
// A Target never allocates or retains pixel memory: it is a validated window
// onto a buffer the host owns for the duration of a bake call.
package target

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

// Image target errors.
var (
	ErrBufferTooSmall = errors.New("image buffer too small")
	ErrNullBuffer     = errors.New("null image buffer")
	ErrUnknownFormat  = errors.New("unknown pixel format")
)

// Format is the pixel layout of a target. It is always explicit: the
// buffer's element type is never inferred from the data.
type Format uint32

// Pixel formats. Float formats store native-endian float32 components.
const (
	FormatR8 Format = iota + 1
	FormatRGBA8
	FormatR32F
	FormatRGBA32F
)

// ParseFormat parses a format name as used in config files.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "r8":
		return FormatR8, nil
	case "rgba8":
		return FormatRGBA8, nil
	case "r32f":
		return FormatR32F, nil
	case "rgba32f":
		return FormatRGBA32F, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case FormatR8:
		return "r8"
	case FormatRGBA8:
		return "rgba8"
	case FormatR32F:
		return "r32f"
	case FormatRGBA32F:
		return "rgba32f"
	default:
		return fmt.Sprintf("Format(%d)", uint32(f))
	}
}

// Channels returns the number of components per pixel, or 0 for an unknown format.
func (f Format) Channels() int {
	switch f {
	case FormatR8, FormatR32F:
		return 1
	case FormatRGBA8, FormatRGBA32F:
		return 4
	}
	return 0
}

// BytesPerPixel returns the size of one pixel, or 0 for an unknown format.
func (f Format) BytesPerPixel() int {
	if f.IsFloat() {
		return 4 * f.Channels()
	}
	return f.Channels()
}

// IsFloat reports whether components are float32.
func (f Format) IsFloat() bool {
	return f == FormatR32F || f == FormatRGBA32F
}

// Size returns the number of bytes a width×height image of format f needs.
// ok is false when the product overflows.
func Size(width, height uint32, f Format) (n int, ok bool) {
	texels := uint64(width) * uint64(height) // cannot overflow
	bpp := uint64(f.BytesPerPixel())
	if bpp != 0 && texels > uint64(math.MaxInt)/bpp {
		return 0, false
	}
	return int(texels * bpp), true
}

// Target is a validated, caller-owned 2D pixel buffer.
type Target struct {
	Width  int
	Height int
	Format Format
	Pix    []byte // at least Width*Height*Format.BytesPerPixel() bytes
}

// New validates a buffer description. It never touches pix.
//
// A zero width or height is reported as ErrBufferTooSmall whatever pix is.
func New(width, height uint32, format Format, pix []byte) (*Target, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBufferTooSmall, width, height)
	}
	if pix == nil {
		return nil, ErrNullBuffer
	}
	if format.Channels() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint32(format))
	}
	need, ok := Size(width, height, format)
	if !ok {
		return nil, fmt.Errorf("%w: %dx%d %s overflows", ErrBufferTooSmall, width, height, format)
	}
	if len(pix) < need {
		return nil, fmt.Errorf("%w: %dx%d %s needs %d bytes, got %d", ErrBufferTooSmall, width, height, format, need, len(pix))
	}
	return &Target{
		Width:  int(width),
		Height: int(height),
		Format: format,
		Pix:    pix[:need:need],
	}, nil
}

// Validated applies the rules of New to a Target built by hand and returns
// the checked target over the same memory. Negative or oversized dimensions
// are reported as ErrBufferTooSmall.
func (t *Target) Validated() (*Target, error) {
	if t.Width <= 0 || t.Height <= 0 || uint64(t.Width) > math.MaxUint32 || uint64(t.Height) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBufferTooSmall, t.Width, t.Height)
	}
	return New(uint32(t.Width), uint32(t.Height), t.Format, t.Pix)
}

// Alloc returns a target backed by a fresh zeroed buffer.
func Alloc(width, height uint32, format Format) (*Target, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBufferTooSmall, width, height)
	}
	if format.Channels() == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, uint32(format))
	}
	need, ok := Size(width, height, format)
	if !ok {
		return nil, fmt.Errorf("%w: %dx%d %s overflows", ErrBufferTooSmall, width, height, format)
	}
	return New(width, height, format, make([]byte, need))
}

// Stride returns the number of bytes per row.
func (t *Target) Stride() int {
	return t.Width * t.Format.BytesPerPixel()
}

// PixOffset returns the index of the first byte of texel (x, y).
func (t *Target) PixOffset(x, y int) int {
	return y*t.Stride() + x*t.Format.BytesPerPixel()
}

// SetTexel writes an RGBA colour to texel (x, y). Single-channel formats store
// the red component. 8-bit formats clamp to [0, 1]. Writes outside the
// image are ignored.
func (t *Target) SetTexel(x, y int, c [4]float32) {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return
	}
	off := t.PixOffset(x, y)
	n := t.Format.Channels()
	for i := 0; i < n; i++ {
		if t.Format.IsFloat() {
			binary.NativeEndian.PutUint32(t.Pix[off+4*i:], math.Float32bits(c[i]))
		} else {
			t.Pix[off+i] = unorm8(c[i])
		}
	}
}

// Texel reads texel (x, y) back as RGBA. Single-channel formats replicate the
// value into RGB and report alpha 1.
func (t *Target) Texel(x, y int) [4]float32 {
	var c [4]float32
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return c
	}
	off := t.PixOffset(x, y)
	n := t.Format.Channels()
	for i := 0; i < n; i++ {
		if t.Format.IsFloat() {
			c[i] = math.Float32frombits(binary.NativeEndian.Uint32(t.Pix[off+4*i:]))
		} else {
			c[i] = float32(t.Pix[off+i]) / 255
		}
	}
	if n == 1 {
		c = [4]float32{c[0], c[0], c[0], 1}
	}
	return c
}

// Fill writes c to every texel.
func (t *Target) Fill(c [4]float32) {
	if t.Height == 0 || t.Width == 0 {
		return
	}
	// Encode once, then replicate the first pixel.
	t.SetTexel(0, 0, c)
	bpp := t.Format.BytesPerPixel()
	for off := bpp; off < len(t.Pix); off += bpp {
		copy(t.Pix[off:off+bpp], t.Pix[:bpp])
	}
}

// Checksum returns the CRC-32 (IEEE) of the pixel buffer.
func (t *Target) Checksum() uint32 {
	return crc32.ChecksumIEEE(t.Pix)
}

func unorm8(v float32) uint8 {
	switch {
	case !(v > 0): // also catches NaN
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
