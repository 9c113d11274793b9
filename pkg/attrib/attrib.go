// Package attrib provides read-only strided views over caller-owned vertex
// attribute memory.
//
// A View hides which of the four accepted wire layouts backs it: tight float
// arrays, untyped byte-stride slices, float arrays with an explicit stride and
// byte-stride slices carrying an explicit element type. Consumers read every
// layout through Element, so validation and baking are written once.
package attrib

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	lmath "github.com/Faultbox/lightbake/pkg/math"
)

// Attribute view errors.
var (
	ErrInvalidLayout = errors.New("invalid attribute layout")
	ErrNullBuffer    = errors.New("null attribute buffer")
	ErrOutOfRange    = errors.New("attribute index out of range")
)

// MaxComponents is the largest component count a view can expose.
const MaxComponents = 4

// Layout identifies the wire convention a view was built from.
type Layout uint8

// Layouts.
const (
	// LayoutNone is the layout of the zero View (absent attribute).
	LayoutNone Layout = iota
	// LayoutTightFloat is an implicit, tightly packed float32 array.
	LayoutTightFloat
	// LayoutByteStride is a byte pointer plus stride with no element type.
	// Elements are read as native-endian float32.
	LayoutByteStride
	// LayoutFloatStride is a float32 array with an explicit byte stride.
	LayoutFloatStride
	// LayoutTypedByteStride is a byte pointer plus stride with an explicit
	// element type.
	LayoutTypedByteStride
)

// String implements fmt.Stringer.
func (l Layout) String() string {
	switch l {
	case LayoutNone:
		return "none"
	case LayoutTightFloat:
		return "tight-float"
	case LayoutByteStride:
		return "byte-stride"
	case LayoutFloatStride:
		return "float-stride"
	case LayoutTypedByteStride:
		return "typed-byte-stride"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// ElementType is the storage type of one attribute component.
type ElementType uint8

// Element types.
const (
	Float32 ElementType = iota
	Unorm8
	Snorm8
	Uint8
)

// Size returns the size in bytes of one component.
func (e ElementType) Size() int {
	if e == Float32 {
		return 4
	}
	return 1
}

// Valid reports whether e is a known element type.
func (e ElementType) Valid() bool {
	return e <= Uint8
}

// String implements fmt.Stringer.
func (e ElementType) String() string {
	switch e {
	case Float32:
		return "float32"
	case Unorm8:
		return "unorm8"
	case Snorm8:
		return "snorm8"
	case Uint8:
		return "uint8"
	default:
		return fmt.Sprintf("ElementType(%d)", uint8(e))
	}
}

// View is a non-owning, bounds-checked strided view.
// The zero View is an absent attribute.
type View struct {
	data   []byte
	floats []float32
	stride int // bytes
	count  int
	comps  int
	elem   ElementType
	layout Layout
}

// FromFloats returns a view over a tightly packed float32 array with comps
// components per element. len(data) must be a multiple of comps.
func FromFloats(data []float32, comps int) (View, error) {
	if err := checkComps(comps); err != nil {
		return View{}, err
	}
	if len(data)%comps != 0 {
		return View{}, fmt.Errorf("%w: %d floats is not a multiple of %d components", ErrInvalidLayout, len(data), comps)
	}
	return View{
		floats: data,
		stride: comps * 4,
		count:  len(data) / comps,
		comps:  comps,
		elem:   Float32,
		layout: LayoutTightFloat,
	}, nil
}

// NewFloatView returns a view of count elements spaced stride bytes apart
// inside data. stride must be a multiple of 4.
func NewFloatView(data []float32, count, stride, comps int) (View, error) {
	if err := checkComps(comps); err != nil {
		return View{}, err
	}
	if count == 0 {
		return View{comps: comps, elem: Float32, stride: stride, layout: LayoutFloatStride}, nil
	}
	if data == nil {
		return View{}, ErrNullBuffer
	}
	if stride%4 != 0 {
		return View{}, fmt.Errorf("%w: stride %d is not float aligned", ErrInvalidLayout, stride)
	}
	if err := checkExtent(len(data)*4, count, stride, comps*4); err != nil {
		return View{}, err
	}
	return View{
		floats: data,
		stride: stride,
		count:  count,
		comps:  comps,
		elem:   Float32,
		layout: LayoutFloatStride,
	}, nil
}

// NewByteView returns a view over untyped bytes. Elements are decoded as
// native-endian float32, which is the only convention the untyped wire
// layout has ever carried.
func NewByteView(data []byte, count, stride, comps int) (View, error) {
	return newBytes(data, count, stride, comps, Float32, LayoutByteStride)
}

// NewTypedView returns a view over bytes whose components have type elem.
func NewTypedView(data []byte, count, stride, comps int, elem ElementType) (View, error) {
	if !elem.Valid() {
		return View{}, fmt.Errorf("%w: unknown element type %d", ErrInvalidLayout, uint8(elem))
	}
	return newBytes(data, count, stride, comps, elem, LayoutTypedByteStride)
}

func newBytes(data []byte, count, stride, comps int, elem ElementType, layout Layout) (View, error) {
	if err := checkComps(comps); err != nil {
		return View{}, err
	}
	v := View{stride: stride, comps: comps, elem: elem, layout: layout}
	if count == 0 {
		return v, nil
	}
	if data == nil {
		return View{}, ErrNullBuffer
	}
	if err := checkExtent(len(data), count, stride, comps*elem.Size()); err != nil {
		return View{}, err
	}
	v.data = data
	v.count = count
	return v, nil
}

func checkComps(comps int) error {
	if comps < 1 || comps > MaxComponents {
		return fmt.Errorf("%w: %d components", ErrInvalidLayout, comps)
	}
	return nil
}

// checkExtent validates stride against the natural element size and makes
// sure the last element lies inside a buffer of size bytes.
func checkExtent(size, count, stride, natural int) error {
	if count < 0 {
		return fmt.Errorf("%w: negative count %d", ErrInvalidLayout, count)
	}
	if stride < natural {
		return fmt.Errorf("%w: stride %d smaller than element size %d", ErrInvalidLayout, stride, natural)
	}
	need := uint64(count-1)*uint64(stride) + uint64(natural)
	if uint64(size) < need {
		return fmt.Errorf("%w: buffer holds %d bytes, need %d", ErrInvalidLayout, size, need)
	}
	return nil
}

// IsZero reports whether v is the absent attribute.
func (v View) IsZero() bool {
	return v.layout == LayoutNone
}

// Len returns the number of elements.
func (v View) Len() int { return v.count }

// Components returns the number of components per element.
func (v View) Components() int { return v.comps }

// Stride returns the distance in bytes between consecutive elements.
func (v View) Stride() int { return v.stride }

// Layout returns the wire layout the view was built from.
func (v View) Layout() Layout { return v.layout }

// ElementType returns the component storage type.
func (v View) ElementType() ElementType { return v.elem }

// Tight reports whether elements are packed without padding.
func (v View) Tight() bool {
	return v.stride == v.comps*v.elem.Size()
}

// Element returns element i as floats. Components beyond Components() are zero.
func (v View) Element(i int) ([MaxComponents]float32, error) {
	var out [MaxComponents]float32
	if i < 0 || i >= v.count {
		return out, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, v.count)
	}
	if v.floats != nil {
		base := i * v.stride / 4
		copy(out[:v.comps], v.floats[base:base+v.comps])
		return out, nil
	}
	base := i * v.stride
	for c := 0; c < v.comps; c++ {
		out[c] = v.decode(base + c*v.elem.Size())
	}
	return out, nil
}

func (v View) decode(off int) float32 {
	switch v.elem {
	case Unorm8:
		return float32(v.data[off]) / 255
	case Snorm8:
		return max(float32(int8(v.data[off]))/127, -1)
	case Uint8:
		return float32(v.data[off])
	default:
		return math.Float32frombits(binary.NativeEndian.Uint32(v.data[off : off+4]))
	}
}

// Vec3 returns element i as a vector. Missing components are zero.
func (v View) Vec3(i int) (lmath.Vec3, error) {
	e, err := v.Element(i)
	if err != nil {
		return lmath.Vec3{}, err
	}
	return lmath.Vec3{X: e[0], Y: e[1], Z: e[2]}, nil
}

// Vec2 returns element i as a vector.
func (v View) Vec2(i int) (lmath.Vec2, error) {
	e, err := v.Element(i)
	if err != nil {
		return lmath.Vec2{}, err
	}
	return lmath.Vec2{X: e[0], Y: e[1]}, nil
}
