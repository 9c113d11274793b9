// Package abi adapts the raw structures crossing the C boundary to the
// bridge's Go types.
//
// Four revisions of the mesh descriptor have shipped. Each has an adapter
// here that produces the same scene.Descriptor, so validation and baking
// only ever see one shape. The struct layouts match lightbake.h field for
// field; the cgo layer converts pointers without copying.
//
// A nil attribute pointer means the attribute is absent. A zero stride means
// tightly packed.
package abi

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/Faultbox/lightbake/pkg/attrib"
	"github.com/Faultbox/lightbake/pkg/scene"
)

// Mesh is any wire revision of the mesh descriptor.
type Mesh interface {
	Descriptor() (scene.Descriptor, error)
}

// MeshV1 is the first revision: tight float arrays, no texture coordinates.
type MeshV1 struct {
	Positions   *float32
	Normals     *float32
	Indices     *uint32
	VertexCount uint32
	IndexCount  uint32
}

// AttributeSlice is an untyped byte view. Components are float32.
type AttributeSlice struct {
	Data   *byte
	Stride uint32
}

// MeshV2 carries untyped byte-stride attributes.
type MeshV2 struct {
	Positions   AttributeSlice
	Normals     AttributeSlice
	UVs         AttributeSlice
	Indices     *uint32
	VertexCount uint32
	IndexCount  uint32
}

// FloatSlice is a float array with an explicit byte stride.
type FloatSlice struct {
	Data   *float32
	Stride uint32
}

// MeshV3 carries float arrays with explicit strides.
type MeshV3 struct {
	Positions   FloatSlice
	Normals     FloatSlice
	UVs         FloatSlice
	Indices     *uint32
	VertexCount uint32
	IndexCount  uint32
}

// Element type codes of TypedSlice.Elem.
const (
	ElemFloat32 uint32 = iota
	ElemUnorm8
	ElemSnorm8
	ElemUint8
)

// TypedSlice is a byte view with an explicit component type.
type TypedSlice struct {
	Data   *byte
	Stride uint32
	Elem   uint32
}

// MeshV4 carries typed byte-stride attributes.
type MeshV4 struct {
	Positions   TypedSlice
	Normals     TypedSlice
	UVs         TypedSlice
	Indices     *uint32
	VertexCount uint32
	IndexCount  uint32
}

// Descriptor implements Mesh.
func (m *MeshV1) Descriptor() (scene.Descriptor, error) {
	d := scene.Descriptor{
		Indices:     indices(m.Indices, m.IndexCount),
		VertexCount: m.VertexCount,
		IndexCount:  m.IndexCount,
	}
	var err error
	if d.Positions, err = tight(m.Positions, m.VertexCount, scene.PositionComponents); err != nil {
		return scene.Descriptor{}, fmt.Errorf("positions: %w", err)
	}
	if d.Normals, err = tight(m.Normals, m.VertexCount, scene.NormalComponents); err != nil {
		return scene.Descriptor{}, fmt.Errorf("normals: %w", err)
	}
	return d, nil
}

// Descriptor implements Mesh.
func (m *MeshV2) Descriptor() (scene.Descriptor, error) {
	d := scene.Descriptor{
		Indices:     indices(m.Indices, m.IndexCount),
		VertexCount: m.VertexCount,
		IndexCount:  m.IndexCount,
	}
	attrs := []struct {
		name  string
		slice AttributeSlice
		comps int
		dst   *attrib.View
	}{
		{"positions", m.Positions, scene.PositionComponents, &d.Positions},
		{"normals", m.Normals, scene.NormalComponents, &d.Normals},
		{"uvs", m.UVs, scene.UVComponents, &d.UVs},
	}
	for _, a := range attrs {
		if a.slice.Data == nil {
			continue
		}
		stride, data, err := byteExtent(unsafe.Pointer(a.slice.Data), a.slice.Stride, m.VertexCount, a.comps*4)
		if err != nil {
			return scene.Descriptor{}, fmt.Errorf("%s: %w", a.name, err)
		}
		if *a.dst, err = attrib.NewByteView(data, int(m.VertexCount), stride, a.comps); err != nil {
			return scene.Descriptor{}, fmt.Errorf("%s: %w", a.name, err)
		}
	}
	return d, nil
}

// Descriptor implements Mesh.
func (m *MeshV3) Descriptor() (scene.Descriptor, error) {
	d := scene.Descriptor{
		Indices:     indices(m.Indices, m.IndexCount),
		VertexCount: m.VertexCount,
		IndexCount:  m.IndexCount,
	}
	attrs := []struct {
		name  string
		slice FloatSlice
		comps int
		dst   *attrib.View
	}{
		{"positions", m.Positions, scene.PositionComponents, &d.Positions},
		{"normals", m.Normals, scene.NormalComponents, &d.Normals},
		{"uvs", m.UVs, scene.UVComponents, &d.UVs},
	}
	for _, a := range attrs {
		if a.slice.Data == nil {
			continue
		}
		stride, data, err := byteExtent(unsafe.Pointer(a.slice.Data), a.slice.Stride, m.VertexCount, a.comps*4)
		if err != nil {
			return scene.Descriptor{}, fmt.Errorf("%s: %w", a.name, err)
		}
		// Round down: a trailing partial float is never read.
		floats := unsafe.Slice(a.slice.Data, len(data)/4)
		if *a.dst, err = attrib.NewFloatView(floats, int(m.VertexCount), stride, a.comps); err != nil {
			return scene.Descriptor{}, fmt.Errorf("%s: %w", a.name, err)
		}
	}
	return d, nil
}

// Descriptor implements Mesh.
func (m *MeshV4) Descriptor() (scene.Descriptor, error) {
	d := scene.Descriptor{
		Indices:     indices(m.Indices, m.IndexCount),
		VertexCount: m.VertexCount,
		IndexCount:  m.IndexCount,
	}
	attrs := []struct {
		name  string
		slice TypedSlice
		comps int
		dst   *attrib.View
	}{
		{"positions", m.Positions, scene.PositionComponents, &d.Positions},
		{"normals", m.Normals, scene.NormalComponents, &d.Normals},
		{"uvs", m.UVs, scene.UVComponents, &d.UVs},
	}
	for _, a := range attrs {
		if a.slice.Data == nil {
			continue
		}
		elem, err := elementType(a.slice.Elem)
		if err != nil {
			return scene.Descriptor{}, fmt.Errorf("%s: %w", a.name, err)
		}
		stride, data, err := byteExtent(unsafe.Pointer(a.slice.Data), a.slice.Stride, m.VertexCount, a.comps*elem.Size())
		if err != nil {
			return scene.Descriptor{}, fmt.Errorf("%s: %w", a.name, err)
		}
		if *a.dst, err = attrib.NewTypedView(data, int(m.VertexCount), stride, a.comps, elem); err != nil {
			return scene.Descriptor{}, fmt.Errorf("%s: %w", a.name, err)
		}
	}
	return d, nil
}

func elementType(code uint32) (attrib.ElementType, error) {
	switch code {
	case ElemFloat32:
		return attrib.Float32, nil
	case ElemUnorm8:
		return attrib.Unorm8, nil
	case ElemSnorm8:
		return attrib.Snorm8, nil
	case ElemUint8:
		return attrib.Uint8, nil
	}
	return 0, fmt.Errorf("%w: unknown element type %d", attrib.ErrInvalidLayout, code)
}

// tight returns a view over count tightly packed elements at p. A nil p is
// an absent attribute.
func tight(p *float32, count uint32, comps int) (attrib.View, error) {
	if p == nil {
		return attrib.View{}, nil
	}
	n := uint64(count) * uint64(comps)
	if n > math.MaxInt/4 {
		return attrib.View{}, fmt.Errorf("%w: %d elements overflow", attrib.ErrInvalidLayout, count)
	}
	return attrib.FromFloats(unsafe.Slice(p, int(n)), comps)
}

// byteExtent resolves a zero stride to natural and returns the bytes the
// view is allowed to read: up to the end of the last element.
func byteExtent(p unsafe.Pointer, stride, count uint32, natural int) (int, []byte, error) {
	s := uint64(stride)
	if s == 0 {
		s = uint64(natural)
	}
	if count == 0 {
		return int(s), unsafe.Slice((*byte)(p), 0), nil
	}
	// At most (2^32-1)^2 + natural: fits in uint64, not necessarily in int.
	need := uint64(count-1)*s + uint64(natural)
	if need > math.MaxInt || s > math.MaxInt32 {
		return 0, nil, fmt.Errorf("%w: %d elements with stride %d overflow", attrib.ErrInvalidLayout, count, s)
	}
	return int(s), unsafe.Slice((*byte)(p), int(need)), nil
}

// indices returns the host index buffer, or nil when p is nil.
func indices(p *uint32, count uint32) []uint32 {
	if p == nil {
		return nil
	}
	return unsafe.Slice(p, int(count))
}
