// Package shapes generates small procedural meshes with non-overlapping
// lightmap UVs. Vertices are interleaved the way most engines upload them:
// position(3) normal(3) uv(2) float32, 32 bytes per vertex.
package shapes

import (
	"github.com/Faultbox/lightbake/pkg/attrib"
	"github.com/Faultbox/lightbake/pkg/math"
	"github.com/Faultbox/lightbake/pkg/scene"
)

// Interleaved vertex layout.
const (
	FloatsPerVertex = 8
	Stride          = FloatsPerVertex * 4

	positionOffset = 0
	normalOffset   = 3
	uvOffset       = 6
)

// Gutter is the UV-space margin kept around every chart so that bilinear
// sampling and dilation never mix neighbouring faces.
const Gutter = 1.0 / 64

// Mesh is an interleaved vertex buffer plus a triangle index list.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
}

// VertexCount returns the number of interleaved vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / FloatsPerVertex
}

// Descriptor returns a mesh descriptor whose views point into m's buffers.
// m must outlive the descriptor.
func (m *Mesh) Descriptor() (scene.Descriptor, error) {
	n := m.VertexCount()
	pos, err := attrib.NewFloatView(m.Vertices[positionOffset:], n, Stride, scene.PositionComponents)
	if err != nil {
		return scene.Descriptor{}, err
	}
	nrm, err := attrib.NewFloatView(m.Vertices[normalOffset:], n, Stride, scene.NormalComponents)
	if err != nil {
		return scene.Descriptor{}, err
	}
	uv, err := attrib.NewFloatView(m.Vertices[uvOffset:], n, Stride, scene.UVComponents)
	if err != nil {
		return scene.Descriptor{}, err
	}
	return scene.Descriptor{
		Positions:   pos,
		Normals:     nrm,
		UVs:         uv,
		Indices:     m.Indices,
		VertexCount: uint32(n),
		IndexCount:  uint32(len(m.Indices)),
	}, nil
}

// Rect is an axis-aligned region of lightmap UV space.
type Rect struct {
	Min, Max math.Vec2
}

// Unit covers the whole lightmap.
var Unit = Rect{Max: math.Vec2{X: 1, Y: 1}}

// Inset shrinks r by d on every side.
func (r Rect) Inset(d float32) Rect {
	return Rect{
		Min: math.Vec2{X: r.Min.X + d, Y: r.Min.Y + d},
		Max: math.Vec2{X: r.Max.X - d, Y: r.Max.Y - d},
	}
}

// Cell returns cell (col, row) of r split into cols×rows equal cells.
func (r Rect) Cell(col, row, cols, rows int) Rect {
	w := (r.Max.X - r.Min.X) / float32(cols)
	h := (r.Max.Y - r.Min.Y) / float32(rows)
	lo := math.Vec2{X: r.Min.X + float32(col)*w, Y: r.Min.Y + float32(row)*h}
	return Rect{Min: lo, Max: math.Vec2{X: lo.X + w, Y: lo.Y + h}}
}

// Quad appends the parallelogram origin, origin+u, origin+u+v, origin+v with
// a flat normal along u×v, mapped onto uv.
func (m *Mesh) Quad(origin, u, v math.Vec3, uv Rect) {
	n := u.Cross(v).Normalize()
	base := uint32(m.VertexCount())
	corners := [4]struct {
		p  math.Vec3
		uv math.Vec2
	}{
		{origin, uv.Min},
		{origin.Add(u), math.Vec2{X: uv.Max.X, Y: uv.Min.Y}},
		{origin.Add(u).Add(v), uv.Max},
		{origin.Add(v), math.Vec2{X: uv.Min.X, Y: uv.Max.Y}},
	}
	for _, c := range corners {
		m.Vertices = append(m.Vertices,
			c.p.X, c.p.Y, c.p.Z,
			n.X, n.Y, n.Z,
			c.uv.X, c.uv.Y,
		)
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// Triangle returns a single right triangle in the XY plane facing +Z.
func Triangle() *Mesh {
	return &Mesh{
		Vertices: []float32{
			0, 0, 0, 0, 0, 1, Gutter, Gutter,
			1, 0, 0, 0, 0, 1, 1 - Gutter, Gutter,
			0, 1, 0, 0, 0, 1, Gutter, 1 - Gutter,
		},
		Indices: []uint32{0, 1, 2},
	}
}

// Plane returns a size×size ground plane centred on the origin, facing +Y.
func Plane(size float32, uv Rect) *Mesh {
	m := &Mesh{}
	m.AddPlane(size, uv)
	return m
}

// AddPlane appends a ground plane to m.
func (m *Mesh) AddPlane(size float32, uv Rect) {
	h := size / 2
	m.Quad(
		math.Vec3{X: -h, Y: 0, Z: h},
		math.Vec3{X: size},
		math.Vec3{Z: -size},
		uv.Inset(Gutter),
	)
}

// Box returns an axis-aligned box. Its six faces are laid out in a 3×2 grid
// inside uv.
func Box(b math.AABB, uv Rect) *Mesh {
	m := &Mesh{}
	m.AddBox(b, uv)
	return m
}

// AddBox appends an axis-aligned box with outward-facing faces to m.
func (m *Mesh) AddBox(b math.AABB, uv Rect) {
	d := b.Diagonal()
	lo, hi := b.Min, b.Max
	faces := [6]struct{ origin, u, v math.Vec3 }{
		{math.Vec3{X: hi.X, Y: lo.Y, Z: hi.Z}, math.Vec3{Z: -d.Z}, math.Vec3{Y: d.Y}}, // +X
		{lo, math.Vec3{Z: d.Z}, math.Vec3{Y: d.Y}},                                   // -X
		{math.Vec3{X: lo.X, Y: hi.Y, Z: hi.Z}, math.Vec3{X: d.X}, math.Vec3{Z: -d.Z}}, // +Y
		{lo, math.Vec3{X: d.X}, math.Vec3{Z: d.Z}},                                   // -Y
		{math.Vec3{X: lo.X, Y: lo.Y, Z: hi.Z}, math.Vec3{X: d.X}, math.Vec3{Y: d.Y}},  // +Z
		{math.Vec3{X: hi.X, Y: lo.Y, Z: lo.Z}, math.Vec3{X: -d.X}, math.Vec3{Y: d.Y}}, // -Z
	}
	for i, f := range faces {
		m.Quad(f.origin, f.u, f.v, uv.Cell(i%3, i/3, 3, 2).Inset(Gutter))
	}
}

// BoxOnPlane returns a unit cube resting on a 4×4 ground plane. The plane
// takes the lower half of the lightmap and the cube the upper half.
func BoxOnPlane() *Mesh {
	m := &Mesh{}
	m.AddPlane(4, Unit.Cell(0, 0, 1, 2))
	m.AddBox(math.AABB{
		Min: math.Vec3{X: -0.5, Y: 0, Z: -0.5},
		Max: math.Vec3{X: 0.5, Y: 1, Z: 0.5},
	}, Unit.Cell(0, 1, 1, 2))
	return m
}

// ByName returns one of the built-in meshes: "triangle", "plane", "box" or
// "box-on-plane".
func ByName(name string) (*Mesh, bool) {
	switch name {
	case "triangle":
		return Triangle(), true
	case "plane":
		return Plane(4, Unit), true
	case "box":
		return Box(math.AABB{
			Min: math.Vec3{X: -0.5, Y: -0.5, Z: -0.5},
			Max: math.Vec3{X: 0.5, Y: 0.5, Z: 0.5},
		}, Unit), true
	case "box-on-plane":
		return BoxOnPlane(), true
	}
	return nil, false
}

// Names lists the meshes known to ByName.
func Names() []string {
	return []string{"triangle", "plane", "box", "box-on-plane"}
}
