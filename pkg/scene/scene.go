// Package scene validates mesh descriptors and turns them into owned,
// internally consistent scene snapshots that a baking engine can consume.
package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/lightbake/pkg/attrib"
	"github.com/Faultbox/lightbake/pkg/math"
)

// Mesh validation errors.
var (
	ErrMissingRequiredAttribute = errors.New("missing required attribute")
	ErrVertexCountMismatch      = errors.New("vertex count mismatch")
	ErrIndexCountMismatch       = errors.New("index count mismatch")
	ErrDegenerateTopology       = errors.New("degenerate topology")
	ErrIndexOutOfBounds         = errors.New("index out of bounds")
	ErrNonFinite                = errors.New("non-finite attribute value")
)

// Natural component counts of each attribute.
const (
	PositionComponents = 3
	NormalComponents   = 3
	UVComponents       = 2
)

// Descriptor is a borrowed description of one mesh to bake. The views and
// the index slice are only read during Build.
type Descriptor struct {
	Positions attrib.View
	Normals   attrib.View // optional, generated when absent
	UVs       attrib.View // optional, lightmap texture coordinates
	Indices   []uint32

	VertexCount uint32
	IndexCount  uint32
}

// Vertex is one validated, owned vertex.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	UV       math.Vec2
}

// Scene is an immutable snapshot of validated geometry. It owns all of its
// memory and never references the descriptor it was built from.
type Scene struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   math.AABB

	HasUVs           bool
	GeneratedNormals bool
}

// TriangleCount returns the number of triangles.
func (s *Scene) TriangleCount() int {
	return len(s.Indices) / 3
}

// Triangle returns the vertices of triangle i.
func (s *Scene) Triangle(i int) (a, b, c Vertex) {
	return s.Vertices[s.Indices[3*i]], s.Vertices[s.Indices[3*i+1]], s.Vertices[s.Indices[3*i+2]]
}

// TrianglePositions returns the corner positions of triangle i.
func (s *Scene) TrianglePositions(i int) (a, b, c math.Vec3) {
	va, vb, vc := s.Triangle(i)
	return va.Position, vb.Position, vc.Position
}

// Build validates d and returns a deep copy of its geometry.
//
// Checks run in a fixed order and stop at the first failure: required
// attributes, attribute counts, index count, topology, index bounds and
// finally attribute values. Nothing is allocated for a descriptor that fails
// a structural check.
func Build(d Descriptor) (*Scene, error) {
	if err := validate(d); err != nil {
		return nil, err
	}

	s := &Scene{
		Vertices: make([]Vertex, d.VertexCount),
		Indices:  make([]uint32, d.IndexCount),
		Bounds:   math.EmptyAABB(),
		HasUVs:   !d.UVs.IsZero(),
	}
	copy(s.Indices, d.Indices[:d.IndexCount])

	for i := range s.Vertices {
		v := &s.Vertices[i]
		// Counts were checked above, Element cannot fail here.
		v.Position, _ = d.Positions.Vec3(i)
		if !v.Position.IsFinite() {
			return nil, fmt.Errorf("%w: position %d = %v", ErrNonFinite, i, v.Position)
		}
		if !d.Normals.IsZero() {
			v.Normal, _ = d.Normals.Vec3(i)
			if !v.Normal.IsFinite() {
				return nil, fmt.Errorf("%w: normal %d = %v", ErrNonFinite, i, v.Normal)
			}
			v.Normal = v.Normal.Normalize()
		}
		if s.HasUVs {
			v.UV, _ = d.UVs.Vec2(i)
			if !v.UV.IsFinite() {
				return nil, fmt.Errorf("%w: uv %d = %v", ErrNonFinite, i, v.UV)
			}
		}
		s.Bounds = s.Bounds.Expand(v.Position)
	}

	if d.Normals.IsZero() {
		SmoothNormals(s.Vertices, s.Indices)
		s.GeneratedNormals = true
	}
	return s, nil
}

func validate(d Descriptor) error {
	if d.Positions.IsZero() {
		return fmt.Errorf("%w: positions", ErrMissingRequiredAttribute)
	}
	if len(d.Indices) == 0 || d.IndexCount == 0 {
		return fmt.Errorf("%w: indices", ErrMissingRequiredAttribute)
	}

	if err := checkView("positions", d.Positions, PositionComponents, d.VertexCount); err != nil {
		return err
	}
	if !d.Normals.IsZero() {
		if err := checkView("normals", d.Normals, NormalComponents, d.VertexCount); err != nil {
			return err
		}
	}
	if !d.UVs.IsZero() {
		if err := checkView("uvs", d.UVs, UVComponents, d.VertexCount); err != nil {
			return err
		}
	}

	if uint64(len(d.Indices)) < uint64(d.IndexCount) {
		return fmt.Errorf("%w: %d indices declared, %d supplied", ErrIndexCountMismatch, d.IndexCount, len(d.Indices))
	}
	if d.IndexCount%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrDegenerateTopology, d.IndexCount)
	}
	for i, idx := range d.Indices[:d.IndexCount] {
		if idx >= d.VertexCount {
			return fmt.Errorf("%w: indices[%d] = %d, vertex count %d", ErrIndexOutOfBounds, i, idx, d.VertexCount)
		}
	}
	return nil
}

func checkView(name string, v attrib.View, comps int, vertexCount uint32) error {
	if uint64(v.Len()) != uint64(vertexCount) {
		return fmt.Errorf("%w: %s has %d elements, vertex count %d", ErrVertexCountMismatch, name, v.Len(), vertexCount)
	}
	if v.Components() < comps {
		return fmt.Errorf("%w: %s has %d components, need %d", attrib.ErrInvalidLayout, name, v.Components(), comps)
	}
	return nil
}

// SmoothNormals assigns every vertex the normalized, area-weighted sum of the
// face normals of the triangles that reference it. Vertices referenced by no
// triangle keep a zero normal.
func SmoothNormals(vertices []Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = math.Vec3{}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		p0 := vertices[i0].Position
		// Unnormalized cross product: its length is twice the triangle area.
		n := vertices[i1].Position.Sub(p0).Cross(vertices[i2].Position.Sub(p0))
		vertices[i0].Normal = vertices[i0].Normal.Add(n)
		vertices[i1].Normal = vertices[i1].Normal.Add(n)
		vertices[i2].Normal = vertices[i2].Normal.Add(n)
	}
	for i := range vertices {
		vertices[i].Normal = vertices[i].Normal.Normalize()
	}
}
