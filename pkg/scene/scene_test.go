package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/Faultbox/lightbake/pkg/attrib"
	lmath "github.com/Faultbox/lightbake/pkg/math"
)

// triangleDescriptor returns a single-triangle descriptor with tight arrays.
func triangleDescriptor(t *testing.T) Descriptor {
	t.Helper()
	pos, err := attrib.FromFloats([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	nrm, err := attrib.FromFloats([]float32{0, 0, 2, 0, 0, 1, 0, 0, 1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	uv, err := attrib.FromFloats([]float32{0, 0, 1, 0, 0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	return Descriptor{
		Positions:   pos,
		Normals:     nrm,
		UVs:         uv,
		Indices:     []uint32{0, 1, 2},
		VertexCount: 3,
		IndexCount:  3,
	}
}

func TestBuildValid(t *testing.T) {
	d := triangleDescriptor(t)
	s, err := Build(d)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(s.Vertices) != 3 || s.TriangleCount() != 1 {
		t.Fatalf("expected 3 vertices / 1 triangle, got %d / %d", len(s.Vertices), s.TriangleCount())
	}
	if !s.HasUVs {
		t.Error("expected HasUVs")
	}
	if s.GeneratedNormals {
		t.Error("normals were supplied, should not be generated")
	}
	// Supplied normals are normalized on copy.
	if s.Vertices[0].Normal.Z != 1 {
		t.Errorf("expected normalized normal, got %v", s.Vertices[0].Normal)
	}
	if s.Vertices[2].UV.Y != 1 {
		t.Errorf("uv 2 = %v", s.Vertices[2].UV)
	}
	if s.Bounds.Max.X != 1 || s.Bounds.Max.Y != 1 || s.Bounds.Min.Z != 0 {
		t.Errorf("unexpected bounds %+v", s.Bounds)
	}
}

func TestBuildCopiesInput(t *testing.T) {
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	indices := []uint32{0, 1, 2}
	pos, _ := attrib.FromFloats(positions, 3)
	s, err := Build(Descriptor{Positions: pos, Indices: indices, VertexCount: 3, IndexCount: 3})
	if err != nil {
		t.Fatal(err)
	}

	// The host reuses its buffers after the call.
	for i := range positions {
		positions[i] = 99
	}
	indices[0] = 7

	if s.Vertices[1].Position.X != 1 {
		t.Errorf("scene aliased host positions: %v", s.Vertices[1].Position)
	}
	if s.Indices[0] != 0 {
		t.Errorf("scene aliased host indices: %v", s.Indices)
	}
}

func TestBuildGeneratesNormals(t *testing.T) {
	d := triangleDescriptor(t)
	d.Normals = attrib.View{}
	s, err := Build(d)
	if err != nil {
		t.Fatal(err)
	}
	if !s.GeneratedNormals {
		t.Error("expected generated normals")
	}
	for i, v := range s.Vertices {
		if v.Normal.X != 0 || v.Normal.Y != 0 || v.Normal.Z != 1 {
			t.Errorf("vertex %d normal = %v, want +Z", i, v.Normal)
		}
	}
}

func TestBuildWithoutUVs(t *testing.T) {
	d := triangleDescriptor(t)
	d.UVs = attrib.View{}
	s, err := Build(d)
	if err != nil {
		t.Fatal(err)
	}
	if s.HasUVs {
		t.Error("expected HasUVs to be false")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Descriptor)
		want   error
	}{
		{
			name:   "missing positions",
			modify: func(d *Descriptor) { d.Positions = attrib.View{} },
			want:   ErrMissingRequiredAttribute,
		},
		{
			name:   "missing indices",
			modify: func(d *Descriptor) { d.Indices = nil },
			want:   ErrMissingRequiredAttribute,
		},
		{
			name:   "zero index count",
			modify: func(d *Descriptor) { d.IndexCount = 0 },
			want:   ErrMissingRequiredAttribute,
		},
		{
			name:   "vertex count larger than positions",
			modify: func(d *Descriptor) { d.VertexCount = 4 },
			want:   ErrVertexCountMismatch,
		},
		{
			name: "normals count mismatch",
			modify: func(d *Descriptor) {
				d.Normals, _ = attrib.FromFloats([]float32{0, 0, 1}, 3)
			},
			want: ErrVertexCountMismatch,
		},
		{
			name: "uv count mismatch",
			modify: func(d *Descriptor) {
				d.UVs, _ = attrib.FromFloats([]float32{0, 0, 1, 1}, 2)
			},
			want: ErrVertexCountMismatch,
		},
		{
			name:   "declared index count exceeds buffer",
			modify: func(d *Descriptor) { d.IndexCount = 6 },
			want:   ErrIndexCountMismatch,
		},
		{
			name: "index count not multiple of 3",
			modify: func(d *Descriptor) {
				d.Indices = []uint32{0, 1, 2, 0}
				d.IndexCount = 4
			},
			want: ErrDegenerateTopology,
		},
		{
			name:   "index out of bounds",
			modify: func(d *Descriptor) { d.Indices = []uint32{0, 1, 3} },
			want:   ErrIndexOutOfBounds,
		},
		{
			name: "nan position",
			modify: func(d *Descriptor) {
				d.Positions, _ = attrib.FromFloats([]float32{0, 0, 0, float32(math.NaN()), 0, 0, 0, 1, 0}, 3)
			},
			want: ErrNonFinite,
		},
		{
			name: "uv view with one component",
			modify: func(d *Descriptor) {
				d.UVs, _ = attrib.FromFloats([]float32{0, 1, 2}, 1)
			},
			want: attrib.ErrInvalidLayout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := triangleDescriptor(t)
			tt.modify(&d)
			s, err := Build(d)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if s != nil {
				t.Error("failed build should not return a scene")
			}
		})
	}
}

func TestBuildInterleaved(t *testing.T) {
	// position(3) normal(3) uv(2)
	buf := []float32{
		0, 0, 0, 0, 0, 1, 0, 0,
		1, 0, 0, 0, 0, 1, 1, 0,
		0, 1, 0, 0, 0, 1, 0, 1,
	}
	pos, err := attrib.NewFloatView(buf, 3, 32, 3)
	if err != nil {
		t.Fatal(err)
	}
	nrm, _ := attrib.NewFloatView(buf[3:], 3, 32, 3)
	uv, _ := attrib.NewFloatView(buf[6:], 3, 32, 2)

	s, err := Build(Descriptor{
		Positions:   pos,
		Normals:     nrm,
		UVs:         uv,
		Indices:     []uint32{0, 1, 2},
		VertexCount: 3,
		IndexCount:  3,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.Vertices[1].UV.X != 1 || s.Vertices[2].Position.Y != 1 {
		t.Errorf("unexpected vertices %+v", s.Vertices)
	}
}

func TestSmoothNormalsShared(t *testing.T) {
	// Two unit-area triangles folded along the shared edge (0,1): the shared
	// vertices get the average of both face normals.
	v := []Vertex{
		{Position: lmath.Vec3{X: 0, Y: 0, Z: 0}},
		{Position: lmath.Vec3{X: 1, Y: 0, Z: 0}},
		{Position: lmath.Vec3{X: 0, Y: 1, Z: 0}},
		{Position: lmath.Vec3{X: 0, Y: 0, Z: -1}},
	}
	SmoothNormals(v, []uint32{0, 1, 2, 1, 0, 3})

	near := func(a, b float32) bool { return a-b < 1e-4 && b-a < 1e-4 }
	s := float32(math.Sqrt(0.5))
	if n := v[0].Normal; !near(n.X, 0) || !near(n.Y, -s) || !near(n.Z, s) {
		t.Errorf("shared normal = %v, want (0, %v, %v)", n, -s, s)
	}
	if n := v[2].Normal; n != (lmath.Vec3{Z: 1}) {
		t.Errorf("vertex 2 normal = %v, want +Z", n)
	}
	if n := v[3].Normal; n != (lmath.Vec3{Y: -1}) {
		t.Errorf("vertex 3 normal = %v, want -Y", n)
	}
}
