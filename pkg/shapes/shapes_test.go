package shapes

import (
	"testing"

	"github.com/Faultbox/lightbake/pkg/math"
	"github.com/Faultbox/lightbake/pkg/scene"
)

func buildScene(t *testing.T, m *Mesh) *scene.Scene {
	t.Helper()
	d, err := m.Descriptor()
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	s, err := scene.Build(d)
	if err != nil {
		t.Fatalf("scene.Build: %v", err)
	}
	return s
}

func TestByName(t *testing.T) {
	tests := []struct {
		name      string
		triangles int
	}{
		{"triangle", 1},
		{"plane", 2},
		{"box", 12},
		{"box-on-plane", 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := ByName(tt.name)
			if !ok {
				t.Fatalf("ByName(%q) not found", tt.name)
			}
			s := buildScene(t, m)
			if s.TriangleCount() != tt.triangles {
				t.Errorf("expected %d triangles, got %d", tt.triangles, s.TriangleCount())
			}
			if !s.HasUVs || s.GeneratedNormals {
				t.Errorf("HasUVs=%v GeneratedNormals=%v", s.HasUVs, s.GeneratedNormals)
			}
		})
	}
	if _, ok := ByName("teapot"); ok {
		t.Error("unknown shape should not be found")
	}
	if len(Names()) != len(tests) {
		t.Errorf("Names() = %v", Names())
	}
}

func TestBoxFacesPointOutward(t *testing.T) {
	s := buildScene(t, Box(math.AABB{
		Min: math.Vec3{X: -1, Y: -1, Z: -1},
		Max: math.Vec3{X: 1, Y: 1, Z: 1},
	}, Unit))
	for i := 0; i < s.TriangleCount(); i++ {
		a, b, c := s.Triangle(i)
		centroid := a.Position.Add(b.Position).Add(c.Position).Scale(1.0 / 3)
		if a.Normal.Dot(centroid) <= 0 {
			t.Errorf("triangle %d normal %v points inward", i, a.Normal)
		}
		// Winding agrees with the stored normal.
		geo := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position))
		if geo.Dot(a.Normal) <= 0 {
			t.Errorf("triangle %d winding disagrees with normal", i)
		}
	}
}

func TestUVChartsInsideUnitSquare(t *testing.T) {
	const eps = 1e-6
	s := buildScene(t, BoxOnPlane())
	for i, v := range s.Vertices {
		if v.UV.X < Gutter-eps || v.UV.Y < Gutter-eps || v.UV.X > 1-Gutter+eps || v.UV.Y > 1-Gutter+eps {
			t.Errorf("vertex %d uv %v outside gutter", i, v.UV)
		}
	}
}

func TestUVChartsDoNotOverlap(t *testing.T) {
	m := BoxOnPlane()
	type box struct{ lo, hi math.Vec2 }
	var charts []box
	for q := 0; q < len(m.Indices)/6; q++ {
		c := box{lo: math.Vec2{X: 2, Y: 2}, hi: math.Vec2{X: -1, Y: -1}}
		for k := 0; k < 4; k++ {
			off := (q*4+k)*FloatsPerVertex + uvOffset
			u, v := m.Vertices[off], m.Vertices[off+1]
			c.lo = math.Vec2{X: min(c.lo.X, u), Y: min(c.lo.Y, v)}
			c.hi = math.Vec2{X: max(c.hi.X, u), Y: max(c.hi.Y, v)}
		}
		charts = append(charts, c)
	}
	for i := range charts {
		for j := i + 1; j < len(charts); j++ {
			a, b := charts[i], charts[j]
			if a.lo.X < b.hi.X && b.lo.X < a.hi.X && a.lo.Y < b.hi.Y && b.lo.Y < a.hi.Y {
				t.Errorf("charts %d and %d overlap: %v %v", i, j, a, b)
			}
		}
	}
}

func TestDescriptorIsInterleaved(t *testing.T) {
	d, err := Plane(2, Unit).Descriptor()
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []struct {
		name   string
		stride int
		tight  bool
	}{
		{"positions", d.Positions.Stride(), d.Positions.Tight()},
		{"normals", d.Normals.Stride(), d.Normals.Tight()},
		{"uvs", d.UVs.Stride(), d.UVs.Tight()},
	} {
		if v.stride != Stride || v.tight {
			t.Errorf("%s: stride %d tight %v", v.name, v.stride, v.tight)
		}
	}
	if d.VertexCount != 4 || d.IndexCount != 6 {
		t.Errorf("counts = %d/%d", d.VertexCount, d.IndexCount)
	}
}
