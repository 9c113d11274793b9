package engine

import (
	"errors"
	stdmath "math"
	"runtime"
	"testing"

	"github.com/Faultbox/lightbake/pkg/attrib"
	"github.com/Faultbox/lightbake/pkg/math"
	"github.com/Faultbox/lightbake/pkg/scene"
	"github.com/Faultbox/lightbake/pkg/shapes"
	"github.com/Faultbox/lightbake/pkg/target"
)

func sceneFrom(t *testing.T, m *shapes.Mesh) *scene.Scene {
	t.Helper()
	d, err := m.Descriptor()
	if err != nil {
		t.Fatal(err)
	}
	s, err := scene.Build(d)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestConstantFillsTarget(t *testing.T) {
	tgt, _ := target.Alloc(1, 1, target.FormatRGBA32F)
	color := [4]float32{0.25, 0.5, 0.75, 1}
	if err := (Constant{Color: color}).ComputeLightmap(sceneFrom(t, shapes.Triangle()), tgt); err != nil {
		t.Fatal(err)
	}
	if got := tgt.Texel(0, 0); got != color {
		t.Errorf("texel = %v, want %v", got, color)
	}
}

func TestFuncAdapter(t *testing.T) {
	want := errors.New("boom")
	var e Engine = Func(func(*scene.Scene, *target.Target) error { return want })
	if err := e.ComputeLightmap(nil, nil); err != want {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestSunDirection(t *testing.T) {
	tests := []struct {
		lon, lat float32
		want     math.Vec3
	}{
		{0, 90, math.Vec3{Y: 1}},
		{0, 0, math.Vec3{Z: 1}},
		{90, 0, math.Vec3{X: 1}},
	}
	for _, tt := range tests {
		got := SunDirection(tt.lon, tt.lat)
		if got.Sub(tt.want).Length() > 1e-6 {
			t.Errorf("SunDirection(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
		}
	}
}

func TestCosineHemisphereIsUnitAndUpward(t *testing.T) {
	for _, u := range [][2]float32{{0, 0}, {0.5, 0.25}, {0.999, 0.9}, {1, 0.5}} {
		d := cosineHemisphere(u[0], u[1])
		if d.Z < 0 {
			t.Errorf("direction %v below horizon", d)
		}
		if l := d.Length(); stdmath.Abs(float64(l-1)) > 1e-5 {
			t.Errorf("direction %v has length %v", d, l)
		}
	}
}

func TestLightmapperRequiresUVs(t *testing.T) {
	pos, _ := attrib.FromFloats([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, 3)
	sc, err := scene.Build(scene.Descriptor{Positions: pos, Indices: []uint32{0, 1, 2}, VertexCount: 3, IndexCount: 3})
	if err != nil {
		t.Fatal(err)
	}
	tgt, _ := target.Alloc(4, 4, target.FormatRGBA8)
	before := tgt.Checksum()

	l := NewLightmapper(DefaultConfig(), nil)
	if err := l.ComputeLightmap(sc, tgt); !errors.Is(err, ErrNoLightmapUVs) {
		t.Fatalf("expected ErrNoLightmapUVs, got %v", err)
	}
	if tgt.Checksum() != before {
		t.Error("target modified on failure")
	}
}

// unlitConfig isolates the sun term: no sky, no ambient.
func unlitConfig() Config {
	cfg := DefaultConfig()
	cfg.SunLongitude, cfg.SunLatitude = 0, 90
	cfg.SunColor = [3]float32{1, 1, 1}
	cfg.SkyColor = [3]float32{}
	cfg.Ambient = [3]float32{}
	cfg.AOSamples = 0
	cfg.Dilation = 0
	cfg.Background = [4]float32{0, 0, 0, 0}
	return cfg
}

func TestLightmapperPlaneFullyLit(t *testing.T) {
	// The chart covers the top half of the lightmap.
	sc := sceneFrom(t, shapes.Plane(2, shapes.Unit.Cell(0, 0, 1, 2)))
	tgt, _ := target.Alloc(16, 16, target.FormatRGBA32F)

	l := NewLightmapper(unlitConfig(), nil)
	if err := l.ComputeLightmap(sc, tgt); err != nil {
		t.Fatal(err)
	}

	c := tgt.Texel(8, 4)
	if stdmath.Abs(float64(c[0]-1)) > 1e-5 || c[3] != 1 {
		t.Errorf("chart texel = %v, want fully lit", c)
	}
	if c := tgt.Texel(8, 12); c[3] != 0 {
		t.Errorf("texel outside the chart = %v, want background", c)
	}
}

func TestLightmapperShadow(t *testing.T) {
	sc := sceneFrom(t, shapes.BoxOnPlane())
	tgt, _ := target.Alloc(64, 64, target.FormatRGBA32F)

	l := NewLightmapper(unlitConfig(), nil)
	if err := l.ComputeLightmap(sc, tgt); err != nil {
		t.Fatal(err)
	}

	// The plane occupies the top half of the lightmap (v in [0, 0.5]); the
	// unit box stands at its centre and shadows it under an overhead sun.
	under := tgt.Texel(32, 16)
	if under[0] != 0 || under[3] != 1 {
		t.Errorf("texel under the box = %v, want covered and dark", under)
	}
	open := tgt.Texel(4, 4)
	if open[0] < 0.99 {
		t.Errorf("texel far from the box = %v, want lit", open)
	}
}

func TestLightmapperDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AOSamples = 8
	sc := sceneFrom(t, shapes.BoxOnPlane())

	bake := func(workers int) uint32 {
		c := cfg
		c.Workers = workers
		tgt, _ := target.Alloc(32, 32, target.FormatRGBA8)
		if err := NewLightmapper(c, nil).ComputeLightmap(sc, tgt); err != nil {
			t.Fatal(err)
		}
		return tgt.Checksum()
	}

	if a, b := bake(1), bake(4); a != b {
		t.Errorf("checksum differs between 1 and 4 workers: %08x vs %08x", a, b)
	}
}

func TestLightmapperReusesBVH(t *testing.T) {
	sc := sceneFrom(t, shapes.Triangle())
	l := NewLightmapper(unlitConfig(), nil)
	first, err := l.accel(sc)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := l.accel(sc)
	if first != second {
		t.Error("expected cached BVH for the same scene")
	}
	third, _ := l.accel(sceneFrom(t, shapes.Triangle()))
	if third == first {
		t.Error("expected a new BVH for a different scene")
	}
}

func TestLightmapperCacheDoesNotRetainScene(t *testing.T) {
	l := NewLightmapper(unlitConfig(), nil)
	func() {
		if _, err := l.accel(sceneFrom(t, shapes.BoxOnPlane())); err != nil {
			t.Fatal(err)
		}
	}()

	for i := 0; i < 5 && l.cached.Value() != nil; i++ {
		runtime.GC()
	}
	if l.cached.Value() != nil {
		t.Error("cached BVH keeps a discarded scene alive")
	}
}

func TestDilate(t *testing.T) {
	colors := make([][4]float32, 9)
	covered := make([]bool, 9)
	colors[4] = [4]float32{1, 1, 1, 1}
	covered[4] = true

	dilate(colors, covered, 3, 3, 1)
	for i := range covered {
		if !covered[i] || colors[i] != [4]float32{1, 1, 1, 1} {
			t.Fatalf("texel %d = %v covered=%v after dilation", i, colors[i], covered[i])
		}
	}
}

func TestRasterizeCoversTriangle(t *testing.T) {
	sc := sceneFrom(t, shapes.Triangle())
	g := newGBuffer(8, 8)
	n := g.rasterize(sc)
	// Roughly half of the 64 texels.
	if n < 20 || n > 40 {
		t.Errorf("covered %d texels", n)
	}
	s := g.samples[1*8+1]
	if !s.covered || s.normal != (math.Vec3{Z: 1}) {
		t.Errorf("sample (1,1) = %+v", s)
	}
	if g.samples[7*8+7].covered {
		t.Error("texel beyond the hypotenuse covered")
	}
}
