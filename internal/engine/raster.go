package engine

import (
	"github.com/Faultbox/lightbake/pkg/math"
	"github.com/Faultbox/lightbake/pkg/scene"
)

// coverageEpsilon lets texel centres that sit exactly on a shared edge land
// in both neighbouring triangles instead of neither.
const coverageEpsilon = 1e-4

// sample is the surface point seen by one lightmap texel.
type sample struct {
	position math.Vec3
	normal   math.Vec3
	covered  bool
}

// gbuffer holds one surface sample per lightmap texel, row-major.
type gbuffer struct {
	width, height int
	samples       []sample
}

func newGBuffer(width, height int) *gbuffer {
	return &gbuffer{
		width:   width,
		height:  height,
		samples: make([]sample, width*height),
	}
}

// rasterize records, for every texel whose centre lies inside a triangle in
// UV space, the interpolated world position and normal. UV (0,0) is the
// top-left corner of texel (0,0); v grows with the row index.
func (g *gbuffer) rasterize(sc *scene.Scene) int {
	covered := 0
	for i := 0; i < sc.TriangleCount(); i++ {
		a, b, c := sc.Triangle(i)
		covered += g.triangle(a, b, c)
	}
	return covered
}

func (g *gbuffer) triangle(va, vb, vc scene.Vertex) int {
	size := math.Vec2{X: float32(g.width), Y: float32(g.height)}
	a := math.Vec2{X: va.UV.X * size.X, Y: va.UV.Y * size.Y}
	b := math.Vec2{X: vb.UV.X * size.X, Y: vb.UV.Y * size.Y}
	c := math.Vec2{X: vc.UV.X * size.X, Y: vc.UV.Y * size.Y}

	area := b.Sub(a).Cross(c.Sub(a))
	if area > -1e-12 && area < 1e-12 {
		return 0
	}

	x0 := clampInt(int(min(a.X, b.X, c.X)), 0, g.width-1)
	x1 := clampInt(int(max(a.X, b.X, c.X)), 0, g.width-1)
	y0 := clampInt(int(min(a.Y, b.Y, c.Y)), 0, g.height-1)
	y1 := clampInt(int(max(a.Y, b.Y, c.Y)), 0, g.height-1)

	n := 0
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			p := math.Vec2{X: float32(x) + 0.5, Y: float32(y) + 0.5}
			w0 := c.Sub(b).Cross(p.Sub(b)) / area
			w1 := a.Sub(c).Cross(p.Sub(c)) / area
			w2 := b.Sub(a).Cross(p.Sub(a)) / area
			if w0 < -coverageEpsilon || w1 < -coverageEpsilon || w2 < -coverageEpsilon {
				continue
			}

			s := &g.samples[y*g.width+x]
			if !s.covered {
				n++
			}
			s.covered = true
			s.position = va.Position.Scale(w0).Add(vb.Position.Scale(w1)).Add(vc.Position.Scale(w2))
			s.normal = va.Normal.Scale(w0).Add(vb.Normal.Scale(w1)).Add(vc.Normal.Scale(w2)).Normalize()
		}
	}
	return n
}

// dilate grows covered regions by one texel per pass into uncovered
// neighbours, averaging the covered 8-neighbourhood. It keeps lightmap
// filtering from pulling background colour into chart edges.
func dilate(colors [][4]float32, covered []bool, width, height, passes int) {
	next := make([]bool, len(covered))
	for range passes {
		copy(next, covered)
		grew := false
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				i := y*width + x
				if covered[i] {
					continue
				}
				var sum [4]float32
				count := 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || ny < 0 || nx >= width || ny >= height {
							continue
						}
						j := ny*width + nx
						if !covered[j] {
							continue
						}
						for k := range sum {
							sum[k] += colors[j][k]
						}
						count++
					}
				}
				if count == 0 {
					continue
				}
				for k := range sum {
					colors[i][k] = sum[k] / float32(count)
				}
				next[i] = true
				grew = true
			}
		}
		copy(covered, next)
		if !grew {
			return
		}
	}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
